package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type (
	// Service is the production Assessor. It geocodes the configured
	// location, walks the provider's hourly forecast pages to the hour
	// covering the slot, and evaluates the safe-flying rules against it
	Service struct {
		client      *http.Client
		log         *zap.Logger
		apiKey      string
		geocodeURL  string
		forecastURL string
		now         func() time.Time
	}

	ServiceConfig struct {
		APIKey      string
		GeocodeURL  string
		ForecastURL string
		Timeout     time.Duration
	}

	geocodeResponse struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}

	forecastResponse struct {
		ForecastHours []ForecastHour `json:"forecastHours"`
		NextPageToken string         `json:"nextPageToken"`
	}
)

const (
	DefaultGeocodeURL  = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultForecastURL = "https://weather.googleapis.com/v1/forecast/hours:lookup"
	DefaultTimeout     = 15 * time.Second

	slotIDLayout    = "2006-01-02-15"
	forecastHorizon = 240 * time.Hour

	// forecast pages cover 24 hours each; a 240h horizon never needs more
	maxForecastPages = 11
)

func NewService(cfg ServiceConfig, log *zap.Logger) *Service {
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = DefaultGeocodeURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		client:      &http.Client{Timeout: cfg.Timeout},
		log:         log.Named("weather"),
		apiKey:      cfg.APIKey,
		geocodeURL:  cfg.GeocodeURL,
		forecastURL: cfg.ForecastURL,
		now:         time.Now,
	}
}

func (s *Service) Assess(
	ctx context.Context, slotID, location string,
) (*Report, error) {
	target, err := time.ParseInLocation(slotIDLayout, slotID, time.Local)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid slot id %q", slotID)
	}

	until := target.Sub(s.now())
	if until < 0 || until > forecastHorizon {
		return nil, ErrForecastHorizon
	}

	lat, lng, err := s.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	hour, err := s.findForecastHour(ctx, lat, lng, target)
	if err != nil {
		return nil, err
	}

	meets, justification := Evaluate(hour)
	s.log.Info("assessed flight conditions",
		zap.String("slot_id", slotID),
		zap.String("location", location),
		zap.Bool("meets_requirements", meets))

	return &Report{
		SlotID:            slotID,
		MeetsRequirements: meets,
		Justification:     justification,
	}, nil
}

func (s *Service) geocode(
	ctx context.Context, location string,
) (float64, float64, error) {
	query := url.Values{}
	query.Set("address", location)
	query.Set("key", s.apiKey)

	var resp geocodeResponse
	if err := s.getJSON(ctx, s.geocodeURL, query, &resp); err != nil {
		return 0, 0, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return 0, 0, errors.Wrapf(ErrLocationNotFound, "%q", location)
	default:
		return 0, 0, errors.Newf(
			"geocoding failed with status %s", resp.Status)
	}
	if len(resp.Results) == 0 {
		return 0, 0, errors.Wrapf(ErrLocationNotFound, "%q", location)
	}

	loc := resp.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

// findForecastHour pages through the hourly forecast until it reaches the
// hour whose interval covers the target time
func (s *Service) findForecastHour(
	ctx context.Context, lat, lng float64, target time.Time,
) (*ForecastHour, error) {
	pageToken := ""

	for page := 0; page < maxForecastPages; page++ {
		query := url.Values{}
		query.Set("location.latitude", fmt.Sprintf("%f", lat))
		query.Set("location.longitude", fmt.Sprintf("%f", lng))
		query.Set("key", s.apiKey)
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var resp forecastResponse
		if err := s.getJSON(ctx, s.forecastURL, query, &resp); err != nil {
			return nil, err
		}

		for i := range resp.ForecastHours {
			hour := &resp.ForecastHours[i]
			if !target.Before(hour.Interval.StartTime) &&
				target.Before(hour.Interval.EndTime) {
				return hour, nil
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return nil, ErrForecastHorizon
}

func (s *Service) getJSON(
	ctx context.Context, baseURL string, query url.Values, target any,
) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, baseURL+"?"+query.Encode(), nil,
	)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(
			"request to %s failed with status %d: %s",
			baseURL, resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, target)
}
