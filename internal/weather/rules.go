package weather

import (
	"fmt"
	"strings"
	"time"
)

type (
	// ForecastHour is one hour of the provider's forecast response, trimmed
	// to the fields the safe-flying rules consume
	ForecastHour struct {
		Interval struct {
			StartTime time.Time `json:"startTime"`
			EndTime   time.Time `json:"endTime"`
		} `json:"interval"`
		Temperature struct {
			Unit    string  `json:"unit"`
			Degrees float64 `json:"degrees"`
		} `json:"temperature"`
		Wind struct {
			Speed struct {
				Unit  string  `json:"unit"`
				Value float64 `json:"value"`
			} `json:"speed"`
			Gust struct {
				Unit  string  `json:"unit"`
				Value float64 `json:"value"`
			} `json:"gust"`
		} `json:"wind"`
		Visibility struct {
			Unit     string  `json:"unit"`
			Distance float64 `json:"distance"`
		} `json:"visibility"`
		IsDaytime               bool `json:"isDaytime"`
		ThunderstormProbability int  `json:"thunderstormProbability"`
	}
)

// Safe flying limits
const (
	MinTemperature  = 0.0  // °C
	MaxWindSpeed    = 30.0 // km/h
	MaxWindGust     = 45.0 // km/h
	MinVisibility   = 10.0 // km
	MaxThunderstorm = 30   // %
)

// Evaluate applies the safe-flying rules to one forecast hour and returns
// the verdict with a justification listing every violated rule
func Evaluate(hour *ForecastHour) (bool, string) {
	var violations []string

	if hour.Temperature.Degrees <= MinTemperature {
		violations = append(violations, fmt.Sprintf(
			"temperature %.1f°C is at or below freezing",
			hour.Temperature.Degrees))
	}
	if hour.Wind.Speed.Value >= MaxWindSpeed {
		violations = append(violations, fmt.Sprintf(
			"wind speed %.1f km/h is at or above the %.0f km/h limit",
			hour.Wind.Speed.Value, MaxWindSpeed))
	}
	if hour.Wind.Gust.Value >= MaxWindGust {
		violations = append(violations, fmt.Sprintf(
			"wind gusts of %.1f km/h are at or above the %.0f km/h limit",
			hour.Wind.Gust.Value, MaxWindGust))
	}
	if hour.Visibility.Distance <= MinVisibility {
		violations = append(violations, fmt.Sprintf(
			"visibility %.1f km is at or below the %.0f km minimum",
			hour.Visibility.Distance, MinVisibility))
	}
	if !hour.IsDaytime {
		violations = append(violations,
			"the slot falls outside daylight hours")
	}
	if hour.ThunderstormProbability >= MaxThunderstorm {
		violations = append(violations, fmt.Sprintf(
			"thunderstorm probability %d%% is at or above %d%%",
			hour.ThunderstormProbability, MaxThunderstorm))
	}

	if len(violations) > 0 {
		return false, "unsafe flying conditions: " +
			strings.Join(violations, "; ")
	}

	return true, fmt.Sprintf(
		"conditions within safe flying limits: %.1f°C, wind %.1f km/h "+
			"gusting %.1f km/h, visibility %.1f km, thunderstorm "+
			"probability %d%%, daytime",
		hour.Temperature.Degrees, hour.Wind.Speed.Value,
		hour.Wind.Gust.Value, hour.Visibility.Distance,
		hour.ThunderstormProbability)
}
