package weather_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flightslot/internal/weather"
)

func safeHour() *weather.ForecastHour {
	hour := &weather.ForecastHour{}
	hour.Temperature.Degrees = 18.0
	hour.Wind.Speed.Value = 12.0
	hour.Wind.Gust.Value = 20.0
	hour.Visibility.Distance = 16.0
	hour.IsDaytime = true
	hour.ThunderstormProbability = 5
	return hour
}

func TestEvaluateSafeConditions(t *testing.T) {
	meets, justification := weather.Evaluate(safeHour())
	assert.True(t, meets)
	assert.Contains(t, justification, "within safe flying limits")
	assert.Contains(t, justification, "18.0°C")
}

func TestEvaluateFreezing(t *testing.T) {
	hour := safeHour()
	hour.Temperature.Degrees = -2.0

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	assert.Contains(t, justification, "unsafe flying conditions")
	assert.Contains(t, justification, "below freezing")
}

func TestEvaluateWind(t *testing.T) {
	hour := safeHour()
	hour.Wind.Speed.Value = 38.0

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	assert.Contains(t, justification, "wind speed 38.0 km/h")
}

func TestEvaluateGusts(t *testing.T) {
	hour := safeHour()
	hour.Wind.Gust.Value = 50.0

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	assert.Contains(t, justification, "gusts of 50.0 km/h")
}

func TestEvaluateVisibility(t *testing.T) {
	hour := safeHour()
	hour.Visibility.Distance = 4.0

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	assert.Contains(t, justification, "visibility 4.0 km")
}

func TestEvaluateNighttime(t *testing.T) {
	hour := safeHour()
	hour.IsDaytime = false

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	assert.Contains(t, justification, "outside daylight hours")
}

func TestEvaluateThunderstorm(t *testing.T) {
	hour := safeHour()
	hour.ThunderstormProbability = 60

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	assert.Contains(t, justification, "thunderstorm probability 60%")
}

func TestEvaluateCollectsEveryViolation(t *testing.T) {
	hour := &weather.ForecastHour{}
	hour.Temperature.Degrees = -5.0
	hour.Wind.Speed.Value = 40.0
	hour.Wind.Gust.Value = 60.0
	hour.Visibility.Distance = 1.0
	hour.IsDaytime = false
	hour.ThunderstormProbability = 80

	meets, justification := weather.Evaluate(hour)
	assert.False(t, meets)
	for _, fragment := range []string{
		"freezing", "wind speed", "gusts", "visibility",
		"daylight", "thunderstorm",
	} {
		assert.Contains(t, justification, fragment)
	}
}

func TestEvaluateBoundaries(t *testing.T) {
	// Limits are exclusive: a value exactly at a limit fails
	hour := safeHour()
	hour.Wind.Speed.Value = weather.MaxWindSpeed
	meets, _ := weather.Evaluate(hour)
	assert.False(t, meets)

	hour = safeHour()
	hour.Temperature.Degrees = weather.MinTemperature
	meets, _ = weather.Evaluate(hour)
	assert.False(t, meets)

	hour = safeHour()
	hour.Visibility.Distance = weather.MinVisibility
	meets, _ = weather.Evaluate(hour)
	assert.False(t, meets)
}
