// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Location is geocoded once per booking request to anchor the
	// forecast lookup
	Location      string `envconfig:"LOCATION" default:"Hamilton, Victoria, Australia"`
	WeatherAPIKey string `envconfig:"WEATHER_API_KEY"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	EventPrefix   string `envconfig:"EVENT_PREFIX" default:"flightslot"`
	ViewPrefix    string `envconfig:"VIEW_PREFIX" default:"flightslot-view"`

	// ColdStore selects the offload sink: "bolt", "postgres", or "none"
	ColdStore   string `envconfig:"COLD_STORE" default:"bolt"`
	BoltPath    string `envconfig:"BOLT_PATH" default:"flightslot-cold.db"`
	PostgresURL string `envconfig:"POSTGRES_URL"`

	SweepRetention time.Duration `envconfig:"SWEEP_RETENTION" default:"168h"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

// Load reads .env if present, then the process environment. Variables are
// prefixed FLIGHTSLOT_, e.g. FLIGHTSLOT_REDIS_ADDR
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("flightslot", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
