// Package config loads server configuration from the environment.
//
// A local .env file is applied first when present (development convenience,
// via godotenv), then envconfig populates the struct from FLYO_* variables.
// Missing variables fall back to the struct tag defaults, so a bare
// `go run ./cmd/server` works out of the box.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "flyo"

// Config is the full server configuration.
//
//	FLYO_PORT              HTTP listen port
//	FLYO_DB_PATH           SQLite database file (":memory:" for ephemeral)
//	FLYO_RENDER_CACHE_TTL  max age of a cached composed document
//	FLYO_LOG_LEVEL         debug | info | warn | error
type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	DBPath         string        `envconfig:"DB_PATH" default:"data/flyo.db"`
	RenderCacheTTL time.Duration `envconfig:"RENDER_CACHE_TTL" default:"5m"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if any) and the environment. A malformed variable is a
// startup error, not a silent default.
func Load() (Config, error) {
	// Ignore a missing .env; it's optional. Only a parse failure matters,
	// and godotenv returns os.ErrNotExist-wrapped errors for absence.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
