// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs, parsed from environment
// variables (a local .env file is honored when present).
type Config struct {
	Addr      string        `env:"ADDR" envDefault:":8080"`
	DBPath    string        `env:"DB_PATH" envDefault:"./data/lunchpool.db"`
	LogLevel  string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// CORSOrigins limits browser origins; "*" during development.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*"`

	// MinDeadlineLead is the minimum distance of a new group's deadline
	// from now.
	MinDeadlineLead time.Duration `env:"MIN_DEADLINE_LEAD" envDefault:"5m"`

	// LockAfterSubmit rejects mutations on submitted groups.
	LockAfterSubmit bool `env:"LOCK_AFTER_SUBMIT" envDefault:"false"`

	// PruneDishesOnLeave drops a member's saved selections when they leave.
	PruneDishesOnLeave bool `env:"PRUNE_DISHES_ON_LEAVE" envDefault:"false"`
}

// Load reads .env (if any) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
