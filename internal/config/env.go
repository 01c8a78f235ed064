// Package config loads runtime configuration from the environment and from
// YAML or CUE config files, and turns it into the config command a Log
// understands.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/storage/pebble"
	"github.com/roach88/measure/internal/storage/redis"
	"github.com/roach88/measure/internal/storage/sqlite"
)

// Env holds the MEASURE_* environment settings.
type Env struct {
	Storage   string `env:"MEASURE_STORAGE" envDefault:"memory"`
	DB        string `env:"MEASURE_DB" envDefault:"measure.db"`
	PebbleDir string `env:"MEASURE_PEBBLE_DIR" envDefault:"measure.pebble"`
	RedisURL  string `env:"MEASURE_REDIS_URL" envDefault:"localhost:6379"`
	LogLevel  string `env:"MEASURE_LOG_LEVEL" envDefault:"info"`
	Processor string `env:"MEASURE_PROCESSOR" envDefault:"recorder"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Level maps LogLevel onto a slog level.
func (e Env) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(e.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("MEASURE_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// StorageOptions returns the location options for storage name that the
// environment provides.
func (e Env) StorageOptions(name string) measure.Options {
	switch name {
	case sqlite.Name:
		return measure.Options{sqlite.PathOption: e.DB}
	case pebble.Name:
		return measure.Options{pebble.DirOption: e.PebbleDir}
	case redis.Name:
		return measure.Options{redis.URLOption: e.RedisURL}
	default:
		return measure.Options{}
	}
}

// File returns the configuration the environment alone describes.
func (e Env) File() File {
	return File{
		Processor: Component{Name: e.Processor},
		Storage:   Component{Name: e.Storage, Options: e.StorageOptions(e.Storage)},
	}
}
