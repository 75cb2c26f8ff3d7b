// Package config loads runtime settings from .env, the environment and
// command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned when no database URL is configured.
var ErrMissingDatabaseURL = errors.New("database url not configured: set DB_URL or pass --database")

const (
	EnvDatabaseURL = "DB_URL"
	EnvTriePath    = "LINKEXTRACTOR_TRIE_PATH"
	EnvLogMode     = "LINKEXTRACTOR_LOG_MODE"
	EnvGrammar     = "LINKEXTRACTOR_GRAMMAR"

	DefaultTriePath = "aliases.trie"
	DefaultLogMode  = "dev"
)

type Config struct {
	DatabaseURL string
	TriePath    string
	LogMode     string
	GrammarPath string
	Verbose     bool
}

// Overrides are values supplied on the command line. Empty strings
// leave the environment value in place.
type Overrides struct {
	DatabaseURL string
	TriePath    string
	GrammarPath string
	Verbose     bool
}

// Load reads .env files (missing files are ignored), then the process
// environment, then applies overrides.
func Load(o Overrides, envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		DatabaseURL: firstNonEmpty(o.DatabaseURL, env(EnvDatabaseURL)),
		TriePath:    firstNonEmpty(o.TriePath, env(EnvTriePath), DefaultTriePath),
		LogMode:     firstNonEmpty(env(EnvLogMode), DefaultLogMode),
		GrammarPath: firstNonEmpty(o.GrammarPath, env(EnvGrammar)),
		Verbose:     o.Verbose,
	}
	switch strings.ToLower(cfg.LogMode) {
	case "dev", "development", "prod", "production":
	default:
		return nil, fmt.Errorf("%s: unknown log mode %q", EnvLogMode, cfg.LogMode)
	}
	return cfg, nil
}

// RequireDatabase returns ErrMissingDatabaseURL when no URL is set.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
