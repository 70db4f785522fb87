package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config captures all runtime configuration. Every field maps to the
// upper-cased environment variable of its koanf tag.
type Config struct {
	Port          string `koanf:"port"`
	DBURL         string `koanf:"db_url"`
	DBAutoMigrate bool   `koanf:"db_auto_migrate"`

	ReadTimeoutSecs  int `koanf:"server_read_timeout"`
	WriteTimeoutSecs int `koanf:"server_write_timeout"`
	IdleTimeoutSecs  int `koanf:"server_idle_timeout"`

	DBMaxConns        int `koanf:"db_max_conns"`
	DBMinConns        int `koanf:"db_min_conns"`
	DBMaxIdleSecs     int `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs     int `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs int `koanf:"db_conn_timeout_secs"`
	DBStatementCache  int `koanf:"db_statement_cache_capacity"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	PasswordHashIterations int `koanf:"password_hash_iterations"`
	SaltLength             int `koanf:"salt_length"`

	RateLimitRequests   int      `koanf:"rate_limit_requests"`
	RateLimitWindowSecs int      `koanf:"rate_limit_window_secs"`
	CORSOrigins         []string `koanf:"cors_origins"`

	MetadataURL         string `koanf:"metadata_url"`
	MetadataAPIKey      string `koanf:"metadata_api_key"`
	MetadataTimeoutSecs int    `koanf:"metadata_timeout_secs"`
}

func defaults() Config {
	return Config{
		Port:                   "8080",
		DBAutoMigrate:          true,
		ReadTimeoutSecs:        15,
		WriteTimeoutSecs:       15,
		IdleTimeoutSecs:        60,
		DBMaxConns:             20,
		DBMinConns:             2,
		DBMaxIdleSecs:          300,
		DBMaxLifeSecs:          3600,
		DBConnTimeoutSecs:      10,
		DBStatementCache:       256,
		LogLevel:               "info",
		LogFormat:              "json",
		PasswordHashIterations: 10_000,
		SaltLength:             10,
		RateLimitRequests:      100,
		RateLimitWindowSecs:    60,
		MetadataTimeoutSecs:    5,
	}
}

// Load reads configuration from an optional .env file and the environment,
// applying defaults and validation. Variables already set in the process
// environment take precedence over the file.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	// Empty variables are treated as unset.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting by its environment variable name.
func (c Config) Validate() error {
	switch {
	case c.DBURL == "":
		return fmt.Errorf("DB_URL is required")
	case c.Port == "":
		return fmt.Errorf("PORT is required")
	case c.DBMaxConns <= 0:
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	case c.DBMinConns < 0:
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	case c.DBMinConns > c.DBMaxConns:
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	case c.DBStatementCache < 0:
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	case c.PasswordHashIterations <= 0:
		return fmt.Errorf("PASSWORD_HASH_ITERATIONS must be positive")
	case c.SaltLength <= 0:
		return fmt.Errorf("SALT_LENGTH must be positive")
	case c.RateLimitRequests < 0:
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be non-negative")
	case c.RateLimitRequests > 0 && c.RateLimitWindowSecs <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECS must be positive")
	case c.MetadataTimeoutSecs <= 0:
		return fmt.Errorf("METADATA_TIMEOUT_SECS must be positive")
	case c.LogFormat != "json" && c.LogFormat != "console":
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// splitList trims entries of a comma-separated list and drops empty ones.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
