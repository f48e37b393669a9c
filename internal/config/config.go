// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types, and validates that required
// values are present so the service fails fast on bad or missing config.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values (DATABASE_URL above all).
//   - Provide sane defaults for everything else.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before any of the providers below read it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix scopes every optional setting, e.g. POSTBOARD_SERVER__PORT.
	EnvPrefix = "POSTBOARD_"

	// DatabaseURLEnv is the one setting the service cannot start without.
	DatabaseURLEnv = "DATABASE_URL"

	// ServiceName tags logs, traces and metrics.
	ServiceName = "postboard"

	// nestingSeparator splits env keys into koanf key paths. A double
	// underscore is used because single underscores appear inside key
	// names (read_timeout, max_conns).
	nestingSeparator = "__"
)

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from.
// The `validate:"..."` tags are enforced by go-playground/validator.
//
// Observability is a pointer because it is optional at the env level;
// defaults are filled in before env values are merged on top.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are whole seconds.
type ServerConfig struct {
	Host               string   `koanf:"host" validate:"required"`
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"` // "*" when unset

	// BodyLimit caps request bodies, echo size notation ("1M", "512K").
	BodyLimit string `koanf:"body_limit" validate:"required"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
	RateBurst int     `koanf:"rate_burst" validate:"min=0"`

	// ErrorBodies makes the error handler write the structured error JSON
	// instead of a bare status code.
	ErrorBodies bool `koanf:"error_bodies"`
}

// DatabaseConfig contains the PostgreSQL connection URL and pool tuning.
// Durations are parsed from strings like "30m" or "5s".
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int32         `koanf:"max_conns" validate:"min=1"`
	MinConns        int32         `koanf:"min_conns" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`

	// Migrate runs the embedded schema migrations at startup.
	Migrate bool `koanf:"migrate"`
}

// Default returns the configuration used for every key the environment
// does not set.
func Default() *Config {
	return &Config{
		Primary: Primary{
			Env: "development",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "6969",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
			BodyLimit:    "1M",
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        0,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			Migrate:         true,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// envKey maps a POSTBOARD_* variable name to a koanf key path.
//
//	POSTBOARD_SERVER__PORT                         -> server.port
//	POSTBOARD_OBSERVABILITY__LOGGING__LEVEL        -> observability.logging.level
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, nestingSeparator, ".")
}

// listKeys are settings given as comma-separated env values.
var listKeys = map[string]bool{
	"server.cors_allowed_origins": true,
}

// envValue maps a POSTBOARD_* variable to its key path and value, splitting
// list settings on commas.
//
//	POSTBOARD_SERVER__CORS_ALLOWED_ORIGINS=https://a.example, https://b.example
//	    -> server.cors_allowed_origins = [https://a.example https://b.example]
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// LoadConfig loads configuration from environment variables on top of
// Default(), validates it and returns the result.
//
// Behavior summary:
//   - DATABASE_URL maps to database.url
//   - POSTBOARD_* variables map to nested keys via "__"
//   - list settings (CORS origins) are comma-separated
//   - Unmarshal merges onto defaults, so partial blocks are fine
//   - Struct tags are validated, then observability rules
//   - Observability service name and environment are forced
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(DatabaseURLEnv, ".", func(s string) string {
		// The provider matches by prefix; anything longer is not ours.
		if s != DatabaseURLEnv {
			return ""
		}
		return "database.url"
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", DatabaseURLEnv, err)
	}

	// Loaded second so POSTBOARD_DATABASE__URL wins over DATABASE_URL.
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("could not load %s env variables: %w", EnvPrefix, err)
	}

	mainConfig := Default()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Applied after unmarshal: a default slice would be merged element-wise.
	if len(mainConfig.Server.CORSAllowedOrigins) == 0 {
		mainConfig.Server.CORSAllowedOrigins = []string{"*"}
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
