package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-dashboard/internal/remote"
)

const appName = "weather-dashboard"

type AppConfig struct {
	APIBaseURL string `validate:"required,url"`

	// HTTPTimeout bounds each attempt. Zero leaves it to the server.
	HTTPTimeout  time.Duration `validate:"min=0"`
	Backoff      remote.BackoffConfig
	RateLimit    float64 `validate:"min=0"`
	RateBurst    int     `validate:"min=0"`
	SessionStore string  `validate:"oneof=sqlite memory"`
	// SessionDBPath is only used by the sqlite session store.
	SessionDBPath string `validate:"required_if=SessionStore sqlite"`

	ChartDays int `validate:"min=1"`
	// RefreshInterval re-issues every dashboard read. Zero disables it.
	RefreshInterval time.Duration `validate:"min=0"`

	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `validate:"oneof=text json"`
}

// Remote returns the API client settings.
func (c *AppConfig) Remote() remote.Config {
	return remote.Config{
		BaseURL:   c.APIBaseURL,
		Timeout:   c.HTTPTimeout,
		Backoff:   c.Backoff,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
	}
}

var defaults = map[string]any{
	"API_BASE_URL":         "http://127.0.0.1:8080",
	"HTTP_TIMEOUT":         "0s",
	"HTTP_MAX_RETRIES":     2,
	"HTTP_BACKOFF_INITIAL": "500ms",
	"HTTP_BACKOFF_MAX":     "5s",
	"HTTP_RATE_LIMIT":      20.0,
	"HTTP_RATE_BURST":      40,
	"SESSION_STORE":        "sqlite",
	"CHART_DAYS":           7,
	"REFRESH_INTERVAL":     "0s",
	"PORT":                 "8090",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
}

// Load reads configuration from the environment, after a .env file in the
// working directory if there is one.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("config: no .env file loaded: %v", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("SESSION_DB_PATH")
	return v
}

// FromViper builds and validates an AppConfig from v.
func FromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		APIBaseURL:    v.GetString("API_BASE_URL"),
		SessionStore:  v.GetString("SESSION_STORE"),
		SessionDBPath: v.GetString("SESSION_DB_PATH"),
		Port:          v.GetString("PORT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
	}

	var err error
	if cfg.HTTPTimeout, err = duration(v, "HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Backoff.InitialInterval, err = duration(v, "HTTP_BACKOFF_INITIAL"); err != nil {
		return nil, err
	}
	if cfg.Backoff.MaxInterval, err = duration(v, "HTTP_BACKOFF_MAX"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = duration(v, "REFRESH_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.Backoff.MaxRetries, err = integer(v, "HTTP_MAX_RETRIES"); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = integer(v, "HTTP_RATE_BURST"); err != nil {
		return nil, err
	}
	if cfg.ChartDays, err = integer(v, "CHART_DAYS"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = cast.ToFloat64E(v.Get("HTTP_RATE_LIMIT")); err != nil {
		return nil, fmt.Errorf("invalid HTTP_RATE_LIMIT: %w", err)
	}

	if cfg.SessionStore == "sqlite" && cfg.SessionDBPath == "" {
		cfg.SessionDBPath = defaultDBPath()
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Backoff.MaxRetries < 0 {
		return nil, fmt.Errorf("invalid HTTP_MAX_RETRIES: must not be negative")
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func integer(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// defaultDBPath follows the XDG base directory layout.
func defaultDBPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appName, "session.db")
}
