package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	WebService WebServiceConfig `mapstructure:"webservice"`
	Log        LogConfig        `mapstructure:"log"`
	Session    SessionConfig    `mapstructure:"session"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	JWTSecret  string           `mapstructure:"jwt_secret"` // empty: token claims are read unverified
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

type WebServiceConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	TimeoutMs int    `mapstructure:"timeout_ms" validate:"min=0"`
	ClientID  string `mapstructure:"client_id"`
}

// Timeout returns the per-call timeout for web service requests.
func (w WebServiceConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type SessionConfig struct {
	ExpirationMinutes int    `mapstructure:"expiration_minutes" validate:"min=1"`
	CookieName        string `mapstructure:"cookie_name" validate:"required"`
}

// Expiration returns how long an idle session is kept.
func (s SessionConfig) Expiration() time.Duration {
	return time.Duration(s.ExpirationMinutes) * time.Minute
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads app.yaml from the working directory (or the repository root)
// and applies environment overrides such as WEBSERVICE_BASE_URL.
func Load() (*Config, error) {
	return LoadFrom(".", "../..")
}

// LoadFrom is Load with explicit config search paths. A missing config file
// is not an error; defaults and environment still apply.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("webservice.base_url", "http://localhost:5000")
	v.SetDefault("webservice.timeout_ms", 10000)
	v.SetDefault("webservice.client_id", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("session.expiration_minutes", 120)
	v.SetDefault("session.cookie_name", "bbsite_session")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("jwt_secret", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
