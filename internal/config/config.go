package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMongoURIRequired  = errors.New("MONGODB_URI is not defined")
	ErrJWTSecretRequired = errors.New("JWT_SECRET is not defined")
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort string `mapstructure:"PORT"`

	// Record store
	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	// List cache; empty address disables it
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	// Bearer credential verification
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// OpenTelemetry settings
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
	Environment  string `mapstructure:"ENVIRONMENT"`
}

var defaults = map[string]any{
	"PORT":                        "5000",
	"MONGODB_URI":                 "",
	"MONGODB_DATABASE":            "taskwall",
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"CACHE_TTL":                   "30s",
	"JWT_SECRET":                  "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"OTEL_SERVICE_NAME":           "taskwall",
	"ENVIRONMENT":                 "development",
}

// Load reads configuration from the environment, falling back to a .env file
// in dir when present. Environment variables take precedence over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, ErrMongoURIRequired)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrJWTSecretRequired)
	}
	return errors.Join(errs...)
}
