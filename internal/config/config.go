package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "WAGEMAP"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "openwagemap.db"
	defaultLogLevel     = "info"
	defaultTokenTTLMin  = 24 * 60

	defaultMinLocationSample = 5
	defaultApproveThreshold  = 200
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	RedisAddress  string
	LogLevel      string
	SigningSecret string
	TokenTTLMin   int

	// MinLocationSample is the location population size below which outlier
	// scoring falls back to the organization population.
	MinLocationSample int
	// ApproveThreshold is the robust z cutoff, in hundredths, separating
	// auto-approved submissions from pending ones.
	ApproveThreshold int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMin)
	configViper.SetDefault("scoring.min_location_sample", defaultMinLocationSample)
	configViper.SetDefault("scoring.approve_threshold", defaultApproveThreshold)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		RedisAddress:      configViper.GetString("redis.address"),
		LogLevel:          configViper.GetString("log.level"),
		SigningSecret:     configViper.GetString("auth.signing_secret"),
		TokenTTLMin:       configViper.GetInt("token.ttl_minutes"),
		MinLocationSample: configViper.GetInt("scoring.min_location_sample"),
		ApproveThreshold:  configViper.GetInt("scoring.approve_threshold"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.MinLocationSample < 1 {
		return fmt.Errorf("scoring.min_location_sample must be at least 1")
	}
	if c.ApproveThreshold < 1 {
		return fmt.Errorf("scoring.approve_threshold must be positive")
	}
	return nil
}
