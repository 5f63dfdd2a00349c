package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "CYCLEINSIGHT"
	configFileEnv = "CYCLEINSIGHT_CONFIG"
)

// Load reads configuration from an optional YAML file named by
// CYCLEINSIGHT_CONFIG and from CYCLEINSIGHT_* environment variables.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(configFileEnv))
}

// LoadFile is Load with an explicit config file path. An empty path skips the
// file and uses defaults plus environment only.
func LoadFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"server.port", "CYCLEINSIGHT_SERVER_PORT"},
		{"server.log_level", "CYCLEINSIGHT_SERVER_LOG_LEVEL"},
		{"server.timezone", "CYCLEINSIGHT_SERVER_TIMEZONE"},
		{"database.driver", "CYCLEINSIGHT_DATABASE_DRIVER"},
		{"database.path", "CYCLEINSIGHT_DATABASE_PATH"},
		{"database.dsn", "CYCLEINSIGHT_DATABASE_DSN"},
		{"tracking.default_cycle_length", "CYCLEINSIGHT_TRACKING_DEFAULT_CYCLE_LENGTH"},
		{"tracking.on_invalid_flow", "CYCLEINSIGHT_TRACKING_ON_INVALID_FLOW"},
		{"refresher.enabled", "CYCLEINSIGHT_REFRESHER_ENABLED"},
		{"refresher.interval", "CYCLEINSIGHT_REFRESHER_INTERVAL"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("bind environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Server.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Server.LogLevel))
	cfg.Tracking.OnInvalidFlow = strings.ToLower(strings.TrimSpace(cfg.Tracking.OnInvalidFlow))

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/cycleinsight.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("tracking.default_cycle_length", 28)
	v.SetDefault("tracking.on_invalid_flow", FlowPolicyReject)
	v.SetDefault("query.rate_per_minute", 30)
	v.SetDefault("query.burst", 10)
	v.SetDefault("refresher.enabled", false)
	v.SetDefault("refresher.interval", 6*time.Hour)
}

// Location resolves the configured timezone, falling back to UTC.
func (cfg ServerConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(cfg.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return location, nil
}
