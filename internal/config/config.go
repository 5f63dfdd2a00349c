package config

import "time"

const (
	FlowPolicyReject        = "reject"
	FlowPolicyClampToMedium = "clamp_to_medium"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Tracking  TrackingConfig  `mapstructure:"tracking" validate:"required"`
	Query     QueryConfig     `mapstructure:"query" validate:"required"`
	Refresher RefresherConfig `mapstructure:"refresher"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// DatabaseConfig selects the period store backend. Path is used by sqlite,
// DSN by postgres.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	Path   string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
}

type TrackingConfig struct {
	DefaultCycleLength int    `mapstructure:"default_cycle_length" validate:"required,gte=15,lte=90"`
	OnInvalidFlow      string `mapstructure:"on_invalid_flow" validate:"required,oneof=reject clamp_to_medium"`
}

type QueryConfig struct {
	RatePerMinute int `mapstructure:"rate_per_minute" validate:"required,gt=0"`
	Burst         int `mapstructure:"burst" validate:"required,gt=0"`
}

type RefresherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"required_if=Enabled true"`
}
