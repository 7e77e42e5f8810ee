package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Notifier NotifierConfig `mapstructure:"notifier" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	// ShutdownTimeout bounds HTTP server shutdown; the engine drain has its own timeout.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// EngineConfig contains the background task engine settings.
type EngineConfig struct {
	MaxConcurrentWorkers   int           `mapstructure:"max_concurrent_workers" validate:"gte=1"`
	ChannelCapacity        int           `mapstructure:"channel_capacity" validate:"gte=0"`
	ChannelFullMode        string        `mapstructure:"channel_full_mode" validate:"omitempty,oneof=wait drop_oldest throw_exception"`
	UseGlobalStoppingToken bool          `mapstructure:"use_global_stopping_token"`
	EnableDetailedLogging  bool          `mapstructure:"enable_detailed_logging"`
	DrainTimeout           time.Duration `mapstructure:"drain_timeout" validate:"gt=0"`
}

// AuthConfig contains the settings for admin API tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
}

// NotifierConfig selects where completion events go.
type NotifierConfig struct {
	// Sink is one of "log" (in-process only), "amqp" or "outbox".
	Sink     string `mapstructure:"sink" validate:"required,oneof=log amqp outbox"`
	AMQPURL  string `mapstructure:"amqp_url" validate:"omitempty,url"`
	Exchange string `mapstructure:"exchange" validate:"required_if=Sink amqp"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace" validate:"required_if=Enabled true"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name" validate:"required_if=Enabled true"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}
