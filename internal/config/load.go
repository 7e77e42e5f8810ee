package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TASKENGINE_ENGINE_MAX_CONCURRENT_WORKERS.
const EnvPrefix = "TASKENGINE"

// Load configuration from environment variables and optionally a
// taskengine.yaml file in the working directory or /etc/taskengine.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. An empty path searches
// the default locations; a missing file there is not an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskengine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/taskengine")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	switch cfg.Notifier.Sink {
	case "amqp":
		if cfg.Notifier.AMQPURL == "" {
			return fmt.Errorf("config validation failed: notifier.amqp_url is required when notifier.sink is amqp")
		}
	case "outbox":
		if cfg.Database.URL == "" {
			return fmt.Errorf("config validation failed: database.url is required when notifier.sink is outbox")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("engine.max_concurrent_workers", 1)
	v.SetDefault("engine.channel_capacity", 0)
	v.SetDefault("engine.channel_full_mode", "wait")
	v.SetDefault("engine.use_global_stopping_token", false)
	v.SetDefault("engine.enable_detailed_logging", false)
	v.SetDefault("engine.drain_timeout", 30*time.Second)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("notifier.sink", "log")
	v.SetDefault("notifier.exchange", "taskengine.events")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "taskengine")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "taskengine")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// bindEnv registers keys without defaults so AutomaticEnv sees them during
// Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"auth.jwt_secret",
		"notifier.amqp_url",
		"database.url",
	} {
		_ = v.BindEnv(key)
	}
}
