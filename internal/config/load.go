package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over values from
// the config file, which takes precedence over defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults mirror the behavior of the original client: a send queue
	// of 20 and a UI-paced frame loop.
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.debug_port", 0)
	v.SetDefault("queue.send_capacity", 20)
	v.SetDefault("poll.frame_interval", "16ms")
	v.SetDefault("poll.message_interval", "2s")
	v.SetDefault("cache.name_max_bytes", 1<<20)
	v.SetDefault("cache.name_ttl", "10m")

	// Optional config file: ./finch.yaml or $HOME/.config/finch/finch.yaml.
	v.SetConfigName("finch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/finch")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults and env apply.
	}

	// Environment variables: FINCH_SERVER_LOG_LEVEL, FINCH_QUEUE_SEND_CAPACITY, ...
	v.SetEnvPrefix("FINCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks the loaded configuration against the struct tags.
func validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
