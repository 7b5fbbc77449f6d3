package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Queue  QueueConfig  `mapstructure:"queue"  validate:"required"`
	Poll   PollConfig   `mapstructure:"poll"   validate:"required"`
	Cache  CacheConfig  `mapstructure:"cache"  validate:"required"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	// LogLevel controls the structured logger.
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// DebugPort is the local port for the diagnostics endpoints.
	// Zero disables the diagnostics server.
	DebugPort int `mapstructure:"debug_port" validate:"gte=0,lt=65536"`
}

// QueueConfig contains the outbound send queue settings.
type QueueConfig struct {
	// SendCapacity bounds pending plus in-flight send items. Once the
	// bound is reached new sends are refused until the queue drains.
	SendCapacity int `mapstructure:"send_capacity" validate:"required,gt=0,lte=1000"`
}

// PollConfig contains the cadence settings for the polling loop and the
// background message poll.
type PollConfig struct {
	// FrameInterval is how often the harness frame loop ticks.
	FrameInterval time.Duration `mapstructure:"frame_interval" validate:"required,gt=0"`

	// MessageInterval is how often a message poll is started when the
	// poll slot is free.
	MessageInterval time.Duration `mapstructure:"message_interval" validate:"required,gt=0"`
}

// CacheConfig contains name-resolution cache settings.
type CacheConfig struct {
	// NameMaxBytes is the maximum total size of cached display names.
	NameMaxBytes int64 `mapstructure:"name_max_bytes" validate:"required,gt=0"`

	// NameTTL bounds how long a resolved name is trusted.
	NameTTL time.Duration `mapstructure:"name_ttl" validate:"required,gt=0"`
}
