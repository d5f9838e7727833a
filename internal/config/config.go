package config

import (
	"time"

	"github.com/vovakirdan/chatrelay/internal/core"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`

	RateLimitWindow      time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window" validate:"gt=0"`
	RateLimitMaxMessages int           `mapstructure:"rate_limit_max_messages" yaml:"rate_limit_max_messages" validate:"gt=0"`
	MaxMessageLength     int           `mapstructure:"max_message_length" yaml:"max_message_length" validate:"gt=0"`
	MaxUsernameLength    int           `mapstructure:"max_username_length" yaml:"max_username_length" validate:"gt=0"`
	MaxRoomNameLength    int           `mapstructure:"max_room_name_length" yaml:"max_room_name_length" validate:"gt=0"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval" validate:"gt=0"`
	SendQueueSize        int           `mapstructure:"send_queue_size" yaml:"send_queue_size" validate:"gt=0"`
	MaxFrameBytes        int64         `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes" validate:"gt=0"`

	AuthEnabled bool          `mapstructure:"auth_enabled" yaml:"auth_enabled"`
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required_if=AuthEnabled true"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl" validate:"gte=0"`

	CensoredWords []string `mapstructure:"censored_words" yaml:"censored_words"`
	CensorChar    string   `mapstructure:"censor_char" yaml:"censor_char" validate:"len=1"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	chat := core.DefaultSettings()
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		WriteTimeout:      10 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",

		RateLimitWindow:      chat.RateLimitWindow,
		RateLimitMaxMessages: chat.RateLimitMaxMessages,
		MaxMessageLength:     chat.MaxMessageLength,
		MaxUsernameLength:    chat.MaxUsernameLength,
		MaxRoomNameLength:    chat.MaxRoomNameLength,
		HeartbeatInterval:    chat.HeartbeatInterval,
		SendQueueSize:        chat.SendQueueSize,
		MaxFrameBytes:        64 << 10,

		JWTIssuer: "chatrelay",
		JWTTTL:    24 * time.Hour,

		CensoredWords: []string{},
		CensorChar:    "*",
	}
}

// Chat extracts the hub settings.
func (c *Config) Chat() core.Settings {
	return core.Settings{
		RateLimitWindow:      c.RateLimitWindow,
		RateLimitMaxMessages: c.RateLimitMaxMessages,
		MaxMessageLength:     c.MaxMessageLength,
		MaxUsernameLength:    c.MaxUsernameLength,
		MaxRoomNameLength:    c.MaxRoomNameLength,
		HeartbeatInterval:    c.HeartbeatInterval,
		SendQueueSize:        c.SendQueueSize,
	}
}

// MaskRune is the first rune of CensorChar.
func (c *Config) MaskRune() rune {
	for _, r := range c.CensorChar {
		return r
	}
	return '*'
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Used for command line overrides.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
