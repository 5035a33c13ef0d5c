package core

import (
	"errors"
	"time"
)

// TimeoutConfig configures timeouts for various operations.
type TimeoutConfig struct {
	// WebSocketRead is the read timeout for WebSocket connections.
	WebSocketRead time.Duration

	// WebSocketWrite is the write timeout for WebSocket connections.
	WebSocketWrite time.Duration

	// WebSocketPing is the interval between WebSocket pings.
	WebSocketPing time.Duration

	// ComponentEvent bounds a single HandleEvent call.
	ComponentEvent time.Duration

	// GracefulShutdown is the timeout for graceful shutdown.
	GracefulShutdown time.Duration
}

// DefaultTimeoutConfig returns default timeout configuration.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		WebSocketRead:    60 * time.Second,
		WebSocketWrite:   10 * time.Second,
		WebSocketPing:    30 * time.Second,
		ComponentEvent:   3 * time.Second,
		GracefulShutdown: 15 * time.Second,
	}
}

// SecurityConfig configures security settings.
type SecurityConfig struct {
	// AllowedOrigins for WebSocket connections besides the serving host.
	AllowedOrigins []string

	// InsecureDevMode disables origin checks (development only).
	InsecureDevMode bool

	// SecureHeaders enables security response headers.
	SecureHeaders bool
}

// DefaultSecurityConfig returns secure default configuration.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		SecureHeaders: true,
	}
}

// Config combines the runtime settings.
type Config struct {
	Timeouts TimeoutConfig
	Security SecurityConfig

	// Address the HTTP server listens on.
	Address string
	Debug   bool

	// MaxMessageSize bounds incoming WebSocket frames.
	MaxMessageSize int64

	// MaxConnections bounds concurrent LiveView connections, 0 is unlimited.
	MaxConnections int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeouts:       DefaultTimeoutConfig(),
		Security:       DefaultSecurityConfig(),
		Address:        ":8080",
		MaxMessageSize: 64 * 1024,
		MaxConnections: 1000,
	}
}

// Configuration errors.
var (
	ErrInvalidMaxMessageSize = errors.New("max message size must be positive")
	ErrInvalidTimeout        = errors.New("websocket timeouts must be positive")
	ErrInvalidAddress        = errors.New("address is empty")
)

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Address == "" {
		return ErrInvalidAddress
	}
	if c.MaxMessageSize <= 0 {
		return ErrInvalidMaxMessageSize
	}
	if c.Timeouts.WebSocketRead <= 0 || c.Timeouts.WebSocketWrite <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
