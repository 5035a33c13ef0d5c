// Package config loads teamwizard settings using Viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vendapay/teamwizard/internal/teamform"
	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/limits"
	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/protocol"
	"github.com/vendapay/teamwizard/pkg/retry"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

// EnvPrefix prefixes every environment variable, e.g. TEAMWIZARD_ADDR.
const EnvPrefix = "TEAMWIZARD"

// Config holds all configuration values for teamwizard.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogJSON         bool          `mapstructure:"log_json" yaml:"log_json"`
	Codec           string        `mapstructure:"codec" yaml:"codec"`
	StepsFile       string        `mapstructure:"steps_file" yaml:"steps_file"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	DevMode         bool          `mapstructure:"dev_mode" yaml:"dev_mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WSReadTimeout   time.Duration `mapstructure:"ws_read_timeout" yaml:"ws_read_timeout"`
	WSWriteTimeout  time.Duration `mapstructure:"ws_write_timeout" yaml:"ws_write_timeout"`
	WSPingInterval  time.Duration `mapstructure:"ws_ping_interval" yaml:"ws_ping_interval"`
	EventTimeout    time.Duration `mapstructure:"event_timeout" yaml:"event_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size" yaml:"max_message_size"`
	MaxConnections  int           `mapstructure:"max_connections" yaml:"max_connections"`
	EventRate       float64       `mapstructure:"event_rate" yaml:"event_rate"`
	EventBurst      int           `mapstructure:"event_burst" yaml:"event_burst"`
	SubmitRetries   int           `mapstructure:"submit_retries" yaml:"submit_retries"`
	BreakerFailures int           `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" yaml:"breaker_timeout"`
	Metrics         bool          `mapstructure:"metrics" yaml:"metrics"`
}

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

func setDefaults(v *viper.Viper) {
	def := core.DefaultConfig()
	v.SetDefault("addr", def.Address)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("codec", "phoenix")
	v.SetDefault("steps_file", "")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("dev_mode", false)
	v.SetDefault("shutdown_timeout", def.Timeouts.GracefulShutdown)
	v.SetDefault("ws_read_timeout", def.Timeouts.WebSocketRead)
	v.SetDefault("ws_write_timeout", def.Timeouts.WebSocketWrite)
	v.SetDefault("ws_ping_interval", def.Timeouts.WebSocketPing)
	v.SetDefault("event_timeout", def.Timeouts.ComponentEvent)
	v.SetDefault("max_message_size", def.MaxMessageSize)
	v.SetDefault("max_connections", def.MaxConnections)
	v.SetDefault("event_rate", 20.0)
	v.SetDefault("event_burst", 40)
	v.SetDefault("submit_retries", 3)
	v.SetDefault("breaker_failures", 5)
	v.SetDefault("breaker_timeout", 30*time.Second)
	v.SetDefault("metrics", true)
}

// Load loads configuration with precedence:
// flags > env vars > config file > defaults.
// path names the config file; when empty ./teamwizard.yml is used if it
// exists. flags may be nil; only flags the user changed override.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	if path == "" && fileExists(ProjectPath()) {
		path = ProjectPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if bindErr == nil && f.Changed && v.IsSet(key) {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "teamwizard.yml"
}

// Validate checks values that the runtime cannot recover from.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return fmt.Errorf("%w: codec: %v", ErrInvalidConfig, err)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("%w: max_connections must not be negative", ErrInvalidConfig)
	}
	if c.EventRate < 0 {
		return fmt.Errorf("%w: event_rate must not be negative", ErrInvalidConfig)
	}
	if c.EventRate > 0 && c.EventBurst < 1 {
		return fmt.Errorf("%w: event_burst must be at least 1", ErrInvalidConfig)
	}
	if c.SubmitRetries < 0 {
		return fmt.Errorf("%w: submit_retries must not be negative", ErrInvalidConfig)
	}
	if c.BreakerFailures < 0 || c.BreakerTimeout < 0 {
		return fmt.Errorf("%w: breaker settings must not be negative", ErrInvalidConfig)
	}
	if err := c.Core().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Core maps the settings onto the LiveView runtime config.
func (c *Config) Core() core.Config {
	cfg := core.DefaultConfig()
	cfg.Address = c.Addr
	cfg.Debug = c.DevMode
	cfg.MaxMessageSize = c.MaxMessageSize
	cfg.MaxConnections = c.MaxConnections
	cfg.Timeouts.WebSocketRead = c.WSReadTimeout
	cfg.Timeouts.WebSocketWrite = c.WSWriteTimeout
	cfg.Timeouts.WebSocketPing = c.WSPingInterval
	cfg.Timeouts.GracefulShutdown = c.ShutdownTimeout
	if c.EventTimeout > 0 {
		cfg.Timeouts.ComponentEvent = c.EventTimeout
	}
	cfg.Security.AllowedOrigins = c.AllowedOrigins
	cfg.Security.InsecureDevMode = c.DevMode
	return cfg
}

// Logger builds the process logger writing to out.
func (c *Config) Logger(out io.Writer) (*logging.SlogLogger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := []logging.LoggerOption{logging.WithLevel(level), logging.WithOutput(out)}
	if c.LogJSON {
		opts = append(opts, logging.WithJSON())
	}
	return logging.NewSlogLogger(opts...), nil
}

// WireCodec returns the configured WebSocket codec.
func (c *Config) WireCodec() (protocol.Codec, error) {
	return protocol.CodecByName(c.Codec)
}

// EventLimiter returns the per-connection event limiter, or nil when
// event_rate is 0.
func (c *Config) EventLimiter() *limits.TokenBucket {
	if c.EventRate == 0 {
		return nil
	}
	return limits.NewTokenBucket(c.EventRate, c.EventBurst)
}

// RetryConfig returns the backoff used when delivering registrations.
func (c *Config) RetryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = c.SubmitRetries
	return cfg
}

// BreakerConfig returns the circuit breaker settings for delivery.
func (c *Config) BreakerConfig() teamform.BreakerConfig {
	return teamform.BreakerConfig{
		MaxFailures: uint32(c.BreakerFailures),
		Timeout:     c.BreakerTimeout,
	}
}

// Steps loads the step definitions from StepsFile, or the built-in team
// steps when no file is configured.
func (c *Config) Steps() (wizard.Steps, error) {
	if c.StepsFile == "" {
		return wizard.TeamSteps(), nil
	}
	return wizard.LoadStepsFile(c.StepsFile)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
