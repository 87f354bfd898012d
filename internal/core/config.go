// Package core provides the host-runtime side of glipbot: configuration
// loading and the engine that drives the platform event bridge.
//
// The engine owns the reconnect policy. One bridge session attempt is one
// ServeOnce call; the bridge never retries on its own, so the engine decides
// when (and how fast) to reconnect after a failure or a clean session loss.
package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/keepmind9/glipbot/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServer       = "https://platform.ringcentral.com"
	DefaultLogLevel     = "info"
	DefaultRateInterval = "3s"
	DefaultBaseDelay    = "1s"
	DefaultMaxDelay     = "60s"

	// suppressedSDKChatter is the platform SDK's steady-state "nothing new"
	// line; it is expected chatter, not a fault signal, and is dropped from
	// the log by default.
	suppressedSDKChatter = "No new updates found."
)

// Config represents the complete glipbot configuration structure
type Config struct {
	Identity  IdentityConfig  `yaml:"identity"`
	Messages  MessagesConfig  `yaml:"messages"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IdentityConfig holds the bot's platform credentials
type IdentityConfig struct {
	Username  string `yaml:"username"`
	Extension string `yaml:"extension"`
	Password  string `yaml:"password"`
	AppKey    string `yaml:"app_key"`
	AppSecret string `yaml:"app_secret"`
	Server    string `yaml:"server"`
}

// MessagesConfig holds message handling settings
type MessagesConfig struct {
	// SizeLimit caps inbound/outbound post bodies, in characters
	SizeLimit int `yaml:"size_limit"`
	// RateInterval is the minimum spacing between outbound sends
	RateInterval string `yaml:"rate_interval"`
	// CompactOutput is accepted for host-runtime compatibility; this
	// binding does not render formatted output, so it has no effect
	CompactOutput bool `yaml:"compact_output"`
}

// ReconnectConfig holds the engine's backoff policy
type ReconnectConfig struct {
	BaseDelay string `yaml:"base_delay"`
	MaxDelay  string `yaml:"max_delay"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level            string   `yaml:"level"`
	File             string   `yaml:"file"`
	MaxSize          int      `yaml:"max_size"`
	MaxBackups       int      `yaml:"max_backups"`
	MaxAge           int      `yaml:"max_age"`
	Compress         bool     `yaml:"compress"`
	EnableStdout     bool     `yaml:"enable_stdout"`
	SuppressMessages []string `yaml:"suppress_messages"`
}

// RateIntervalDuration returns the parsed outbound send spacing
func (m MessagesConfig) RateIntervalDuration() time.Duration {
	d, err := time.ParseDuration(m.RateInterval)
	if err != nil || d <= 0 {
		return constants.RateLimitInterval
	}
	return d
}

// BaseDelayDuration returns the parsed reconnect base delay
func (r ReconnectConfig) BaseDelayDuration() time.Duration {
	d, err := time.ParseDuration(r.BaseDelay)
	if err != nil || d <= 0 {
		return constants.DefaultReconnectBaseDelay
	}
	return d
}

// MaxDelayDuration returns the parsed reconnect delay cap
func (r ReconnectConfig) MaxDelayDuration() time.Duration {
	d, err := time.ParseDuration(r.MaxDelay)
	if err != nil || d <= 0 {
		return constants.DefaultReconnectMaxDelay
	}
	return d
}

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	// Parse YAML
	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return "" // Return empty string to let config parsing fail
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig performs basic validation on the configuration and fills
// in defaults
func validateConfig(config *Config) error {
	// Required identity fields
	var missing []string
	if config.Identity.Username == "" {
		missing = append(missing, "identity.username")
	}
	if config.Identity.Password == "" {
		missing = append(missing, "identity.password")
	}
	if config.Identity.AppKey == "" {
		missing = append(missing, "identity.app_key")
	}
	if config.Identity.AppSecret == "" {
		missing = append(missing, "identity.app_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if config.Identity.Server == "" {
		config.Identity.Server = DefaultServer
	}

	// Message defaults
	if config.Messages.SizeLimit == 0 {
		config.Messages.SizeLimit = constants.MessageSizeLimit
	}
	if config.Messages.SizeLimit < 0 {
		return fmt.Errorf("messages.size_limit must be positive, got %d", config.Messages.SizeLimit)
	}
	if config.Messages.RateInterval == "" {
		config.Messages.RateInterval = DefaultRateInterval
	}
	if _, err := time.ParseDuration(config.Messages.RateInterval); err != nil {
		return fmt.Errorf("invalid messages.rate_interval: %w", err)
	}

	// Reconnect defaults
	if config.Reconnect.BaseDelay == "" {
		config.Reconnect.BaseDelay = DefaultBaseDelay
	}
	if config.Reconnect.MaxDelay == "" {
		config.Reconnect.MaxDelay = DefaultMaxDelay
	}
	if _, err := time.ParseDuration(config.Reconnect.BaseDelay); err != nil {
		return fmt.Errorf("invalid reconnect.base_delay: %w", err)
	}
	if _, err := time.ParseDuration(config.Reconnect.MaxDelay); err != nil {
		return fmt.Errorf("invalid reconnect.max_delay: %w", err)
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = constants.DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}
	if len(config.Logging.SuppressMessages) == 0 {
		config.Logging.SuppressMessages = []string{suppressedSDKChatter}
	}

	return nil
}
