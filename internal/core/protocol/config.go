package protocol

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the construction-time configuration surface of the client.
// Start from DefaultConfig and override; the zero value is not usable.
type Config struct {
	// Endpoint
	URL       string   `yaml:"url"`
	Port      int      `yaml:"port"`
	Protocols []string `yaml:"protocols"`

	// Reconnection
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	AutoReconnect        bool          `yaml:"auto_reconnect"`

	// Health and handshakes
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// Outbound queue
	MessageQueueSize int `yaml:"message_queue_size"`
	MaxSendAttempts  int `yaml:"max_send_attempts"`

	// Authentication
	AuthToken string `yaml:"auth_token"`

	// Logging
	EnableLogging bool `yaml:"enable_logging"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:8080/ws",
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 10,
		AutoReconnect:        true,
		HeartbeatInterval:    30 * time.Second,
		ConnectionTimeout:    10 * time.Second,
		MessageQueueSize:     1000,
		MaxSendAttempts:      3,
	}
}

// LoadConfig reads a YAML file over the defaults, so absent keys keep their
// documented values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate rejects configurations the client cannot run with.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("url must use ws:// or wss:// scheme, got %q", c.URL)
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect_interval must be positive")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must be non-negative")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection_timeout must be positive")
	}
	if c.MessageQueueSize <= 0 {
		return fmt.Errorf("message_queue_size must be positive")
	}
	if c.MaxSendAttempts <= 0 {
		return fmt.Errorf("max_send_attempts must be positive")
	}
	return nil
}

// Addr resolves the dial address, appending the configured port when the
// URL itself does not carry one.
func (c Config) Addr() string {
	if c.Port == 0 {
		return c.URL
	}
	scheme, rest, found := strings.Cut(c.URL, "://")
	if !found {
		return c.URL
	}
	host, path, _ := strings.Cut(rest, "/")
	if strings.Contains(host, ":") {
		return c.URL
	}
	addr := fmt.Sprintf("%s://%s:%d", scheme, host, c.Port)
	if path != "" {
		addr += "/" + path
	}
	return addr
}
