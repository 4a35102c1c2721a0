package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/stroke-code-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// Option configures a Manager
type Option func(*Manager)

// WithConfigFile reads configuration from an explicit file instead of the search paths
func WithConfigFile(path string) Option {
	return func(m *Manager) { m.configFile = path }
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/stroke-code-server/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("STROKE_CODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Archive defaults
	v.SetDefault("archive.driver", domain.ArchiveMemory)
	v.SetDefault("archive.path", "./data/cases.db")

	// Notification defaults. Recipients have empty defaults so env vars bind;
	// they are checked on every dispatch and can be edited at runtime.
	v.SetDefault("notification.mode", domain.NotifyLog)
	v.SetDefault("notification.webhook_url", "")
	v.SetDefault("notification.timeout", "10s")
	v.SetDefault("notification.rate_limit", 5)
	v.SetDefault("notification.burst", 2)
	v.SetDefault("notification.redis_url", "")
	v.SetDefault("notification.redis_channel", "stroke-code:events")
	v.SetDefault("notification.recipients.neurologo", "")
	v.SetDefault("notification.recipients.emergencias", "")
	v.SetDefault("notification.recipients.hemodinamia", "")
	v.SetDefault("notification.recipients.administracion", "")

	// Timer defaults
	v.SetDefault("timer.tick_interval", "1s")

	// MCP defaults
	v.SetDefault("mcp.server_name", "stroke-code-server")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.http_enabled", false)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetNotificationConfig returns notification configuration
func (m *Manager) GetNotificationConfig() *domain.NotificationConfig {
	return &m.config.Notification
}

// ConfigFileUsed returns the file the configuration was read from, if any
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	if f := strings.ToLower(config.Logging.Format); f != "json" && f != "text" {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	switch config.Archive.Driver {
	case domain.ArchiveMemory:
	case domain.ArchiveSQLite:
		if config.Archive.Path == "" {
			return fmt.Errorf("archive path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid archive driver: %s", config.Archive.Driver)
	}

	switch config.Notification.Mode {
	case domain.NotifyLog:
	case domain.NotifyWebhook:
		u, err := url.Parse(config.Notification.WebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("a valid webhook URL is required for webhook notifications")
		}
	case domain.NotifyRedis:
		if config.Notification.RedisURL == "" {
			return fmt.Errorf("a Redis URL is required for redis notifications")
		}
		if config.Notification.RedisChannel == "" {
			return fmt.Errorf("a Redis channel is required for redis notifications")
		}
	default:
		return fmt.Errorf("invalid notification mode: %s", config.Notification.Mode)
	}
	if config.Notification.RateLimit < 0 {
		return fmt.Errorf("notification rate limit must not be negative")
	}

	if config.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer tick interval must be positive")
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
