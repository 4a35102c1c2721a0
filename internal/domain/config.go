package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Archive      ArchiveConfig      `mapstructure:"archive"`
	Notification NotificationConfig `mapstructure:"notification"`
	Timer        TimerConfig        `mapstructure:"timer"`
	MCP          MCPConfig          `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Archive drivers
const (
	ArchiveMemory = "memory"
	ArchiveSQLite = "sqlite"
)

// ArchiveConfig selects where finalized cases are archived
type ArchiveConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// Notification modes
const (
	NotifyLog     = "log"
	NotifyWebhook = "webhook"
	NotifyRedis   = "redis"
)

// NotificationConfig configures the notification dispatcher
type NotificationConfig struct {
	Mode       string        `mapstructure:"mode"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
	Recipients Recipients    `mapstructure:"recipients"`
	// Redis pub/sub delivery
	RedisURL     string `mapstructure:"redis_url"`
	RedisChannel string `mapstructure:"redis_channel"`
}

// TimerConfig configures the protocol clock tick
type TimerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	// HTTPEnabled mounts the tools on the HTTP API at /mcp
	HTTPEnabled bool `mapstructure:"http_enabled"`
}
