package domain

import (
	"context"
	"io"
	"time"
)

// Clock supplies the current instant. Production code uses the wall clock;
// tests substitute a controllable one.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Notifier delivers notification events. Recipient resolution, transport,
// retries and acknowledgment belong to the implementation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// CaseStore is a durable archive of finalized cases
type CaseStore interface {
	// Append stores a case. Appending an id that already exists fails with ErrDuplicateCase.
	Append(ctx context.Context, c Case) error

	// Get returns a case by id or ErrNotFound.
	Get(ctx context.Context, id string) (Case, error)

	// List returns cases in insertion order with pagination.
	List(ctx context.Context, limit, offset int) ([]Case, error)

	// Count returns the number of stored cases.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every stored case to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close releases resources.
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetNotificationConfig() *NotificationConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
