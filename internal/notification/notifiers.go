package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// New returns the notifier selected by cfg
func New(cfg domain.NotificationConfig, logger *logrus.Logger) (domain.Notifier, error) {
	switch cfg.Mode {
	case "", domain.NotifyLog:
		return NewLogNotifier(logger), nil
	case domain.NotifyWebhook:
		return NewWebhookNotifier(WebhookConfig{
			URL:       cfg.WebhookURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Burst:     cfg.Burst,
		}, logger)
	case domain.NotifyRedis:
		return NewRedisNotifier(RedisConfig{
			URL:     cfg.RedisURL,
			Channel: cfg.RedisChannel,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown notification mode %q", cfg.Mode)
	}
}

// LogNotifier writes events to the log. Used when no transport is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event
func (n *LogNotifier) Notify(ctx context.Context, event domain.Event) error {
	n.logger.WithFields(logrus.Fields{
		"event_id":       event.ID,
		"event_type":     event.Type,
		"neurologo":      event.Recipients.Neurologo,
		"emergencias":    event.Recipients.Emergencias,
		"hemodinamia":    event.Recipients.Hemodinamia,
		"administracion": event.Recipients.Administracion,
	}).Info("Stroke code notification")
	return nil
}

// RecordingNotifier keeps every event it receives
type RecordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

// NewRecordingNotifier creates a recording notifier. Notify returns err after recording.
func NewRecordingNotifier(err error) *RecordingNotifier {
	return &RecordingNotifier{err: err}
}

// Notify records the event
func (n *RecordingNotifier) Notify(ctx context.Context, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

// Events returns the recorded events in order
func (n *RecordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Event, len(n.events))
	copy(out, n.events)
	return out
}
