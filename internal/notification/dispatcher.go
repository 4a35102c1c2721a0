// Package notification builds stroke code events and hands them to a
// notifier. Delivery, retries and acknowledgment belong to the notifier.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

const (
	codeActivatedMessage = "Código ACV activado en emergencias"
	testMessage          = "Notificación de prueba del sistema de código ictus"
)

// Dispatcher constructs notification events for the configured care team.
// Recipients may be replaced at runtime; each event carries the recipients
// current at dispatch.
type Dispatcher struct {
	notifier   domain.Notifier
	mu         sync.RWMutex
	recipients domain.Recipients
	clock      domain.Clock
	logger     *logrus.Logger
}

// NewDispatcher creates a dispatcher. clock may be nil.
func NewDispatcher(notifier domain.Notifier, recipients domain.Recipients, clock domain.Clock, logger *logrus.Logger) *Dispatcher {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Dispatcher{
		notifier:   notifier,
		recipients: recipients,
		clock:      clock,
		logger:     logger,
	}
}

// Recipients returns the configured recipients
func (d *Dispatcher) Recipients() domain.Recipients {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.recipients
}

// SetRecipients replaces the recipients. Completeness is checked when an
// event is dispatched, not here.
func (d *Dispatcher) SetRecipients(recipients domain.Recipients) {
	d.mu.Lock()
	d.recipients = recipients
	d.mu.Unlock()

	d.logger.WithField("missing_roles", recipients.EmptyRoles()).Info("Notification recipients updated")
}

// CodeActivated announces a new stroke code
func (d *Dispatcher) CodeActivated(ctx context.Context, at time.Time) error {
	return d.dispatch(ctx, domain.EventCodeActivated, domain.CodeActivatedPayload{
		Timestamp: at,
		Message:   codeActivatedMessage,
	})
}

// CaseSummary sends the finalized case to the care team
func (d *Dispatcher) CaseSummary(ctx context.Context, c domain.Case) error {
	return d.dispatch(ctx, domain.EventCaseSummary, domain.CaseSummaryPayload{
		Case:                 c,
		ElapsedMinutes:       c.ElapsedMinutes(),
		ThrombolysisEligible: c.Thrombolysis.Eligible,
		ThrombectomyEligible: c.Thrombectomy.Eligible,
		RtpaDose:             c.RtpaDose,
	})
}

// Test sends a test notification to every recipient
func (d *Dispatcher) Test(ctx context.Context) error {
	return d.dispatch(ctx, domain.EventTest, domain.TestPayload{
		Timestamp: d.clock.Now(),
		Message:   testMessage,
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, eventType domain.EventType, payload interface{}) error {
	recipients := d.Recipients()
	if err := recipients.Validate(); err != nil {
		return err
	}

	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  d.clock.Now(),
		Recipients: recipients,
		Payload:    payload,
	}

	if err := d.notifier.Notify(ctx, event); err != nil {
		d.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"error":      err.Error(),
		}).Error("Notification delivery failed")
		return fmt.Errorf("failed to deliver %s notification: %w", eventType, err)
	}

	d.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Info("Notification dispatched")
	return nil
}
