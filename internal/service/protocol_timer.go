package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// Milestone names
const (
	MilestoneInitialEvaluation = "initial_evaluation"
	MilestoneNeuroimaging      = "neuroimaging"
	MilestoneDoorToNeedle      = "door_to_needle"
)

var milestoneTargets = []domain.Milestone{
	{Name: MilestoneInitialEvaluation, Label: "Evaluación inicial <10 min", LimitSeconds: 600},
	{Name: MilestoneNeuroimaging, Label: "Neuroimagen <25 min", LimitSeconds: 1500},
	{Name: MilestoneDoorToNeedle, Label: "Puerta-aguja <60 min", LimitSeconds: 3600},
}

// ProtocolTimer is the door-to-treatment clock. Elapsed time is always
// recomputed from the arrival instant, so delayed or dropped ticks never
// cause drift.
type ProtocolTimer struct {
	mu      sync.RWMutex
	clock   domain.Clock
	logger  *logrus.Logger
	state   domain.ClockState
	arrival time.Time
	elapsed int64
	// activations counts Idle to Running transitions
	activations uint64
}

// NewProtocolTimer creates an idle timer
func NewProtocolTimer(clock domain.Clock, logger *logrus.Logger) *ProtocolTimer {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &ProtocolTimer{
		clock:  clock,
		logger: logger,
		state:  domain.ClockIdle,
	}
}

// Activate moves Idle to Running and records the arrival instant
func (t *ProtocolTimer) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != domain.ClockIdle {
		return fmt.Errorf("activate from %s: %w", t.state, domain.ErrInvalidState)
	}
	t.arrival = t.clock.Now()
	t.elapsed = 0
	t.state = domain.ClockRunning
	t.activations++

	t.logger.WithFields(logrus.Fields{
		"arrival": t.arrival.Format(time.RFC3339),
	}).Info("Protocol clock started")
	return nil
}

// Tick recomputes the elapsed seconds while running and returns them
func (t *ProtocolTimer) Tick() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recompute()
}

// Elapsed returns the current elapsed seconds without mutating state
func (t *ProtocolTimer) Elapsed() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current()
}

// State returns the clock state
func (t *ProtocolTimer) State() domain.ClockState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Finalize moves Running to Finalized and freezes the elapsed time
func (t *ProtocolTimer) Finalize() (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != domain.ClockRunning {
		return t.elapsed, fmt.Errorf("finalize from %s: %w", t.state, domain.ErrInvalidState)
	}
	return t.freeze(t.recompute()), nil
}

// FinalizeAt moves Running to Finalized and freezes the clock at elapsed,
// so a recorded case and the stopped clock agree to the second
func (t *ProtocolTimer) FinalizeAt(elapsed int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != domain.ClockRunning {
		return fmt.Errorf("finalize from %s: %w", t.state, domain.ErrInvalidState)
	}
	t.freeze(elapsed)
	return nil
}

// freeze must be called with the write lock held
func (t *ProtocolTimer) freeze(elapsed int64) int64 {
	t.elapsed = elapsed
	t.state = domain.ClockFinalized

	t.logger.WithFields(logrus.Fields{
		"elapsed_seconds": elapsed,
	}).Info("Protocol clock finalized")
	return elapsed
}

// Reset returns the clock to Idle
func (t *ProtocolTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = domain.ClockIdle
	t.arrival = time.Time{}
	t.elapsed = 0
	t.logger.Info("Protocol clock reset")
}

// Snapshot returns a copy of the clock state with derived milestones
func (t *ProtocolTimer) Snapshot() domain.ClockSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	elapsed := t.current()
	snap := domain.ClockSnapshot{
		State:          t.state,
		ElapsedSeconds: elapsed,
		Formatted:      FormatElapsed(elapsed),
		Milestones:     Milestones(elapsed),
	}
	if t.state != domain.ClockIdle {
		arrival := t.arrival
		snap.ArrivalInstant = &arrival
	}
	return snap
}

// Run ticks every interval until ctx is done or the clock leaves Running.
// onTick, when non-nil, receives a snapshot after every tick.
func (t *ProtocolTimer) Run(ctx context.Context, interval time.Duration, onTick func(domain.ClockSnapshot)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
			snap := t.Snapshot()
			if onTick != nil {
				onTick(snap)
			}
			if snap.State != domain.ClockRunning {
				return
			}
		}
	}
}

// WatchMilestones drives Run for every activation until ctx is done. onMissed
// is called once per activation for each milestone whose limit has passed.
func (t *ProtocolTimer) WatchMilestones(ctx context.Context, interval time.Duration, onMissed func(domain.Milestone)) {
	if interval <= 0 {
		interval = time.Second
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
		}
		if t.State() != domain.ClockRunning {
			continue
		}

		// A Reset and Activate between two ticks never leaves Running, so
		// Run keeps going; the activation count tells the codes apart.
		var activation uint64
		var missed map[string]bool
		t.Run(ctx, interval, func(snap domain.ClockSnapshot) {
			if snap.State == domain.ClockIdle {
				return
			}
			if current := t.activationCount(); current != activation {
				activation = current
				missed = make(map[string]bool, len(milestoneTargets))
			}
			for _, m := range snap.Milestones {
				if m.Met || missed[m.Name] {
					continue
				}
				missed[m.Name] = true
				if onMissed != nil {
					onMissed(m)
				}
			}
		})
	}
}

func (t *ProtocolTimer) activationCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activations
}

// recompute must be called with the write lock held
func (t *ProtocolTimer) recompute() int64 {
	if t.state == domain.ClockRunning {
		t.elapsed = wholeSeconds(t.clock.Now().Sub(t.arrival))
	}
	return t.elapsed
}

// current must be called with at least the read lock held
func (t *ProtocolTimer) current() int64 {
	if t.state == domain.ClockRunning {
		return wholeSeconds(t.clock.Now().Sub(t.arrival))
	}
	return t.elapsed
}

func wholeSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Milestones derives the display-only milestone flags for an elapsed time
func Milestones(elapsedSeconds int64) []domain.Milestone {
	out := make([]domain.Milestone, len(milestoneTargets))
	for i, m := range milestoneTargets {
		m.Met = elapsedSeconds <= m.LimitSeconds
		out[i] = m
	}
	return out
}

// FormatElapsed renders seconds as MM:SS; minutes are not capped at 59
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
