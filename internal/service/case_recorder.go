package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// MissingForFinalize lists the completeness preconditions that are not met,
// in the order nihss, checklist, age, weight. A non-positive weight cannot
// produce a dose and counts as missing.
func MissingForFinalize(nihss domain.NihssAssessment, checklist domain.Checklist, patient domain.PatientData) []string {
	var missing []string
	if !nihss.Evaluated() {
		missing = append(missing, domain.MissingNihss)
	}
	if !checklist.Touched() {
		missing = append(missing, domain.MissingChecklist)
	}
	if patient.Age == nil {
		missing = append(missing, domain.MissingAge)
	}
	if patient.Weight == nil || !(*patient.Weight > 0) {
		missing = append(missing, domain.MissingWeight)
	}
	return missing
}

// CanFinalize is the data-completeness gate for closing a case. It is
// independent of clinical eligibility.
func CanFinalize(nihss domain.NihssAssessment, checklist domain.Checklist, patient domain.PatientData) bool {
	return len(MissingForFinalize(nihss, checklist, patient)) == 0
}

// FinalizeInput is the session state captured into a Case
type FinalizeInput struct {
	Patient        domain.PatientData
	Nihss          domain.NihssAssessment
	Aspects        domain.AspectsAssessment
	Checklist      domain.Checklist
	Criteria       domain.ThrombectomyCriteria
	ElapsedSeconds int64
}

// CaseRecorder builds immutable Case snapshots and keeps the append-only
// case history. When a store is configured every case is archived before it
// enters the history.
type CaseRecorder struct {
	mu      sync.RWMutex
	engine  *EligibilityEngine
	store   domain.CaseStore
	clock   domain.Clock
	logger  *logrus.Logger
	newID   func() string
	cases   []domain.Case
	indexes map[string]int
}

// RecorderOption configures a CaseRecorder
type RecorderOption func(*CaseRecorder)

// WithCaseStore archives every finalized case to store
func WithCaseStore(store domain.CaseStore) RecorderOption {
	return func(r *CaseRecorder) { r.store = store }
}

// WithClock overrides the timestamp source
func WithClock(clock domain.Clock) RecorderOption {
	return func(r *CaseRecorder) { r.clock = clock }
}

// WithIDGenerator overrides case id generation
func WithIDGenerator(gen func() string) RecorderOption {
	return func(r *CaseRecorder) { r.newID = gen }
}

// NewCaseRecorder creates a case recorder with an empty history
func NewCaseRecorder(engine *EligibilityEngine, logger *logrus.Logger, opts ...RecorderOption) *CaseRecorder {
	r := &CaseRecorder{
		engine:  engine,
		clock:   domain.SystemClock{},
		logger:  logger,
		newID:   uuid.NewString,
		indexes: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load seeds the history from the configured store, in store order.
// It is meant to be called once at startup.
func (r *CaseRecorder) Load(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	const pageSize = 100
	loaded := 0
	for offset := 0; ; offset += pageSize {
		page, err := r.store.List(ctx, pageSize, offset)
		if err != nil {
			return loaded, fmt.Errorf("failed to load case archive: %w", err)
		}
		for _, c := range page {
			if _, exists := r.indexes[c.ID]; exists {
				continue
			}
			r.indexes[c.ID] = len(r.cases)
			r.cases = append(r.cases, c.Clone())
			loaded++
		}
		if len(page) < pageSize {
			break
		}
	}

	r.logger.WithField("cases", loaded).Info("Loaded case archive")
	return loaded, nil
}

// Finalize validates completeness, builds the Case snapshot and records it.
// It returns an *domain.IncompleteCaseError listing what is missing when the
// completeness gate fails; the history is unchanged in that case.
func (r *CaseRecorder) Finalize(ctx context.Context, in FinalizeInput) (domain.Case, error) {
	if missing := MissingForFinalize(in.Nihss, in.Checklist, in.Patient); len(missing) > 0 {
		r.logger.WithField("missing", missing).Warn("Finalize rejected: case incomplete")
		return domain.Case{}, &domain.IncompleteCaseError{Missing: missing}
	}
	if err := in.Patient.Validate(); err != nil {
		return domain.Case{}, err
	}
	if err := in.Criteria.Validate(); err != nil {
		return domain.Case{}, err
	}

	c := r.build(in)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indexes[c.ID]; exists {
		return domain.Case{}, fmt.Errorf("case %s: %w", c.ID, domain.ErrDuplicateCase)
	}
	if r.store != nil {
		if err := r.store.Append(ctx, c); err != nil {
			r.logger.WithFields(logrus.Fields{
				"case_id": c.ID,
				"error":   err.Error(),
			}).Error("Failed to archive case")
			return domain.Case{}, fmt.Errorf("failed to archive case %s: %w", c.ID, err)
		}
	}
	r.indexes[c.ID] = len(r.cases)
	r.cases = append(r.cases, c)

	r.logger.WithFields(logrus.Fields{
		"case_id":               c.ID,
		"nihss_total":           c.NihssTotal,
		"aspects_score":         c.AspectsScore,
		"thrombolysis_eligible": c.Thrombolysis.Eligible,
		"thrombectomy_eligible": c.Thrombectomy.Eligible,
		"elapsed_seconds":       c.ElapsedSeconds,
	}).Info("Case finalized")

	return c.Clone(), nil
}

// build computes scores, eligibility and dose into a new Case
func (r *CaseRecorder) build(in FinalizeInput) domain.Case {
	nihssTotal := NihssTotal(in.Nihss)
	aspectsScore := AspectsScore(in.Aspects)

	return domain.Case{
		ID:             r.newID(),
		Timestamp:      r.clock.Now(),
		Patient:        in.Patient.Clone(),
		Nihss:          in.Nihss,
		Aspects:        in.Aspects,
		Checklist:      in.Checklist,
		Criteria:       in.Criteria,
		NihssTotal:     nihssTotal,
		AspectsScore:   aspectsScore,
		Thrombolysis:   r.engine.Thrombolysis(in.Checklist, nihssTotal),
		Thrombectomy:   r.engine.Thrombectomy(in.Criteria, nihssTotal, aspectsScore),
		RtpaDose:       RtpaDose(in.Patient.Weight),
		ElapsedSeconds: in.ElapsedSeconds,
		Status:         domain.CaseStatusFinalized,
	}
}

// History returns copies of every recorded case in insertion order
func (r *CaseRecorder) History() []domain.Case {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Case, len(r.cases))
	for i, c := range r.cases {
		out[i] = c.Clone()
	}
	return out
}

// Get returns a copy of the case with the given id
func (r *CaseRecorder) Get(id string) (domain.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.indexes[id]
	if !ok {
		return domain.Case{}, fmt.Errorf("case %s: %w", id, domain.ErrNotFound)
	}
	return r.cases[i].Clone(), nil
}

// Len returns the number of recorded cases
func (r *CaseRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}
