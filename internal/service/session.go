package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// Dispatcher emits stroke code notifications to the care team
type Dispatcher interface {
	CodeActivated(ctx context.Context, at time.Time) error
	CaseSummary(ctx context.Context, c domain.Case) error
	Test(ctx context.Context) error
	Recipients() domain.Recipients
	SetRecipients(recipients domain.Recipients)
}

// SessionSnapshot is an immutable view of the active session
type SessionSnapshot struct {
	Patient      domain.PatientData          `json:"patientData"`
	Nihss        domain.NihssAssessment      `json:"nihss"`
	Aspects      domain.AspectsAssessment    `json:"aspects"`
	Checklist    domain.Checklist            `json:"checklist"`
	Criteria     domain.ThrombectomyCriteria `json:"thrombectomyCriteria"`
	NihssTotal   int                         `json:"nihssTotal"`
	AspectsScore int                         `json:"aspectsScore"`
	Clock        domain.ClockSnapshot        `json:"clock"`
	Progress     ProtocolProgress            `json:"progress"`
	Access       map[string]bool             `json:"access"`
	Finalized    bool                        `json:"finalized"`
	CaseID       string                      `json:"caseId,omitempty"`
}

// EligibilityView bundles both eligibility results with advisory next steps
type EligibilityView struct {
	Thrombolysis    domain.EligibilityResult `json:"thrombolysis"`
	Thrombectomy    domain.EligibilityResult `json:"thrombectomy"`
	Recommendations []Recommendation         `json:"recommendations"`
}

// DoseView is the rtPA section: the dose with its administration steps when
// thrombolysis is eligible, otherwise the reasons the section is restricted
type DoseView struct {
	Restricted     bool             `json:"restricted"`
	Reasons        []domain.Reason  `json:"reasons,omitempty"`
	RtpaDose       *domain.RtpaDose `json:"rtpaDose"`
	Administration []string         `json:"administration,omitempty"`
}

// Session is the active stroke code: the inputs being entered, the protocol
// clock and the collaborators that close the case. All methods are safe for
// concurrent use; Finalize is serialized so one activation records at most
// one case.
type Session struct {
	mu         sync.Mutex
	engine     *EligibilityEngine
	timer      *ProtocolTimer
	recorder   *CaseRecorder
	dispatcher Dispatcher
	logger     *logrus.Logger

	patient   domain.PatientData
	nihss     domain.NihssAssessment
	aspects   domain.AspectsAssessment
	checklist domain.Checklist
	criteria  domain.ThrombectomyCriteria
	finalized bool
	caseID    string
}

// NewSession creates an idle session. dispatcher may be nil.
func NewSession(engine *EligibilityEngine, timer *ProtocolTimer, recorder *CaseRecorder, dispatcher Dispatcher, logger *logrus.Logger) *Session {
	return &Session{
		engine:     engine,
		timer:      timer,
		recorder:   recorder,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Timer returns the protocol clock
func (s *Session) Timer() *ProtocolTimer {
	return s.timer
}

// Recorder returns the case recorder
func (s *Session) Recorder() *CaseRecorder {
	return s.recorder
}

// SetPatient replaces the patient intake
func (s *Session) SetPatient(p domain.PatientData) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patient = p.Clone()
	return nil
}

// SetNihss replaces the NIHSS assessment
func (s *Session) SetNihss(a domain.NihssAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nihss = a
}

// SetNihssItem updates a single NIHSS subscore
func (s *Session) SetNihssItem(key domain.NihssItem, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nihss.Set(key, value)
}

// SetAspects replaces the ASPECTS assessment
func (s *Session) SetAspects(a domain.AspectsAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aspects = a
}

// SetChecklist replaces the thrombolysis checklist
func (s *Session) SetChecklist(c domain.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklist = c
}

// SetCriteria replaces the thrombectomy criteria
func (s *Session) SetCriteria(c domain.ThrombectomyCriteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c
	return nil
}

// Activate starts the protocol clock and announces the code. A notification
// failure is logged and does not undo the activation. Once a case has been
// finalized the session must be Reset before a new code starts.
func (s *Session) Activate(ctx context.Context) (domain.ClockSnapshot, error) {
	s.mu.Lock()
	if s.finalized {
		caseID := s.caseID
		s.mu.Unlock()
		return s.timer.Snapshot(), fmt.Errorf("case %s already finalized, reset first: %w", caseID, domain.ErrInvalidState)
	}
	err := s.timer.Activate()
	s.mu.Unlock()
	if err != nil {
		return s.timer.Snapshot(), err
	}
	snap := s.timer.Snapshot()

	if s.dispatcher != nil && snap.ArrivalInstant != nil {
		if err := s.dispatcher.CodeActivated(ctx, *snap.ArrivalInstant); err != nil {
			s.logger.WithFields(logrus.Fields{
				"event": domain.EventCodeActivated,
				"error": err.Error(),
			}).Warn("Failed to send code activation notification")
		}
	}
	return snap, nil
}

// Snapshot returns copies of the session inputs with derived scores
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	nihssTotal := NihssTotal(s.nihss)
	progress := Progress(s.nihss, s.checklist, s.aspects, s.patient, s.engine.Thrombolysis(s.checklist, nihssTotal))
	return SessionSnapshot{
		Patient:      s.patient.Clone(),
		Nihss:        s.nihss,
		Aspects:      s.aspects,
		Checklist:    s.checklist,
		Criteria:     s.criteria,
		NihssTotal:   nihssTotal,
		AspectsScore: AspectsScore(s.aspects),
		Clock:        s.timer.Snapshot(),
		Progress:     progress,
		Access:       progress.Access(),
		Finalized:    s.finalized,
		CaseID:       s.caseID,
	}
}

// Eligibility evaluates both treatments on the current inputs
func (s *Session) Eligibility() EligibilityView {
	s.mu.Lock()
	defer s.mu.Unlock()

	nihssTotal := NihssTotal(s.nihss)
	thrombolysis := s.engine.Thrombolysis(s.checklist, nihssTotal)
	thrombectomy := s.engine.Thrombectomy(s.criteria, nihssTotal, AspectsScore(s.aspects))
	return EligibilityView{
		Thrombolysis:    thrombolysis,
		Thrombectomy:    thrombectomy,
		Recommendations: Recommendations(s.criteria, thrombolysis, thrombectomy),
	}
}

// Dose returns the rtPA dose for the current weight, or nil
func (s *Session) Dose() *domain.RtpaDose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RtpaDose(s.patient.Weight)
}

// DoseView gates the rtPA dose on thrombolysis eligibility
func (s *Session) DoseView() DoseView {
	s.mu.Lock()
	defer s.mu.Unlock()

	thrombolysis := s.engine.Thrombolysis(s.checklist, NihssTotal(s.nihss))
	progress := ProtocolProgress{ThrombolysisEligible: thrombolysis.Eligible}
	if !progress.CanAccess(SectionRtpa) {
		return DoseView{Restricted: true, Reasons: thrombolysis.Reasons}
	}

	view := DoseView{RtpaDose: RtpaDose(s.patient.Weight)}
	if view.RtpaDose != nil {
		view.Administration = AdministrationProtocol(*view.RtpaDose)
	}
	return view
}

// Finalize records the active case. The clock stops on success; it keeps
// running when the case is incomplete. A second call before Reset fails with
// domain.ErrCaseAlreadyFinalized.
func (s *Session) Finalize(ctx context.Context) (domain.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return domain.Case{}, fmt.Errorf("case %s: %w", s.caseID, domain.ErrCaseAlreadyFinalized)
	}

	elapsed := s.timer.Tick()
	c, err := s.recorder.Finalize(ctx, FinalizeInput{
		Patient:        s.patient,
		Nihss:          s.nihss,
		Aspects:        s.aspects,
		Checklist:      s.checklist,
		Criteria:       s.criteria,
		ElapsedSeconds: elapsed,
	})
	if err != nil {
		return domain.Case{}, err
	}

	if s.timer.State() == domain.ClockRunning {
		if err := s.timer.FinalizeAt(elapsed); err != nil {
			s.logger.WithField("error", err.Error()).Warn("Failed to stop protocol clock")
		}
	}
	s.finalized = true
	s.caseID = c.ID

	if s.dispatcher != nil {
		if err := s.dispatcher.CaseSummary(ctx, c); err != nil {
			s.logger.WithFields(logrus.Fields{
				"event":   domain.EventCaseSummary,
				"case_id": c.ID,
				"error":   err.Error(),
			}).Warn("Failed to send case summary notification")
		}
	}
	return c, nil
}

// Reset clears the inputs and returns the clock to Idle. Nothing is recorded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patient = domain.PatientData{}
	s.nihss = domain.NihssAssessment{}
	s.aspects = domain.AspectsAssessment{}
	s.checklist = domain.Checklist{}
	s.criteria = domain.ThrombectomyCriteria{}
	s.finalized = false
	s.caseID = ""
	s.timer.Reset()

	s.logger.Info("Session reset")
}

// SendTest emits a test notification and returns the delivery error, if any
func (s *Session) SendTest(ctx context.Context) error {
	if s.dispatcher == nil {
		return fmt.Errorf("no notification dispatcher configured")
	}
	return s.dispatcher.Test(ctx)
}

// Recipients returns the notification recipients
func (s *Session) Recipients() (domain.Recipients, error) {
	if s.dispatcher == nil {
		return domain.Recipients{}, fmt.Errorf("no notification dispatcher configured")
	}
	return s.dispatcher.Recipients(), nil
}

// SetRecipients replaces the notification recipients for subsequent events
func (s *Session) SetRecipients(recipients domain.Recipients) error {
	if s.dispatcher == nil {
		return fmt.Errorf("no notification dispatcher configured")
	}
	s.dispatcher.SetRecipients(recipients)
	return nil
}
