package domain

import (
	"time"
)

// Reason is one auditable entry explaining a failed or flagged eligibility check
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EligibilityResult is the outcome of a treatment eligibility evaluation.
// Reasons are in the fixed check order of the evaluation.
type EligibilityResult struct {
	Eligible bool     `json:"eligible"`
	Reasons  []Reason `json:"reasons"`
}

// HasReason reports whether the result contains a reason with the given code
func (r EligibilityResult) HasReason(code string) bool {
	for _, reason := range r.Reasons {
		if reason.Code == code {
			return true
		}
	}
	return false
}

// ReasonCodes returns the reason codes in order
func (r EligibilityResult) ReasonCodes() []string {
	codes := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		codes[i] = reason.Code
	}
	return codes
}

func (r EligibilityResult) clone() EligibilityResult {
	out := EligibilityResult{Eligible: r.Eligible, Reasons: make([]Reason, len(r.Reasons))}
	copy(out.Reasons, r.Reasons)
	return out
}

// RtpaDose is the weight-based alteplase dose in milligrams, rounded to one decimal
type RtpaDose struct {
	Total    float64 `json:"total"`
	Bolus    float64 `json:"bolus"`
	Infusion float64 `json:"infusion"`
}

// CaseStatus is the lifecycle status of a recorded case
type CaseStatus string

// Case statuses
const (
	CaseStatusFinalized CaseStatus = "finalized"
)

// Case is an immutable snapshot of a finalized stroke code
type Case struct {
	ID             string               `json:"id"`
	Timestamp      time.Time            `json:"timestamp"`
	Patient        PatientData          `json:"patientData"`
	Nihss          NihssAssessment      `json:"nihss"`
	Aspects        AspectsAssessment    `json:"aspects"`
	Checklist      Checklist            `json:"checklist"`
	Criteria       ThrombectomyCriteria `json:"thrombectomyCriteria"`
	NihssTotal     int                  `json:"nihssTotal"`
	AspectsScore   int                  `json:"aspectsScore"`
	Thrombolysis   EligibilityResult    `json:"thrombolysis"`
	Thrombectomy   EligibilityResult    `json:"thrombectomy"`
	RtpaDose       *RtpaDose            `json:"rtpaDose"`
	ElapsedSeconds int64                `json:"elapsedSeconds"`
	Status         CaseStatus           `json:"status"`
}

// ElapsedMinutes returns the elapsed protocol time in whole minutes
func (c Case) ElapsedMinutes() int64 {
	return c.ElapsedSeconds / 60
}

// Clone returns a deep copy so callers cannot alter recorded history
func (c Case) Clone() Case {
	out := c
	out.Patient = c.Patient.Clone()
	out.Thrombolysis = c.Thrombolysis.clone()
	out.Thrombectomy = c.Thrombectomy.clone()
	if c.RtpaDose != nil {
		dose := *c.RtpaDose
		out.RtpaDose = &dose
	}
	return out
}

// ClockState is the state of the protocol clock
type ClockState string

// Clock states
const (
	ClockIdle      ClockState = "idle"
	ClockRunning   ClockState = "running"
	ClockFinalized ClockState = "finalized"
)

// Milestone is a display-only protocol timing target
type Milestone struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	LimitSeconds int64  `json:"limit_seconds"`
	Met          bool   `json:"met"`
}

// ClockSnapshot is a point-in-time view of the protocol clock
type ClockSnapshot struct {
	State          ClockState  `json:"state"`
	ArrivalInstant *time.Time  `json:"arrival_instant,omitempty"`
	ElapsedSeconds int64       `json:"elapsed_seconds"`
	Formatted      string      `json:"formatted"`
	Milestones     []Milestone `json:"milestones"`
}
