package archive

import (
	"time"

	"github.com/stroke-code-server/internal/domain"
)

func testCase(id string, eligible bool) domain.Case {
	age, weight := 64, 77.5
	var nihss domain.NihssAssessment
	_ = nihss.Set(domain.NihssArmLeft, 3)
	_ = nihss.Set(domain.NihssLanguage, 2)

	return domain.Case{
		ID:         id,
		Timestamp:  time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC),
		Patient:    domain.PatientData{Age: &age, Weight: &weight},
		Nihss:      nihss,
		Checklist:  domain.Checklist{Inclusion: domain.InclusionCriteria{TimeWindow: true}},
		NihssTotal: 5,
		Thrombolysis: domain.EligibilityResult{
			Reasons: []domain.Reason{{Code: "NIHSS_BELOW_5", Message: "NIHSS 5"}},
		},
		Thrombectomy:   domain.EligibilityResult{Eligible: eligible, Reasons: []domain.Reason{}},
		AspectsScore:   10,
		RtpaDose:       &domain.RtpaDose{Total: 69.8, Bolus: 7.0, Infusion: 62.8},
		ElapsedSeconds: 1800,
		Status:         domain.CaseStatusFinalized,
	}
}
