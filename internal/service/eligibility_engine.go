package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// Thrombolysis reason codes, in evaluation order
const (
	ReasonTimeWindowNotConfirmed       = "TIME_WINDOW_NOT_CONFIRMED"
	ReasonNihssBelowFive               = "NIHSS_BELOW_5"
	ReasonDisablingSymptomsUnconfirmed = "DISABLING_SYMPTOMS_NOT_CONFIRMED"
	ReasonBleeding                     = "EXCLUSION_BLEEDING"
	ReasonHypertension                 = "EXCLUSION_HYPERTENSION"
	ReasonAnticoagulation              = "EXCLUSION_ANTICOAGULATION"
	ReasonGIBleeding                   = "EXCLUSION_GI_BLEEDING"
)

// Thrombectomy reason codes, in evaluation order
const (
	ReasonNoLargeVesselOcclusion = "NO_LARGE_VESSEL_OCCLUSION"
	ReasonNihssBelowSix          = "NIHSS_BELOW_6"
	ReasonAspectsBelowSix        = "ASPECTS_BELOW_6"
	ReasonPremorbidMRSAboveTwo   = "PREMORBID_MRS_ABOVE_2"
	ReasonTimeWindowUnset        = "TIME_WINDOW_UNSET"
	ReasonTimeWindowBeyond24h    = "TIME_WINDOW_BEYOND_24H"
	ReasonLifeExpectancy         = "CONTRAINDICATION_LIFE_EXPECTANCY"
	ReasonIntracranialHemorrhage = "CONTRAINDICATION_INTRACRANIAL_HEMORRHAGE"
	ReasonRapidImprovement       = "CONTRAINDICATION_RAPID_IMPROVEMENT"
)

// Eligibility thresholds
const (
	thrombolysisNihssThreshold = 5
	thrombectomyMinNihss       = 6
	thrombectomyMinAspects     = 6
	thrombectomyMaxMRS         = 2
)

// thrombolysisInput is the snapshot a thrombolysis check reads
type thrombolysisInput struct {
	checklist  domain.Checklist
	nihssTotal int
}

// thrombectomyInput is the snapshot a thrombectomy check reads
type thrombectomyInput struct {
	criteria     domain.ThrombectomyCriteria
	nihssTotal   int
	aspectsScore int
}

// thrombolysisCheck is one ordered thrombolysis rule. Evaluate returns a
// reason when the check contributes one.
type thrombolysisCheck struct {
	Code     string
	Name     string
	Evaluate func(in thrombolysisInput) *domain.Reason
}

// thrombectomyCheck is one ordered thrombectomy rule
type thrombectomyCheck struct {
	Code     string
	Name     string
	Evaluate func(in thrombectomyInput) *domain.Reason
}

// EligibilityEngine evaluates intravenous thrombolysis and mechanical
// thrombectomy eligibility. It holds no case state; its check tables are
// fixed at construction and their order is the reason order.
type EligibilityEngine struct {
	logger             *logrus.Logger
	thrombolysisChecks []thrombolysisCheck
	thrombectomyChecks []thrombectomyCheck
}

// NewEligibilityEngine creates a new eligibility engine
func NewEligibilityEngine(logger *logrus.Logger) *EligibilityEngine {
	engine := &EligibilityEngine{logger: logger}
	engine.initializeChecks()
	return engine
}

// Thrombolysis evaluates intravenous thrombolysis eligibility.
// Inclusion holds when the time window is confirmed and either the NIHSS>5
// flag is set or NIHSS<5 with disabling symptoms confirmed. Eligible when
// inclusion holds and no exclusion flag is set.
func (e *EligibilityEngine) Thrombolysis(checklist domain.Checklist, nihssTotal int) domain.EligibilityResult {
	in := thrombolysisInput{checklist: checklist, nihssTotal: nihssTotal}

	reasons := make([]domain.Reason, 0, len(e.thrombolysisChecks))
	for _, check := range e.thrombolysisChecks {
		if reason := check.Evaluate(in); reason != nil {
			reasons = append(reasons, *reason)
		}
	}

	inc := checklist.Inclusion
	inclusion := inc.TimeWindow &&
		(inc.NihssOver5 || (nihssTotal < thrombolysisNihssThreshold && inc.DisablingSymptoms))
	eligible := inclusion && !checklist.AnyExclusion()

	e.logger.WithFields(logrus.Fields{
		"nihss_total": nihssTotal,
		"inclusion":   inclusion,
		"exclusion":   checklist.AnyExclusion(),
		"eligible":    eligible,
		"reasons":     len(reasons),
	}).Debug("Evaluated thrombolysis eligibility")

	return domain.EligibilityResult{Eligible: eligible, Reasons: reasons}
}

// Thrombectomy evaluates mechanical thrombectomy eligibility. Every check
// must pass; each failing check contributes exactly one reason. PremorbidMRS
// is not clamped: callers validate it with ThrombectomyCriteria.Validate.
func (e *EligibilityEngine) Thrombectomy(criteria domain.ThrombectomyCriteria, nihssTotal, aspectsScore int) domain.EligibilityResult {
	in := thrombectomyInput{criteria: criteria, nihssTotal: nihssTotal, aspectsScore: aspectsScore}

	reasons := make([]domain.Reason, 0, len(e.thrombectomyChecks))
	for _, check := range e.thrombectomyChecks {
		if reason := check.Evaluate(in); reason != nil {
			reasons = append(reasons, *reason)
		}
	}
	eligible := len(reasons) == 0

	e.logger.WithFields(logrus.Fields{
		"nihss_total":   nihssTotal,
		"aspects_score": aspectsScore,
		"time_window":   string(criteria.TimeWindow),
		"eligible":      eligible,
		"reasons":       len(reasons),
	}).Debug("Evaluated thrombectomy eligibility")

	return domain.EligibilityResult{Eligible: eligible, Reasons: reasons}
}

// ThrombolysisCheckCodes returns the thrombolysis check codes in evaluation order
func (e *EligibilityEngine) ThrombolysisCheckCodes() []string {
	codes := make([]string, len(e.thrombolysisChecks))
	for i, check := range e.thrombolysisChecks {
		codes[i] = check.Code
	}
	return codes
}

// ThrombectomyCheckCodes returns the thrombectomy check codes in evaluation order
func (e *EligibilityEngine) ThrombectomyCheckCodes() []string {
	codes := make([]string, len(e.thrombectomyChecks))
	for i, check := range e.thrombectomyChecks {
		codes[i] = check.Code
	}
	return codes
}

// initializeChecks builds both rule tables
func (e *EligibilityEngine) initializeChecks() {
	// Thrombolysis inclusion
	e.addThrombolysisCheck(ReasonTimeWindowNotConfirmed, "Time window ≤4.5h confirmed", func(in thrombolysisInput) *domain.Reason {
		if in.checklist.Inclusion.TimeWindow {
			return nil
		}
		return reason(ReasonTimeWindowNotConfirmed, "Ventana temporal ≤4.5 horas no confirmada")
	})
	e.addThrombolysisCheck(ReasonNihssBelowFive, "NIHSS ≥5 or confirmed", func(in thrombolysisInput) *domain.Reason {
		if in.checklist.Inclusion.NihssOver5 || in.nihssTotal >= thrombolysisNihssThreshold {
			return nil
		}
		return reason(ReasonNihssBelowFive, fmt.Sprintf("NIHSS %d <5 puntos (considerar síntomas discapacitantes)", in.nihssTotal))
	})
	e.addThrombolysisCheck(ReasonDisablingSymptomsUnconfirmed, "Disabling symptoms confirmed for NIHSS <5", func(in thrombolysisInput) *domain.Reason {
		if in.checklist.Inclusion.DisablingSymptoms || in.nihssTotal >= thrombolysisNihssThreshold {
			return nil
		}
		return reason(ReasonDisablingSymptomsUnconfirmed, "Síntomas discapacitantes no confirmados para NIHSS <5")
	})

	// Thrombolysis exclusion
	e.addThrombolysisCheck(ReasonBleeding, "Active or recent bleeding", func(in thrombolysisInput) *domain.Reason {
		if !in.checklist.Exclusion.Bleeding {
			return nil
		}
		return reason(ReasonBleeding, "Presencia de sangrado activo o reciente")
	})
	e.addThrombolysisCheck(ReasonHypertension, "Refractory hypertension", func(in thrombolysisInput) *domain.Reason {
		if !in.checklist.Exclusion.Hypertension {
			return nil
		}
		return reason(ReasonHypertension, "Hipertensión >185/110 mmHg refractaria a tratamiento")
	})
	e.addThrombolysisCheck(ReasonAnticoagulation, "Recent anticoagulation", func(in thrombolysisInput) *domain.Reason {
		if !in.checklist.Exclusion.Anticoagulation {
			return nil
		}
		return reason(ReasonAnticoagulation, "Anticoagulación reciente (INR >1.7, heparina <48h)")
	})
	e.addThrombolysisCheck(ReasonGIBleeding, "Gastrointestinal bleeding <21 days", func(in thrombolysisInput) *domain.Reason {
		if !in.checklist.Exclusion.GIBleeding {
			return nil
		}
		return reason(ReasonGIBleeding, "Sangrado gastrointestinal <21 días")
	})

	// Thrombectomy positive conditions
	e.addThrombectomyCheck(ReasonNoLargeVesselOcclusion, "Large vessel occlusion confirmed", func(in thrombectomyInput) *domain.Reason {
		if in.criteria.LargeVesselOcclusion {
			return nil
		}
		return reason(ReasonNoLargeVesselOcclusion, "No hay oclusión de gran vaso confirmada (requiere angioTC/angioRM)")
	})
	e.addThrombectomyCheck(ReasonNihssBelowSix, "NIHSS ≥6", func(in thrombectomyInput) *domain.Reason {
		if in.nihssTotal >= thrombectomyMinNihss {
			return nil
		}
		return reason(ReasonNihssBelowSix, fmt.Sprintf("NIHSS %d <6 puntos (umbral mínimo para trombectomía mecánica)", in.nihssTotal))
	})
	e.addThrombectomyCheck(ReasonAspectsBelowSix, "ASPECTS ≥6", func(in thrombectomyInput) *domain.Reason {
		if in.aspectsScore >= thrombectomyMinAspects {
			return nil
		}
		return reason(ReasonAspectsBelowSix, fmt.Sprintf("ASPECTS %d <6 puntos (alto riesgo de transformación hemorrágica)", in.aspectsScore))
	})
	e.addThrombectomyCheck(ReasonPremorbidMRSAboveTwo, "Premorbid mRS ≤2", func(in thrombectomyInput) *domain.Reason {
		if in.criteria.PremorbidMRS <= thrombectomyMaxMRS {
			return nil
		}
		return reason(ReasonPremorbidMRSAboveTwo, fmt.Sprintf("mRS premórbido %d >2 (dependencia funcional previa significativa)", in.criteria.PremorbidMRS))
	})
	e.addThrombectomyCheck(ReasonTimeWindowUnset, "Time window within 24h", func(in thrombectomyInput) *domain.Reason {
		switch in.criteria.TimeWindow {
		case domain.TimeWindowUnset:
			return reason(ReasonTimeWindowUnset, "Ventana temporal no definida")
		case domain.TimeWindowLate:
			return reason(ReasonTimeWindowBeyond24h, "Ventana temporal >24 horas (fuera de criterios estándar)")
		}
		return nil
	})

	// Thrombectomy contraindications
	e.addThrombectomyCheck(ReasonLifeExpectancy, "Life expectancy <6 months", func(in thrombectomyInput) *domain.Reason {
		if !in.criteria.Contraindications.LifeExpectancy {
			return nil
		}
		return reason(ReasonLifeExpectancy, "Expectativa de vida <6 meses (mal pronóstico basal)")
	})
	e.addThrombectomyCheck(ReasonIntracranialHemorrhage, "Active intracranial hemorrhage", func(in thrombectomyInput) *domain.Reason {
		if !in.criteria.Contraindications.IntracranialHemorrhage {
			return nil
		}
		return reason(ReasonIntracranialHemorrhage, "Hemorragia intracraneal activa")
	})
	e.addThrombectomyCheck(ReasonRapidImprovement, "Rapid neurological improvement", func(in thrombectomyInput) *domain.Reason {
		if !in.criteria.Contraindications.RapidImprovement {
			return nil
		}
		return reason(ReasonRapidImprovement, "Mejoría neurológica rápida (NIHSS mejora >4 puntos)")
	})

	e.logger.WithFields(logrus.Fields{
		"thrombolysis_checks": len(e.thrombolysisChecks),
		"thrombectomy_checks": len(e.thrombectomyChecks),
	}).Debug("Initialized eligibility checks")
}

func (e *EligibilityEngine) addThrombolysisCheck(code, name string, evaluate func(in thrombolysisInput) *domain.Reason) {
	e.thrombolysisChecks = append(e.thrombolysisChecks, thrombolysisCheck{Code: code, Name: name, Evaluate: evaluate})
}

func (e *EligibilityEngine) addThrombectomyCheck(code, name string, evaluate func(in thrombectomyInput) *domain.Reason) {
	e.thrombectomyChecks = append(e.thrombectomyChecks, thrombectomyCheck{Code: code, Name: name, Evaluate: evaluate})
}

func reason(code, message string) *domain.Reason {
	return &domain.Reason{Code: code, Message: message}
}
