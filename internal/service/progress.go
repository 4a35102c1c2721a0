package service

import (
	"fmt"

	"github.com/stroke-code-server/internal/domain"
)

// Section names used for access control in the protocol workflow
const (
	SectionPatient      = "patient"
	SectionNihss        = "nihss"
	SectionChecklist    = "checklist"
	SectionRtpa         = "rtpa"
	SectionAspects      = "aspects"
	SectionThrombectomy = "thrombectomy"
	SectionSummary      = "summary"
)

// ProtocolProgress tracks which protocol steps have data
type ProtocolProgress struct {
	NihssCompleted       bool `json:"nihssCompleted"`
	ChecklistCompleted   bool `json:"checklistCompleted"`
	AspectsCompleted     bool `json:"aspectsCompleted"`
	CanFinishCase        bool `json:"canFinishCase"`
	ThrombolysisEligible bool `json:"thrombolysisEligible"`
}

// Progress derives protocol progress from the current inputs
func Progress(nihss domain.NihssAssessment, checklist domain.Checklist, aspects domain.AspectsAssessment, patient domain.PatientData, thrombolysis domain.EligibilityResult) ProtocolProgress {
	aspectsTouched := false
	for _, intact := range aspects.Flags() {
		if !intact {
			aspectsTouched = true
			break
		}
	}
	return ProtocolProgress{
		NihssCompleted:       nihss.Evaluated(),
		ChecklistCompleted:   checklist.Touched(),
		AspectsCompleted:     aspectsTouched,
		CanFinishCase:        CanFinalize(nihss, checklist, patient),
		ThrombolysisEligible: thrombolysis.Eligible,
	}
}

// CanAccess reports whether a section is reachable given the progress.
// Unknown sections are open.
func (p ProtocolProgress) CanAccess(section string) bool {
	switch section {
	case SectionRtpa:
		return p.ThrombolysisEligible
	case SectionThrombectomy, SectionAspects:
		return p.NihssCompleted
	}
	return true
}

// Access returns the reachability of every protocol section
func (p ProtocolProgress) Access() map[string]bool {
	sections := []string{SectionPatient, SectionNihss, SectionChecklist, SectionRtpa, SectionAspects, SectionThrombectomy, SectionSummary}
	out := make(map[string]bool, len(sections))
	for _, section := range sections {
		out[section] = p.CanAccess(section)
	}
	return out
}

// Recommendation kinds
const (
	RecommendationUrgentThrombectomy  = "URGENT_THROMBECTOMY"
	RecommendationPerfusionImaging    = "PERFUSION_IMAGING"
	RecommendationCombinedTherapy     = "COMBINED_THERAPY"
	RecommendationDirectThrombectomy  = "DIRECT_THROMBECTOMY"
	RecommendationConfirmOcclusion    = "CONFIRM_LARGE_VESSEL_OCCLUSION"
	RecommendationReassessNihss       = "REASSESS_LOW_NIHSS"
	RecommendationReviewAspects       = "REVIEW_LOW_ASPECTS"
	RecommendationDiscussCareGoals    = "DISCUSS_CARE_GOALS"
	RecommendationStandardMedicalCare = "STANDARD_MEDICAL_TREATMENT"
)

// Recommendation is an advisory next step shown with eligibility results
type Recommendation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// clinicalAdvice maps a failed thrombectomy check to its follow-up, in check order
var clinicalAdvice = []struct {
	reason string
	rec    Recommendation
}{
	{ReasonNoLargeVesselOcclusion, Recommendation{
		Code:    RecommendationConfirmOcclusion,
		Message: "Confirmar oclusión de gran vaso con angioTC/angioRM urgente",
	}},
	{ReasonNihssBelowSix, Recommendation{
		Code:    RecommendationReassessNihss,
		Message: "NIHSS bajo: considerar evolución clínica y reevaluación",
	}},
	{ReasonAspectsBelowSix, Recommendation{
		Code:    RecommendationReviewAspects,
		Message: "ASPECTS bajo: evaluar riesgo-beneficio con neurólogo vascular",
	}},
	{ReasonPremorbidMRSAboveTwo, Recommendation{
		Code:    RecommendationDiscussCareGoals,
		Message: "Dependencia funcional previa: discutir objetivos de cuidado con familia",
	}},
}

// Recommendations returns the advisory next steps for the thrombectomy
// decision. An eligible thrombectomy gets window and therapy advice; an
// ineligible one gets follow-up for each failed check and standard medical
// treatment.
func Recommendations(criteria domain.ThrombectomyCriteria, thrombolysis, thrombectomy domain.EligibilityResult) []Recommendation {
	var out []Recommendation
	if !thrombectomy.Eligible {
		for _, advice := range clinicalAdvice {
			if thrombectomy.HasReason(advice.reason) {
				out = append(out, advice.rec)
			}
		}
		return append(out, Recommendation{
			Code:    RecommendationStandardMedicalCare,
			Message: "Tratamiento médico estándar: antiagregación, control de factores de riesgo",
		})
	}

	switch criteria.TimeWindow {
	case domain.TimeWindowEarly:
		out = append(out, Recommendation{
			Code:    RecommendationUrgentThrombectomy,
			Message: "Ventana 0-6h: trombectomía urgente, contactar con hemodinamia",
		})
	case domain.TimeWindowExtended:
		out = append(out, Recommendation{
			Code:    RecommendationPerfusionImaging,
			Message: "Ventana 6-24h: requiere estudio de perfusión (mismatch) antes del procedimiento",
		})
	}

	if thrombolysis.Eligible {
		out = append(out, Recommendation{
			Code:    RecommendationCombinedTherapy,
			Message: "Terapia combinada: rtPA IV seguido de trombectomía mecánica",
		})
	} else {
		out = append(out, Recommendation{
			Code:    RecommendationDirectThrombectomy,
			Message: "Trombectomía mecánica directa",
		})
	}
	return out
}

// AdministrationProtocol lists the alteplase administration and monitoring
// steps for a dose
func AdministrationProtocol(dose domain.RtpaDose) []string {
	return []string{
		fmt.Sprintf("Administrar %.1f mg como bolo IV en 1 minuto", dose.Bolus),
		fmt.Sprintf("Continuar con %.1f mg en infusión durante 60 minutos", dose.Infusion),
		"Monitorear TA cada 15 min las primeras 2 horas",
		"NIHSS cada hora durante las primeras 6 horas",
		"Suspender si deterioro neurológico súbito",
	}
}
