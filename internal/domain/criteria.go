package domain

// InclusionCriteria are the thrombolysis inclusion flags
type InclusionCriteria struct {
	TimeWindow        bool `json:"timeWindow"`
	NihssOver5        bool `json:"nihssOver5"`
	DisablingSymptoms bool `json:"disablingSymptoms"`
}

// ExclusionCriteria are the thrombolysis exclusion flags
type ExclusionCriteria struct {
	Bleeding        bool `json:"bleeding"`
	Hypertension    bool `json:"hypertension"`
	Anticoagulation bool `json:"anticoagulation"`
	GIBleeding      bool `json:"giBleeding"`
}

// Checklist is the thrombolysis inclusion/exclusion checklist
type Checklist struct {
	Inclusion InclusionCriteria `json:"inclusionCriteria"`
	Exclusion ExclusionCriteria `json:"exclusionCriteria"`
}

// AnyExclusion reports whether any exclusion flag is set
func (c Checklist) AnyExclusion() bool {
	e := c.Exclusion
	return e.Bleeding || e.Hypertension || e.Anticoagulation || e.GIBleeding
}

// Touched reports whether any inclusion or exclusion flag is set
func (c Checklist) Touched() bool {
	i := c.Inclusion
	return i.TimeWindow || i.NihssOver5 || i.DisablingSymptoms || c.AnyExclusion()
}

// TimeWindow is the thrombectomy time window since symptom onset
type TimeWindow string

// Time windows. TimeWindowUnset is the zero value.
const (
	TimeWindowUnset    TimeWindow = ""
	TimeWindowEarly    TimeWindow = "0-6h"
	TimeWindowExtended TimeWindow = "6-24h"
	TimeWindowLate     TimeWindow = ">24h"
)

// Valid reports whether the window is one of the known values
func (w TimeWindow) Valid() bool {
	switch w {
	case TimeWindowUnset, TimeWindowEarly, TimeWindowExtended, TimeWindowLate:
		return true
	}
	return false
}

// Contraindications are the thrombectomy contraindication flags
type Contraindications struct {
	LifeExpectancy         bool `json:"lifeExpectancy"`
	IntracranialHemorrhage bool `json:"intracranialHemorrhage"`
	RapidImprovement       bool `json:"rapidImprovement"`
}

// Any reports whether any contraindication is set
func (c Contraindications) Any() bool {
	return c.LifeExpectancy || c.IntracranialHemorrhage || c.RapidImprovement
}

// MaxPremorbidMRS is the upper bound of the premorbid mRS input
const MaxPremorbidMRS = 5

// ThrombectomyCriteria are the mechanical thrombectomy inputs
type ThrombectomyCriteria struct {
	TimeWindow           TimeWindow        `json:"timeWindow"`
	LargeVesselOcclusion bool              `json:"largeVesselOcclusion"`
	PremorbidMRS         int               `json:"premorbidMRS"`
	Contraindications    Contraindications `json:"contraindications"`
}

// Validate checks the inputs the eligibility engine does not clamp
func (t ThrombectomyCriteria) Validate() error {
	if t.PremorbidMRS < 0 || t.PremorbidMRS > MaxPremorbidMRS {
		return NewValidationError("premorbidMRS", "must be between 0 and 5", t.PremorbidMRS)
	}
	if !t.TimeWindow.Valid() {
		return NewValidationError("timeWindow", "must be one of 0-6h, 6-24h, >24h or empty", string(t.TimeWindow))
	}
	return nil
}

// PatientData is the free-form patient intake. Age and Weight are absent when nil.
type PatientData struct {
	Age           *int     `json:"age,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	BloodPressure string   `json:"bloodPressure,omitempty"`
	Glucose       string   `json:"glucose,omitempty"`
	SymptomOnset  string   `json:"symptomOnset,omitempty"`
}

// Validate rejects negative age and non-positive weight when present
func (p PatientData) Validate() error {
	if p.Age != nil && *p.Age < 0 {
		return NewValidationError("age", "must not be negative", *p.Age)
	}
	if p.Weight != nil && !(*p.Weight > 0) {
		return NewValidationError("weight", "must be a positive number of kilograms", *p.Weight)
	}
	return nil
}

// Clone returns a copy that shares no pointers with p
func (p PatientData) Clone() PatientData {
	out := p
	if p.Age != nil {
		age := *p.Age
		out.Age = &age
	}
	if p.Weight != nil {
		weight := *p.Weight
		out.Weight = &weight
	}
	return out
}
