package domain

import (
	"testing"
)

func TestChecklist(t *testing.T) {
	var c Checklist
	if c.Touched() || c.AnyExclusion() {
		t.Error("Zero checklist should be untouched")
	}

	c.Exclusion.GIBleeding = true
	if !c.Touched() || !c.AnyExclusion() {
		t.Error("Exclusion flag should mark the checklist touched")
	}

	c = Checklist{Inclusion: InclusionCriteria{DisablingSymptoms: true}}
	if !c.Touched() {
		t.Error("Inclusion flag should mark the checklist touched")
	}
	if c.AnyExclusion() {
		t.Error("Inclusion flag is not an exclusion")
	}
}

func TestThrombectomyCriteria_Validate(t *testing.T) {
	tests := []struct {
		name     string
		criteria ThrombectomyCriteria
		wantErr  bool
	}{
		{"Defaults", ThrombectomyCriteria{}, false},
		{"mRS at upper bound", ThrombectomyCriteria{PremorbidMRS: 5, TimeWindow: TimeWindowLate}, false},
		{"mRS above range", ThrombectomyCriteria{PremorbidMRS: 6}, true},
		{"Negative mRS", ThrombectomyCriteria{PremorbidMRS: -1}, true},
		{"Unknown window", ThrombectomyCriteria{TimeWindow: "4.5h"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPatientData(t *testing.T) {
	age, weight := 70, 82.5
	p := PatientData{Age: &age, Weight: &weight}
	if err := p.Validate(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	clone := p.Clone()
	*clone.Age = 1
	*clone.Weight = 1
	if *p.Age != 70 || *p.Weight != 82.5 {
		t.Error("Clone shares pointers with the original")
	}

	zero := 0.0
	if err := (PatientData{Weight: &zero}).Validate(); err == nil {
		t.Error("Expected zero weight to be rejected")
	}
}

func TestRecipients(t *testing.T) {
	r := Recipients{Neurologo: "neuro@hospital.es", Hemodinamia: "hemo@hospital.es"}
	empty := r.EmptyRoles()
	if len(empty) != 2 || empty[0] != RoleEmergencias || empty[1] != RoleAdministracion {
		t.Errorf("Unexpected empty roles: %v", empty)
	}
	if err := r.Validate(); err == nil {
		t.Error("Expected validation error for missing recipients")
	}

	r.Emergencias = "urgencias@hospital.es"
	r.Administracion = "admin@hospital.es"
	if err := r.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
