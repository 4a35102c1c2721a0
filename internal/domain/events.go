package domain

import (
	"time"
)

// EventType is the kind of notification emitted by the stroke code
type EventType string

// Notification event types
const (
	EventCodeActivated EventType = "CodeActivated"
	EventCaseSummary   EventType = "CaseSummary"
	EventTest          EventType = "Test"
)

// Recipient roles
const (
	RoleNeurologo      = "neurologo"
	RoleEmergencias    = "emergencias"
	RoleHemodinamia    = "hemodinamia"
	RoleAdministracion = "administracion"
)

// Recipients maps each care-team role to a contact address
type Recipients struct {
	Neurologo      string `json:"neurologo" mapstructure:"neurologo"`
	Emergencias    string `json:"emergencias" mapstructure:"emergencias"`
	Hemodinamia    string `json:"hemodinamia" mapstructure:"hemodinamia"`
	Administracion string `json:"administracion" mapstructure:"administracion"`
}

// EmptyRoles lists the roles with no contact address, in role order
func (r Recipients) EmptyRoles() []string {
	var empty []string
	for _, entry := range []struct {
		role    string
		address string
	}{
		{RoleNeurologo, r.Neurologo},
		{RoleEmergencias, r.Emergencias},
		{RoleHemodinamia, r.Hemodinamia},
		{RoleAdministracion, r.Administracion},
	} {
		if entry.address == "" {
			empty = append(empty, entry.role)
		}
	}
	return empty
}

// Validate requires every role to have a non-empty address
func (r Recipients) Validate() error {
	if empty := r.EmptyRoles(); len(empty) > 0 {
		return NewValidationError("recipients", "missing contact address for roles", empty)
	}
	return nil
}

// Event is a notification request handed to the external dispatcher
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	Recipients Recipients  `json:"recipients"`
	Payload    interface{} `json:"payload"`
}

// CodeActivatedPayload announces a new stroke code
type CodeActivatedPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// CaseSummaryPayload summarizes a finalized case
type CaseSummaryPayload struct {
	Case                 Case      `json:"case"`
	ElapsedMinutes       int64     `json:"elapsedMinutes"`
	ThrombolysisEligible bool      `json:"thrombolysisEligible"`
	ThrombectomyEligible bool      `json:"thrombectomyEligible"`
	RtpaDose             *RtpaDose `json:"rtpaDose"`
}

// TestPayload is sent to verify recipient configuration
type TestPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
