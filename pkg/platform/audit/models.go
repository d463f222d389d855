package audit

import (
	"fmt"
	"strings"
	"time"

	dErrors "pedcare/pkg/domain-errors"
)

// EventType classifies an access to the system. The set is closed; construct
// values from external input with ParseEventType.
type EventType string

const (
	// Access events
	EventViewPatient      EventType = "view_patient"
	EventViewHealthRecord EventType = "view_health_record"
	EventViewChatHistory  EventType = "view_chat_history"
	EventViewAppointments EventType = "view_appointments"

	// Modification events
	EventCreateAppointment EventType = "create_appointment"
	EventUpdateAppointment EventType = "update_appointment"
	EventUpdatePatient     EventType = "update_patient"

	// Authentication events
	EventLogin       EventType = "login"
	EventLogout      EventType = "logout"
	EventLoginFailed EventType = "login_failed"

	// Violation events. The classifier relabels events to the last three.
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventBulkDataAccess     EventType = "bulk_data_access"
	EventAfterHoursAccess   EventType = "after_hours_access"
	EventExcessiveQueries   EventType = "excessive_queries"
)

// validEventTypes is the single source of truth for the EventType enum.
var validEventTypes = map[EventType]bool{
	EventViewPatient:        true,
	EventViewHealthRecord:   true,
	EventViewChatHistory:    true,
	EventViewAppointments:   true,
	EventCreateAppointment:  true,
	EventUpdateAppointment:  true,
	EventUpdatePatient:      true,
	EventLogin:              true,
	EventLogout:             true,
	EventLoginFailed:        true,
	EventUnauthorizedAccess: true,
	EventBulkDataAccess:     true,
	EventAfterHoursAccess:   true,
	EventExcessiveQueries:   true,
}

// ParseEventType constructs an EventType from external input. Hyphenated
// tokens ("view-patient") are accepted and normalised.
//
// Errors: CodeInvalidInput when the value is empty or not in the enum.
func ParseEventType(s string) (EventType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if norm == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "event type cannot be empty")
	}
	t := EventType(norm)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid event type: %s", s))
	}
	return t, nil
}

// IsValid reports whether t is a member of the enum.
func (t EventType) IsValid() bool { return validEventTypes[t] }

func (t EventType) String() string { return string(t) }

// Severity grades a violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity is case-insensitive.
//
// Errors: CodeInvalidInput for anything outside the four levels.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid severity: %s", s))
	}
	return sev, nil
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (s Severity) String() string { return string(s) }

// Known values of Event.UserRole. Roles are free-form on the event; only
// these are compared against.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleOwner   = "owner"
)

// DetailUserPatientID carries the acting patient's own id for the
// self-access rule.
const DetailUserPatientID = "user_patient_id"

// Entry is what a collaborator supplies when recording an access. The
// engine assigns ID and Timestamp and decides the violation fields.
type Entry struct {
	Type         EventType
	UserID       string
	UserEmail    string
	UserRole     string
	ResourceType string
	ResourceID   string
	PatientID    string
	IPAddress    string
	Details      Details
}

// Event is a recorded access. Everything except the violation fields (and a
// classifier relabel of Type) is fixed at construction; the violation fields
// are written once, before the event is appended to the log.
type Event struct {
	ID           string
	Timestamp    time.Time
	Type         EventType
	UserID       string
	UserEmail    string
	UserRole     string
	ResourceType string
	ResourceID   string
	PatientID    string
	IPAddress    string
	Details      Details

	IsViolation bool
	Severity    Severity
	Reason      string
}

// HasPHI reports whether the event concerns a specific patient.
func (e Event) HasPHI() bool { return e.PatientID != "" }

// Clone returns a copy that shares no mutable state with e.
func (e Event) Clone() Event {
	e.Details = e.Details.Clone()
	return e
}
