package audit

import (
	"time"

	dErrors "pedcare/pkg/domain-errors"
)

// Record is the wire form of an Event, shared by the HTTP API and the
// stream sink. Empty optional fields encode as null.
type Record struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	EventType         EventType `json:"event_type"`
	UserID            string    `json:"user_id"`
	UserEmail         string    `json:"user_email"`
	UserRole          string    `json:"user_role"`
	ResourceType      string    `json:"resource_type"`
	ResourceID        *string   `json:"resource_id"`
	PatientID         *string   `json:"patient_id"`
	IPAddress         *string   `json:"ip_address"`
	Details           Details   `json:"details"`
	IsViolation       bool      `json:"is_violation"`
	ViolationSeverity *Severity `json:"violation_severity"`
	ViolationReason   *string   `json:"violation_reason"`
}

func NewRecord(e Event) Record {
	r := Record{
		ID:              e.ID,
		Timestamp:       e.Timestamp,
		EventType:       e.Type,
		UserID:          e.UserID,
		UserEmail:       e.UserEmail,
		UserRole:        e.UserRole,
		ResourceType:    e.ResourceType,
		ResourceID:      Optional(e.ResourceID),
		PatientID:       Optional(e.PatientID),
		IPAddress:       Optional(e.IPAddress),
		Details:         e.Details.Clone(),
		IsViolation:     e.IsViolation,
		ViolationReason: Optional(e.Reason),
	}
	if e.Severity != "" {
		sev := e.Severity
		r.ViolationSeverity = &sev
	}
	return r
}

// Event converts a decoded record back into an Event.
//
// Errors: CodeInvalidInput when the event type or severity is unknown, or when
// is_violation disagrees with the presence of severity and reason.
func (r Record) Event() (Event, error) {
	if !r.EventType.IsValid() {
		return Event{}, dErrors.New(dErrors.CodeInvalidInput, "invalid event type: "+string(r.EventType))
	}
	e := Event{
		ID:           r.ID,
		Timestamp:    r.Timestamp,
		Type:         r.EventType,
		UserID:       r.UserID,
		UserEmail:    r.UserEmail,
		UserRole:     r.UserRole,
		ResourceType: r.ResourceType,
		ResourceID:   deref(r.ResourceID),
		PatientID:    deref(r.PatientID),
		IPAddress:    deref(r.IPAddress),
		Details:      r.Details.Clone(),
		IsViolation:  r.IsViolation,
		Reason:       deref(r.ViolationReason),
	}
	if r.ViolationSeverity != nil {
		if !r.ViolationSeverity.IsValid() {
			return Event{}, dErrors.New(dErrors.CodeInvalidInput, "invalid severity: "+string(*r.ViolationSeverity))
		}
		e.Severity = *r.ViolationSeverity
	}
	if flagged := e.Severity != "" && e.Reason != ""; flagged != e.IsViolation {
		return Event{}, dErrors.New(dErrors.CodeInvalidInput, "is_violation requires both violation_severity and violation_reason")
	}
	if !e.IsViolation && (e.Severity != "" || e.Reason != "") {
		return Event{}, dErrors.New(dErrors.CodeInvalidInput, "violation_severity and violation_reason require is_violation")
	}
	return e, nil
}

// Optional maps an empty string to null.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
