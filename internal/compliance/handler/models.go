package handler

import (
	"time"

	auditsvc "pedcare/internal/audit"
	audit "pedcare/pkg/platform/audit"
)

// Compliance status values reported by the summary endpoint.
const (
	StatusCompliant          = "compliant"
	StatusViolationsDetected = "violations_detected"
)

type AuditLogResponse struct {
	Events []audit.Record `json:"events"`
	Total  int            `json:"total"`
}

type ViolationRecord struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	EventType    audit.EventType `json:"event_type"`
	UserEmail    string          `json:"user_email"`
	UserRole     string          `json:"user_role"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *string         `json:"resource_id"`
	PatientID    *string         `json:"patient_id"`
	Severity     *audit.Severity `json:"severity"`
	Reason       *string         `json:"reason"`
}

type ViolationsResponse struct {
	Violations []ViolationRecord `json:"violations"`
	Total      int               `json:"total"`
}

type SummaryResponse struct {
	Summary          auditsvc.Summary `json:"summary"`
	ComplianceStatus string           `json:"compliance_status"`
	LastUpdated      time.Time        `json:"last_updated"`
}

type PatientAccessRecord struct {
	ID              string          `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	EventType       audit.EventType `json:"event_type"`
	UserEmail       string          `json:"user_email"`
	UserRole        string          `json:"user_role"`
	IsViolation     bool            `json:"is_violation"`
	ViolationReason *string         `json:"violation_reason"`
}

type PatientAccessResponse struct {
	PatientID    string                `json:"patient_id"`
	AccessEvents []PatientAccessRecord `json:"access_events"`
	Total        int                   `json:"total"`
}

type ActivityRecord struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	EventType    audit.EventType `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *string         `json:"resource_id"`
	PatientID    *string         `json:"patient_id"`
	IsViolation  bool            `json:"is_violation"`
}

type UserActivityResponse struct {
	UserID   string           `json:"user_id"`
	Activity []ActivityRecord `json:"activity"`
	Total    int              `json:"total"`
}

type DailyAccessResponse struct {
	UserID      string         `json:"user_id"`
	DailyAccess map[string]int `json:"daily_access"`
	Total       int            `json:"total"`
}

type SampleEventsResponse struct {
	Message string           `json:"message"`
	Stats   auditsvc.Summary `json:"stats"`
}

func toViolationRecord(e audit.Event) ViolationRecord {
	r := ViolationRecord{
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		EventType:    e.Type,
		UserEmail:    e.UserEmail,
		UserRole:     e.UserRole,
		ResourceType: e.ResourceType,
		ResourceID:   audit.Optional(e.ResourceID),
		PatientID:    audit.Optional(e.PatientID),
		Reason:       audit.Optional(e.Reason),
	}
	if e.Severity != "" {
		sev := e.Severity
		r.Severity = &sev
	}
	return r
}

func toPatientAccessRecord(e audit.Event) PatientAccessRecord {
	return PatientAccessRecord{
		ID:              e.ID,
		Timestamp:       e.Timestamp,
		EventType:       e.Type,
		UserEmail:       e.UserEmail,
		UserRole:        e.UserRole,
		IsViolation:     e.IsViolation,
		ViolationReason: audit.Optional(e.Reason),
	}
}

func toActivityRecord(e audit.Event) ActivityRecord {
	return ActivityRecord{
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		EventType:    e.Type,
		ResourceType: e.ResourceType,
		ResourceID:   audit.Optional(e.ResourceID),
		PatientID:    audit.Optional(e.PatientID),
		IsViolation:  e.IsViolation,
	}
}

func mapEvents[T any](events []audit.Event, fn func(audit.Event) T) []T {
	out := make([]T, 0, len(events))
	for _, e := range events {
		out = append(out, fn(e))
	}
	return out
}
