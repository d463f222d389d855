package audit

import (
	"context"

	audit "pedcare/pkg/platform/audit"
)

// sampleEntries is a fixed scenario that exercises normal access, an
// unauthorized attempt and a patient reaching another patient's record.
var sampleEntries = []audit.Entry{
	{
		Type:         audit.EventViewPatient,
		UserID:       "doctor-1",
		UserEmail:    "doctor@example.com",
		UserRole:     audit.RoleDoctor,
		ResourceType: "patient",
		ResourceID:   "P001",
		PatientID:    "P001",
	},
	{
		Type:         audit.EventViewHealthRecord,
		UserID:       "doctor-1",
		UserEmail:    "doctor@example.com",
		UserRole:     audit.RoleDoctor,
		ResourceType: "health_record",
		ResourceID:   "HR001",
		PatientID:    "P001",
	},
	{
		Type:         audit.EventViewPatient,
		UserID:       "doctor-1",
		UserEmail:    "doctor@example.com",
		UserRole:     audit.RoleDoctor,
		ResourceType: "patient",
		ResourceID:   "P002",
		PatientID:    "P002",
	},
	{
		Type:         audit.EventUnauthorizedAccess,
		UserID:       "unknown",
		UserEmail:    "hacker@malicious.com",
		UserRole:     "unknown",
		ResourceType: "patient",
		ResourceID:   "P001",
		PatientID:    "P001",
		Details:      audit.Details{"reason": audit.String("Invalid authentication token")},
	},
	{
		Type:         audit.EventViewPatient,
		UserID:       "patient-2",
		UserEmail:    "other.patient@example.com",
		UserRole:     audit.RolePatient,
		ResourceType: "patient",
		ResourceID:   "P001",
		PatientID:    "P001",
		Details:      audit.Details{audit.DetailUserPatientID: audit.String("P002")},
	},
}

// GenerateSampleEvents records the sample scenario and returns the events.
func (e *Engine) GenerateSampleEvents(ctx context.Context) []audit.Event {
	out := make([]audit.Event, 0, len(sampleEntries))
	for _, entry := range sampleEntries {
		entry.Details = entry.Details.Clone()
		out = append(out, e.LogEvent(ctx, entry))
	}
	return out
}
