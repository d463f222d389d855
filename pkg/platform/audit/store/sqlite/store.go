// Package sqlite keeps a local copy of the audit log in a SQLite file so it
// survives restarts and can be inspected offline.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	audit "pedcare/pkg/platform/audit"
	txcontext "pedcare/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	run_id        TEXT    NOT NULL,
	id            TEXT    NOT NULL,
	timestamp     TEXT    NOT NULL,
	event_type    TEXT    NOT NULL,
	user_id       TEXT    NOT NULL,
	user_email    TEXT    NOT NULL,
	user_role     TEXT    NOT NULL,
	resource_type TEXT    NOT NULL,
	resource_id   TEXT    NOT NULL,
	patient_id    TEXT,
	ip_address    TEXT,
	details       TEXT    NOT NULL DEFAULT '{}',
	is_violation  INTEGER NOT NULL DEFAULT 0,
	severity      TEXT,
	reason        TEXT,
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	UNIQUE (run_id, id)
);
CREATE INDEX IF NOT EXISTS idx_audit_events_patient ON audit_events (patient_id);
`

type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the database at path and applies the
// schema. runID tags rows written by this process.
func Open(ctx context.Context, path string, runID uuid.UUID) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db, runID: runID.String()}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Name() string { return "sqlite" }

// Write inserts the batch in one transaction, ignoring rows already present.
func (s *Store) Write(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		for _, e := range events {
			details, err := json.Marshal(e.Details.Clone())
			if err != nil {
				return fmt.Errorf("marshal details for %s: %w", e.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO audit_events (
					run_id, id, timestamp, event_type, user_id, user_email, user_role,
					resource_type, resource_id, patient_id, ip_address, details,
					is_violation, severity, reason
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.runID,
				e.ID,
				e.Timestamp.Format(time.RFC3339Nano),
				string(e.Type),
				e.UserID,
				e.UserEmail,
				e.UserRole,
				e.ResourceType,
				e.ResourceID,
				nullString(e.PatientID),
				nullString(e.IPAddress),
				string(details),
				e.IsViolation,
				nullString(string(e.Severity)),
				nullString(e.Reason),
			)
			if err != nil {
				return fmt.Errorf("insert audit event %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	PatientID      string
	UserID         string
	ViolationsOnly bool
}

// List returns up to limit stored events across all runs, most recently
// written first.
func (s *Store) List(ctx context.Context, f Filter, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, timestamp, event_type, user_id, user_email, user_role,
			   resource_type, resource_id, patient_id, ip_address, details,
			   is_violation, severity, reason
		FROM audit_events
		WHERE (? = '' OR patient_id = ?)
		  AND (? = '' OR user_id = ?)
		  AND (? = 0 OR is_violation = 1)
		ORDER BY seq DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query,
		f.PatientID, f.PatientID,
		f.UserID, f.UserID,
		f.ViolationsOnly,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e                               audit.Event
			ts, eventType, details          string
			patientID, ip, severity, reason sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &ts, &eventType, &e.UserID, &e.UserEmail, &e.UserRole,
			&e.ResourceType, &e.ResourceID, &patientID, &ip, &details,
			&e.IsViolation, &severity, &reason,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("decode details of %s: %w", e.ID, err)
		}
		e.Type = audit.EventType(eventType)
		e.PatientID = patientID.String
		e.IPAddress = ip.String
		e.Severity = audit.Severity(severity.String)
		e.Reason = reason.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
