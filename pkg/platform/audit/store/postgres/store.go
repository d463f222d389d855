// Package postgres persists audit events to PostgreSQL as a sink.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	audit "pedcare/pkg/platform/audit"
	txcontext "pedcare/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	run_id        UUID        NOT NULL,
	id            TEXT        NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	event_type    TEXT        NOT NULL,
	user_id       TEXT        NOT NULL,
	user_email    TEXT        NOT NULL,
	user_role     TEXT        NOT NULL,
	resource_type TEXT        NOT NULL,
	resource_id   TEXT        NOT NULL,
	patient_id    TEXT,
	ip_address    TEXT,
	details       JSONB       NOT NULL DEFAULT '{}',
	is_violation  BOOLEAN     NOT NULL DEFAULT FALSE,
	severity      TEXT,
	reason        TEXT,
	PRIMARY KEY (run_id, id)
);
CREATE INDEX IF NOT EXISTS idx_audit_events_patient ON audit_events (patient_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_events_violation ON audit_events (timestamp DESC) WHERE is_violation;
`

// Store writes events to the audit_events table. Event ids restart with
// every process, so rows are keyed by (run id, event id).
type Store struct {
	db    *sql.DB
	runID uuid.UUID
}

func New(db *sql.DB, runID uuid.UUID) *Store {
	return &Store{db: db, runID: runID}
}

// Open connects through the pgx database/sql driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the table and indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Write inserts the batch in one transaction. Idempotent via ON CONFLICT DO
// NOTHING, so a retried batch does not duplicate rows.
func (s *Store) Write(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, e := range events {
			if err := s.append(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) append(ctx context.Context, e audit.Event) error {
	details, err := json.Marshal(e.Details.Clone())
	if err != nil {
		return fmt.Errorf("marshal details for %s: %w", e.ID, err)
	}

	query := `
		INSERT INTO audit_events (
			run_id, id, timestamp, event_type, user_id, user_email, user_role,
			resource_type, resource_id, patient_id, ip_address, details,
			is_violation, severity, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id, id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		s.runID,
		e.ID,
		e.Timestamp,
		string(e.Type),
		e.UserID,
		e.UserEmail,
		e.UserRole,
		e.ResourceType,
		e.ResourceID,
		nullString(e.PatientID),
		nullString(e.IPAddress),
		details,
		e.IsViolation,
		nullString(string(e.Severity)),
		nullString(e.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", e.ID, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, timestamp, event_type, user_id, user_email, user_role,
		   resource_type, resource_id, patient_id, ip_address, details,
		   is_violation, severity, reason
	FROM audit_events
`

// ListRecent returns the newest events of this run, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		selectColumns+`WHERE run_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		s.runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByPatient returns events touching patientID across all runs.
func (s *Store) ListByPatient(ctx context.Context, patientID string, limit int) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		selectColumns+`WHERE patient_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query patient audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	events := []audit.Event{}
	for rows.Next() {
		var (
			e                               audit.Event
			eventType                       string
			patientID, ip, severity, reason sql.NullString
			details                         []byte
		)
		err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&eventType,
			&e.UserID,
			&e.UserEmail,
			&e.UserRole,
			&e.ResourceType,
			&e.ResourceID,
			&patientID,
			&ip,
			&details,
			&e.IsViolation,
			&severity,
			&reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = audit.EventType(eventType)
		e.PatientID = patientID.String
		e.IPAddress = ip.String
		e.Severity = audit.Severity(severity.String)
		e.Reason = reason.String
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode details of %s: %w", e.ID, err)
		}
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
