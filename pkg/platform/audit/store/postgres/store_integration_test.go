//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/store/postgres"
	"pedcare/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB, uuid.New())
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func testEvent(n int, at time.Time) audit.Event {
	return audit.Event{
		ID:           fmt.Sprintf("AUD-%06d", n),
		Timestamp:    at,
		Type:         audit.EventViewPatient,
		UserID:       "doctor-1",
		UserEmail:    "doctor@example.com",
		UserRole:     audit.RoleDoctor,
		ResourceType: "patient",
		ResourceID:   "P001",
		PatientID:    "P001",
	}
}

func (s *PostgresStoreSuite) TestWriteAndList() {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	violation := testEvent(2, base.Add(time.Minute))
	violation.Type = audit.EventUnauthorizedAccess
	violation.IsViolation = true
	violation.Severity = audit.SeverityHigh
	violation.Reason = "Attempted unauthorized access to PHI"
	violation.Details = audit.Details{"reason": audit.String("Invalid authentication token")}

	s.Require().NoError(s.store.Write(ctx, []audit.Event{testEvent(1, base), violation}))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("AUD-000002", events[0].ID)
	s.Equal(audit.SeverityHigh, events[0].Severity)
	s.True(events[0].IsViolation)
	reason, _ := events[0].Details.StringValue("reason")
	s.Equal("Invalid authentication token", reason)
	s.Empty(events[1].Severity)
	s.Empty(events[1].IPAddress)
}

func (s *PostgresStoreSuite) TestWriteIsIdempotent() {
	ctx := context.Background()
	batch := []audit.Event{testEvent(1, time.Now())}

	s.Require().NoError(s.store.Write(ctx, batch))
	s.Require().NoError(s.store.Write(ctx, batch))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestRunsDoNotCollide() {
	ctx := context.Background()
	other := postgres.New(s.postgres.DB, uuid.New())

	s.Require().NoError(s.store.Write(ctx, []audit.Event{testEvent(1, time.Now())}))
	s.Require().NoError(other.Write(ctx, []audit.Event{testEvent(1, time.Now())}))

	events, err := s.store.ListByPatient(ctx, "P001", 10)
	s.Require().NoError(err)
	s.Len(events, 2)
}
