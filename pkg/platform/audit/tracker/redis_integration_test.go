//go:build integration

package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/tracker"
	"pedcare/pkg/testutil/containers"
)

type RedisMirrorSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	mirror *tracker.RedisMirror
}

func TestRedisMirrorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisMirrorSuite))
}

func (s *RedisMirrorSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisMirrorSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.mirror = tracker.NewRedisMirror(s.redis.Client, uuid.New(), tracker.WithTTL(time.Hour))
}

func (s *RedisMirrorSuite) TestWriteCountsPHIEventsPerDay() {
	ctx := context.Background()
	day1 := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	batch := []audit.Event{
		{ID: "AUD-000001", UserID: "doctor-1", PatientID: "P001", Timestamp: day1},
		{ID: "AUD-000002", UserID: "doctor-1", PatientID: "P002", Timestamp: day1},
		{ID: "AUD-000003", UserID: "doctor-1", Timestamp: day1, Type: audit.EventLogin},
		{ID: "AUD-000004", UserID: "doctor-1", PatientID: "P001", Timestamp: day2},
	}
	s.Require().NoError(s.mirror.Write(ctx, batch))
	// retried batch must not double count
	s.Require().NoError(s.mirror.Write(ctx, batch))

	n, err := s.mirror.Count(ctx, "doctor-1", "2026-03-10")
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.mirror.Count(ctx, "doctor-1", "2026-03-11")
	s.Require().NoError(err)
	s.Equal(1, n)

	ttl, err := s.redis.Client.TTL(ctx, "phi:access:doctor-1:2026-03-10").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Hour)
}

func (s *RedisMirrorSuite) TestCountMissingKeyIsZero() {
	n, err := s.mirror.Count(context.Background(), "nobody", "2026-03-10")
	s.Require().NoError(err)
	s.Zero(n)
}
