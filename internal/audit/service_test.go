package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/metrics"
)

// =============================================================================
// Engine Test Suite
// =============================================================================
// The suite runs once per window implementation; both must classify
// identically.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Publish(e audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type EngineSuite struct {
	suite.Suite
	indexed   bool
	clock     *fakeClock
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	publisher *recordingPublisher
	engine    *Engine
}

func TestEngineSuite_LogScan(t *testing.T) {
	suite.Run(t, &EngineSuite{})
}

func TestEngineSuite_IndexedWindows(t *testing.T) {
	suite.Run(t, &EngineSuite{indexed: true})
}

// 10:00 UTC on a weekday, inside business hours.
var businessMorning = time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)

func (s *EngineSuite) SetupTest() {
	s.clock = &fakeClock{t: businessMorning}
	s.registry = prometheus.NewRegistry()
	s.metrics = metrics.New(s.registry)
	s.publisher = &recordingPublisher{}

	opts := []Option{
		WithClock(s.clock.Now),
		WithLocation(time.UTC),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
	}
	if s.indexed {
		opts = append(opts, WithIndexedWindows())
	}
	s.engine = New(opts...)
}

func (s *EngineSuite) view(userID, patientID string) audit.Entry {
	return audit.Entry{
		Type:         audit.EventViewPatient,
		UserID:       userID,
		UserEmail:    userID + "@example.com",
		UserRole:     audit.RoleDoctor,
		ResourceType: "patient",
		ResourceID:   patientID,
		PatientID:    patientID,
		IPAddress:    "192.168.1.10",
	}
}

func (s *EngineSuite) log(entry audit.Entry) audit.Event {
	return s.engine.LogEvent(context.Background(), entry)
}

// =============================================================================
// Recording Tests
// =============================================================================

func (s *EngineSuite) TestLogEvent() {
	s.Run("assigns padded sequential ids and the clock time", func() {
		first := s.log(s.view("doctor-1", "P001"))
		s.clock.Advance(time.Second)
		second := s.log(s.view("doctor-1", "P001"))

		s.Equal("AUD-000001", first.ID)
		s.Equal("AUD-000002", second.ID)
		s.True(first.Timestamp.Equal(businessMorning))
		s.True(second.Timestamp.After(first.Timestamp))
	})

	s.Run("ordinary access is not a violation", func() {
		ev := s.log(s.view("doctor-2", "P002"))
		s.False(ev.IsViolation)
		s.Empty(ev.Severity)
		s.Empty(ev.Reason)
		s.Equal(audit.EventViewPatient, ev.Type)
	})

	s.Run("stored details are detached from the caller's map", func() {
		entry := s.view("doctor-3", "P003")
		entry.Details = audit.Details{"note": audit.String("original")}
		ev := s.log(entry)

		entry.Details["note"] = audit.String("changed")
		stored := s.engine.UserActivity("doctor-3", 1)
		s.Require().Len(stored, 1)
		note, _ := stored[0].Details.StringValue("note")
		s.Equal("original", note)
		s.Equal(ev.ID, stored[0].ID)
	})

	s.Run("publishes every recorded event", func() {
		before := len(s.publisher.events)
		ev := s.log(s.view("doctor-4", "P004"))
		s.Require().Len(s.publisher.events, before+1)
		s.Equal(ev.ID, s.publisher.events[before].ID)
	})

	s.Run("counts recorded events in metrics", func() {
		s.GreaterOrEqual(promtest.ToFloat64(s.metrics.EventsRecorded.WithLabelValues("view_patient")), 1.0)
		s.Equal(float64(s.engine.log.Len()), promtest.ToFloat64(s.metrics.LogSize))
	})
}

// =============================================================================
// Rule Tests
// =============================================================================

func (s *EngineSuite) TestUnauthorizedAccess() {
	s.Run("is flagged high without relabelling", func() {
		entry := s.view("unknown", "P001")
		entry.Type = audit.EventUnauthorizedAccess
		ev := s.log(entry)

		s.True(ev.IsViolation)
		s.Equal(audit.SeverityHigh, ev.Severity)
		s.Equal("Attempted unauthorized access to PHI", ev.Reason)
		s.Equal(audit.EventUnauthorizedAccess, ev.Type)
	})

	s.Run("later bulk access rule overwrites the verdict", func() {
		for i := range 10 {
			s.log(s.view("intruder", fmt.Sprintf("B%02d", i)))
			s.clock.Advance(time.Second)
		}
		entry := s.view("intruder", "B99")
		entry.Type = audit.EventUnauthorizedAccess
		ev := s.log(entry)

		s.True(ev.IsViolation)
		s.Equal(audit.SeverityHigh, ev.Severity)
		s.Equal(audit.EventBulkDataAccess, ev.Type)
		s.Equal("Bulk PHI access: 10 different patients in 10 minutes", ev.Reason)
	})
}

func (s *EngineSuite) TestAfterHours() {
	s.Run("view at 03:00 is relabelled low", func() {
		s.clock.Set(time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC))
		ev := s.log(s.view("night-doc", "P001"))

		s.True(ev.IsViolation)
		s.Equal(audit.SeverityLow, ev.Severity)
		s.Equal(audit.EventAfterHoursAccess, ev.Type)
		s.Equal("After-hours PHI access at 03:00", ev.Reason)
	})

	s.Run("health record view at 19:00 is after hours", func() {
		s.clock.Set(time.Date(2026, time.March, 10, 19, 0, 0, 0, time.UTC))
		entry := s.view("late-doc", "P002")
		entry.Type = audit.EventViewHealthRecord
		ev := s.log(entry)

		s.True(ev.IsViolation)
		s.Equal(audit.EventAfterHoursAccess, ev.Type)
		s.Equal("After-hours PHI access at 19:00", ev.Reason)
	})

	s.Run("18:59 and 07:00 are business hours", func() {
		for _, at := range []time.Time{
			time.Date(2026, time.March, 10, 18, 59, 0, 0, time.UTC),
			time.Date(2026, time.March, 11, 7, 0, 0, 0, time.UTC),
		} {
			s.clock.Set(at)
			ev := s.log(s.view("day-doc-"+at.Format("1504"), "P003"))
			s.False(ev.IsViolation, at.Format(time.Kitchen))
		}
	})

	s.Run("other event types are not after-hours access", func() {
		s.clock.Set(time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC))
		entry := s.view("night-scheduler", "P004")
		entry.Type = audit.EventCreateAppointment
		ev := s.log(entry)

		s.False(ev.IsViolation)
		s.Equal(audit.EventCreateAppointment, ev.Type)
	})
}

func (s *EngineSuite) TestPatientSelfAccess() {
	patientView := func(own string) audit.Entry {
		e := s.view("patient-2", "P001")
		e.UserRole = audit.RolePatient
		e.Details = audit.Details{audit.DetailUserPatientID: audit.String(own)}
		return e
	}

	s.Run("other patient's record is critical", func() {
		ev := s.log(patientView("P002"))
		s.True(ev.IsViolation)
		s.Equal(audit.SeverityCritical, ev.Severity)
		s.Equal("Patient attempted to access another patient's records", ev.Reason)
		s.Equal(audit.EventViewPatient, ev.Type)
	})

	s.Run("critical after hours keeps the after-hours label", func() {
		s.clock.Set(time.Date(2026, time.March, 10, 2, 15, 0, 0, time.UTC))
		ev := s.log(patientView("P002"))
		s.Equal(audit.SeverityCritical, ev.Severity)
		s.Equal(audit.EventAfterHoursAccess, ev.Type)
		s.Equal("Patient attempted to access another patient's records", ev.Reason)
		s.clock.Set(businessMorning.Add(time.Hour))
	})

	s.Run("own record is allowed", func() {
		s.False(s.log(patientView("P001")).IsViolation)
	})

	s.Run("missing or empty patient id is ignored", func() {
		e := patientView("")
		s.False(s.log(e).IsViolation)
		e.Details = audit.Details{audit.DetailUserPatientID: audit.Int(0)}
		s.False(s.log(e).IsViolation)
		e.Details = audit.Details{audit.DetailUserPatientID: audit.Bool(false)}
		s.False(s.log(e).IsViolation)
		e.Details = nil
		s.False(s.log(e).IsViolation)
	})

	s.Run("non-string patient id never matches the record", func() {
		e := patientView("")
		e.Details = audit.Details{audit.DetailUserPatientID: audit.Int(2)}
		ev := s.log(e)
		s.True(ev.IsViolation)
		s.Equal(audit.SeverityCritical, ev.Severity)
		s.Equal("Patient attempted to access another patient's records", ev.Reason)
	})

	s.Run("doctors are not subject to the rule", func() {
		e := patientView("P002")
		e.UserRole = audit.RoleDoctor
		s.False(s.log(e).IsViolation)
	})
}

func (s *EngineSuite) TestExcessiveQueries() {
	s.Run("22nd access to one patient within the hour is excessive", func() {
		var last audit.Event
		for i := range 22 {
			last = s.log(s.view("busy-doc", "P001"))
			if i < 21 {
				s.False(last.IsViolation, "event %d", i+1)
			}
			s.clock.Advance(2 * time.Minute)
		}
		s.True(last.IsViolation)
		s.Equal(audit.SeverityMedium, last.Severity)
		s.Equal(audit.EventExcessiveQueries, last.Type)
		s.Equal("Excessive PHI queries: 21 accesses in last hour", last.Reason)
	})

	s.Run("accesses exactly one hour old fall outside the window", func() {
		for range 21 {
			s.log(s.view("edge-doc", "P002"))
		}
		s.clock.Advance(time.Hour)
		s.False(s.log(s.view("edge-doc", "P002")).IsViolation)
	})

	s.Run("events without a patient do not count", func() {
		for range 25 {
			e := s.view("login-doc", "")
			e.Type = audit.EventLogin
			s.log(e)
		}
		s.False(s.log(s.view("login-doc", "P003")).IsViolation)
	})
}

func (s *EngineSuite) TestBulkAccessOverwritesExcessiveQueries() {
	var last audit.Event
	for i := range 22 {
		last = s.log(s.view("scraper", fmt.Sprintf("P%03d", i)))
		s.clock.Advance(time.Second)
	}

	s.True(last.IsViolation)
	s.Equal(audit.SeverityHigh, last.Severity)
	s.Equal(audit.EventBulkDataAccess, last.Type)
	s.Equal("Bulk PHI access: 21 different patients in 10 minutes", last.Reason)

	s.Equal(1.0, promtest.ToFloat64(s.metrics.RuleMatches.WithLabelValues(RuleExcessiveQueries)))
	// events 11 through 22 each saw at least ten distinct patients
	s.Equal(12.0, promtest.ToFloat64(s.metrics.RuleMatches.WithLabelValues(RuleBulkAccess)))
}

func (s *EngineSuite) TestBulkAccessThreshold() {
	for i := range 9 {
		s.log(s.view("curious", fmt.Sprintf("C%02d", i)))
	}
	s.False(s.log(s.view("curious", "C09")).IsViolation, "nine prior patients")
	s.True(s.log(s.view("curious", "C10")).IsViolation, "ten prior patients")

	s.clock.Advance(10 * time.Minute)
	s.False(s.log(s.view("curious", "C11")).IsViolation, "window expired")
}

// =============================================================================
// Query Tests
// =============================================================================

func (s *EngineSuite) TestQueries() {
	s.log(s.view("doctor-1", "P001"))
	s.clock.Advance(time.Minute)
	unauthorized := s.view("unknown", "P001")
	unauthorized.Type = audit.EventUnauthorizedAccess
	s.log(unauthorized)
	s.clock.Advance(time.Minute)
	s.log(s.view("doctor-1", "P002"))

	s.Run("all events are most recent first", func() {
		events := s.engine.AllEvents(100)
		s.Require().Len(events, 3)
		s.Equal([]string{"AUD-000003", "AUD-000002", "AUD-000001"}, ids(events))
	})

	s.Run("non-positive limits return an empty list", func() {
		s.Empty(s.engine.AllEvents(0))
		s.NotNil(s.engine.AllEvents(-1))
		s.Empty(s.engine.Violations(0))
	})

	s.Run("violations are a bounded subset of all events", func() {
		for n := range 4 {
			got := s.engine.Violations(n)
			s.LessOrEqual(len(got), n)
			all := s.engine.AllEvents(100)
			for _, v := range got {
				s.True(v.IsViolation)
				s.Contains(ids(all), v.ID)
			}
		}
	})

	s.Run("by severity", func() {
		high := s.engine.ViolationsBySeverity(audit.SeverityHigh)
		s.Equal([]string{"AUD-000002"}, ids(high))
		s.Empty(s.engine.ViolationsBySeverity(audit.SeverityCritical))
	})

	s.Run("user activity and patient access log", func() {
		s.Equal([]string{"AUD-000003", "AUD-000001"}, ids(s.engine.UserActivity("doctor-1", 50)))
		s.Equal([]string{"AUD-000003"}, ids(s.engine.UserActivity("doctor-1", 1)))
		s.Equal([]string{"AUD-000002", "AUD-000001"}, ids(s.engine.PatientAccessLog("P001", 50)))
		s.Empty(s.engine.PatientAccessLog("P404", 50))
	})

	s.Run("daily access counts PHI events per day", func() {
		s.Equal(map[string]int{"2026-03-10": 2}, s.engine.DailyAccess("doctor-1"))
		s.Equal(map[string]int{}, s.engine.DailyAccess("nobody"))
	})
}

func (s *EngineSuite) TestSummaryStats() {
	s.clock.Set(time.Date(2026, time.March, 9, 23, 30, 0, 0, time.UTC))
	late := s.view("doctor-1", "P001")
	s.log(late) // after hours, yesterday

	s.clock.Set(businessMorning)
	s.log(s.view("doctor-1", "P001"))
	s.log(s.view("doctor-2", "P002"))
	unauthorized := s.view("unknown", "P001")
	unauthorized.Type = audit.EventUnauthorizedAccess
	s.log(unauthorized)

	first := s.engine.SummaryStats()
	s.Equal(Summary{
		TotalEvents:     4,
		TodayEvents:     3,
		TotalViolations: 2,
		TodayViolations: 1,
		ViolationsBySeverity: map[audit.Severity]int{
			audit.SeverityCritical: 0,
			audit.SeverityHigh:     1,
			audit.SeverityMedium:   0,
			audit.SeverityLow:      1,
		},
		UniqueUsersToday: 3,
	}, first)

	s.Equal(first, s.engine.SummaryStats(), "summary must be idempotent")
}

func (s *EngineSuite) TestGenerateSampleEvents() {
	events := s.engine.GenerateSampleEvents(context.Background())
	s.Require().Len(events, 5)

	s.False(events[0].IsViolation)
	s.False(events[1].IsViolation)
	s.False(events[2].IsViolation)
	s.Equal(audit.SeverityHigh, events[3].Severity)
	s.Equal(audit.SeverityCritical, events[4].Severity)

	summary := s.engine.SummaryStats()
	s.Equal(5, summary.TotalEvents)
	s.Equal(2, summary.TotalViolations)
}

func ids(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

// =============================================================================
// Concurrency
// =============================================================================

func TestLogEvent_ConcurrentIDsAreUniqueAndOrdered(t *testing.T) {
	engine := New(WithLocation(time.UTC))

	const writers, perWriter = 16, 50
	var wg sync.WaitGroup
	seen := make(chan string, writers*perWriter)
	for w := range writers {
		wg.Go(func() {
			for i := range perWriter {
				ev := engine.LogEvent(context.Background(), audit.Entry{
					Type:      audit.EventViewAppointments,
					UserID:    fmt.Sprintf("user-%d", w),
					PatientID: fmt.Sprintf("P%d", i%3),
				})
				seen <- ev.ID
			}
		})
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]struct{})
	for id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, writers*perWriter)

	// log order equals id order
	all := engine.AllEvents(writers * perWriter)
	require.Len(t, all, writers*perWriter)
	prev := writers*perWriter + 1
	for _, e := range all {
		n, err := strconv.Atoi(strings.TrimPrefix(e.ID, "AUD-"))
		require.NoError(t, err)
		assert.Less(t, n, prev)
		prev = n
	}
}
