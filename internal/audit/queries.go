package audit

import (
	"time"

	audit "pedcare/pkg/platform/audit"
)

// AllEvents returns up to limit events, most recent first.
func (e *Engine) AllEvents(limit int) []audit.Event {
	return e.log.Recent(limit, nil)
}

// Violations returns up to limit violating events, most recent first.
func (e *Engine) Violations(limit int) []audit.Event {
	return e.log.Recent(limit, func(ev audit.Event) bool { return ev.IsViolation })
}

// ViolationsBySeverity returns every violation of the given severity in log
// order, oldest first.
func (e *Engine) ViolationsBySeverity(sev audit.Severity) []audit.Event {
	return e.log.Filter(func(ev audit.Event) bool {
		return ev.IsViolation && ev.Severity == sev
	})
}

// UserActivity returns up to limit events by userID, most recent first.
func (e *Engine) UserActivity(userID string, limit int) []audit.Event {
	return e.log.Recent(limit, func(ev audit.Event) bool { return ev.UserID == userID })
}

// PatientAccessLog returns up to limit events touching patientID, most
// recent first.
func (e *Engine) PatientAccessLog(patientID string, limit int) []audit.Event {
	return e.log.Recent(limit, func(ev audit.Event) bool { return ev.PatientID == patientID })
}

// DailyAccess returns the user's PHI access count per calendar day.
func (e *Engine) DailyAccess(userID string) map[string]int {
	return e.tracker.DailyCounts(userID)
}

// Summary aggregates the log. "Today" starts at local midnight in the
// engine's location.
type Summary struct {
	TotalEvents          int                    `json:"total_events"`
	TodayEvents          int                    `json:"today_events"`
	TotalViolations      int                    `json:"total_violations"`
	TodayViolations      int                    `json:"today_violations"`
	ViolationsBySeverity map[audit.Severity]int `json:"violations_by_severity"`
	UniqueUsersToday     int                    `json:"unique_users_today"`
}

// SummaryStats computes the summary over a consistent snapshot of the log.
func (e *Engine) SummaryStats() Summary {
	now := e.now().In(e.loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)

	s := Summary{ViolationsBySeverity: make(map[audit.Severity]int, len(audit.Severities))}
	for _, sev := range audit.Severities {
		s.ViolationsBySeverity[sev] = 0
	}
	users := make(map[string]struct{})

	e.log.Each(func(ev audit.Event) bool {
		s.TotalEvents++
		today := !ev.Timestamp.Before(todayStart)
		if today {
			s.TodayEvents++
			users[ev.UserID] = struct{}{}
		}
		if ev.IsViolation {
			s.TotalViolations++
			if today {
				s.TodayViolations++
			}
			if _, ok := s.ViolationsBySeverity[ev.Severity]; ok {
				s.ViolationsBySeverity[ev.Severity]++
			}
		}
		return true
	})
	s.UniqueUsersToday = len(users)
	return s
}
