package audit

import (
	"fmt"
	"time"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/window"
)

// Policy holds the thresholds of the violation rules. The rule set itself is
// fixed; DefaultPolicy is the production policy.
type Policy struct {
	// Business hours are [BusinessHoursStart:00, BusinessHoursEnd:00) local time.
	BusinessHoursStart int
	BusinessHoursEnd   int

	// More than MaxPHIAccesses PHI accesses inside ExcessiveWindow is excessive.
	ExcessiveWindow time.Duration
	MaxPHIAccesses  int

	// BulkPatients or more distinct patients inside BulkWindow is bulk access.
	BulkWindow   time.Duration
	BulkPatients int
}

func DefaultPolicy() Policy {
	return Policy{
		BusinessHoursStart: 7,
		BusinessHoursEnd:   19,
		ExcessiveWindow:    60 * time.Minute,
		MaxPHIAccesses:     20,
		BulkWindow:         10 * time.Minute,
		BulkPatients:       10,
	}
}

// retention is the widest window any rule looks back over.
func (p Policy) retention() time.Duration {
	return max(p.ExcessiveWindow, p.BulkWindow)
}

// Rule names, used in logs and metrics.
const (
	RuleUnauthorizedAccess = "unauthorized_access"
	RuleAfterHours         = "after_hours"
	RuleSelfAccess         = "self_access"
	RuleExcessiveQueries   = "excessive_queries"
	RuleBulkAccess         = "bulk_access"
)

type verdict struct {
	severity audit.Severity
	reason   string
	relabel  audit.EventType // empty keeps the current type
}

type rule struct {
	name string
	eval func(e *audit.Event) (verdict, bool)
}

// classifier evaluates the rules against an event that has not been
// appended to the log yet, so window counts exclude the event itself.
type classifier struct {
	policy Policy
	window window.Counter
	loc    *time.Location
	rules  []rule
}

func newClassifier(policy Policy, counter window.Counter, loc *time.Location) *classifier {
	c := &classifier{policy: policy, window: counter, loc: loc}
	// Order is part of the contract: see classify.
	c.rules = []rule{
		{name: RuleUnauthorizedAccess, eval: c.unauthorizedAccess},
		{name: RuleAfterHours, eval: c.afterHours},
		{name: RuleSelfAccess, eval: c.selfAccess},
		{name: RuleExcessiveQueries, eval: c.excessiveQueries},
		{name: RuleBulkAccess, eval: c.bulkAccess},
	}
	return c
}

// classify runs every rule in order. Each match overwrites the severity,
// reason and (for relabelling rules) type set by earlier matches, so the
// effective verdict is the last matching rule, not the most severe one.
// It returns the names of all rules that matched.
func (c *classifier) classify(e *audit.Event) []string {
	var matched []string
	for _, r := range c.rules {
		v, ok := r.eval(e)
		if !ok {
			continue
		}
		e.IsViolation = true
		e.Severity = v.severity
		e.Reason = v.reason
		if v.relabel != "" {
			e.Type = v.relabel
		}
		matched = append(matched, r.name)
	}
	return matched
}

// Rule 1: the caller already refused the access; record it as a violation.
func (c *classifier) unauthorizedAccess(e *audit.Event) (verdict, bool) {
	if e.Type != audit.EventUnauthorizedAccess {
		return verdict{}, false
	}
	return verdict{
		severity: audit.SeverityHigh,
		reason:   "Attempted unauthorized access to PHI",
	}, true
}

// Rule 2: patient or health record views outside business hours. Other
// event types are not considered after-hours access.
func (c *classifier) afterHours(e *audit.Event) (verdict, bool) {
	local := e.Timestamp.In(c.loc)
	hour := local.Hour()
	if hour >= c.policy.BusinessHoursStart && hour < c.policy.BusinessHoursEnd {
		return verdict{}, false
	}
	if e.Type != audit.EventViewPatient && e.Type != audit.EventViewHealthRecord {
		return verdict{}, false
	}
	return verdict{
		severity: audit.SeverityLow,
		reason:   fmt.Sprintf("After-hours PHI access at %s", local.Format("15:04")),
		relabel:  audit.EventAfterHoursAccess,
	}, true
}

// Rule 3: a patient reaching another patient's records.
func (c *classifier) selfAccess(e *audit.Event) (verdict, bool) {
	if e.UserRole != audit.RolePatient || !e.HasPHI() {
		return verdict{}, false
	}
	own, ok := e.Details[audit.DetailUserPatientID]
	if !ok || own.IsZero() {
		return verdict{}, false
	}
	// Patient ids are strings; a number or true never matches one.
	if id, isString := own.AsString(); isString && id == e.PatientID {
		return verdict{}, false
	}
	return verdict{
		severity: audit.SeverityCritical,
		reason:   "Patient attempted to access another patient's records",
	}, true
}

// Rule 4: PHI access volume over the trailing hour.
func (c *classifier) excessiveQueries(e *audit.Event) (verdict, bool) {
	count := c.window.PHIAccesses(e.UserID, e.Timestamp.Add(-c.policy.ExcessiveWindow))
	if count <= c.policy.MaxPHIAccesses {
		return verdict{}, false
	}
	return verdict{
		severity: audit.SeverityMedium,
		reason:   fmt.Sprintf("Excessive PHI queries: %d accesses in last hour", count),
		relabel:  audit.EventExcessiveQueries,
	}, true
}

// Rule 5: many distinct patients over the trailing ten minutes.
func (c *classifier) bulkAccess(e *audit.Event) (verdict, bool) {
	count := c.window.DistinctPatients(e.UserID, e.Timestamp.Add(-c.policy.BulkWindow))
	if count < c.policy.BulkPatients {
		return verdict{}, false
	}
	return verdict{
		severity: audit.SeverityHigh,
		reason:   fmt.Sprintf("Bulk PHI access: %d different patients in 10 minutes", count),
		relabel:  audit.EventBulkDataAccess,
	}, true
}
