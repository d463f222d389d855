package testutil

import "testing"

// Keyword prefixes a subtest name so scenario output reads as
// "Given ... / When ... / Then ...".
type Keyword string

const (
	KeywordGiven Keyword = "Given"
	KeywordWhen  Keyword = "When"
	KeywordThen  Keyword = "Then"
	KeywordAnd   Keyword = "And"
)

// Run runs fn as a subtest named after the keyword and desc.
func (k Keyword) Run(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(string(k)+" "+desc, fn)
}

func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return KeywordGiven.Run(t, desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return KeywordWhen.Run(t, desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return KeywordThen.Run(t, desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return KeywordAnd.Run(t, desc, fn)
}
