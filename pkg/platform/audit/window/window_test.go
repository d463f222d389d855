package window

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/store/memory"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func record(log *memory.Log, counters []Counter, e audit.Event) {
	log.Append(e)
	for _, c := range counters {
		c.Observe(e)
	}
}

func TestLogScan_CountsStrictlyAfterCutoff(t *testing.T) {
	log := memory.NewLog()
	scan := NewLogScan(log)

	record(log, []Counter{scan}, audit.Event{UserID: "dr-1", PatientID: "P001", Timestamp: base})
	record(log, []Counter{scan}, audit.Event{UserID: "dr-1", PatientID: "P002", Timestamp: base.Add(time.Minute)})
	record(log, []Counter{scan}, audit.Event{UserID: "dr-1", Timestamp: base.Add(2 * time.Minute)})
	record(log, []Counter{scan}, audit.Event{UserID: "dr-2", PatientID: "P003", Timestamp: base.Add(2 * time.Minute)})

	assert.Equal(t, 1, scan.PHIAccesses("dr-1", base), "event at cutoff is excluded")
	assert.Equal(t, 2, scan.PHIAccesses("dr-1", base.Add(-time.Second)))
	assert.Equal(t, 2, scan.DistinctPatients("dr-1", base.Add(-time.Second)))
	assert.Equal(t, 0, scan.PHIAccesses("nobody", base.Add(-time.Hour)))
}

func TestIndex_DropsAccessesOutsideRetention(t *testing.T) {
	idx := NewIndex(10 * time.Minute)
	idx.Observe(audit.Event{UserID: "dr-1", PatientID: "P001", Timestamp: base})
	idx.Observe(audit.Event{UserID: "dr-1", PatientID: "P002", Timestamp: base.Add(11 * time.Minute)})

	assert.Equal(t, 1, idx.PHIAccesses("dr-1", base.Add(-time.Hour)))
	assert.Len(t, idx.users["dr-1"].accesses, 1)
}

func TestIndex_IgnoresEventsWithoutPatient(t *testing.T) {
	idx := NewIndex(time.Hour)
	idx.Observe(audit.Event{UserID: "dr-1", Timestamp: base})
	assert.Equal(t, 0, idx.PHIAccesses("dr-1", base.Add(-time.Minute)))
	assert.Empty(t, idx.users)
}

// The indexed counter must answer every in-retention query exactly like a
// full log rescan.
func TestIndex_MatchesLogScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	log := memory.NewLog()
	scan := NewLogScan(log)
	idx := NewIndex(time.Hour)
	users := []string{"dr-1", "dr-2", "nurse-1"}

	at := base
	for i := range 400 {
		at = at.Add(time.Duration(rng.Intn(90)) * time.Second)
		e := audit.Event{
			ID:        fmt.Sprintf("AUD-%06d", i+1),
			UserID:    users[rng.Intn(len(users))],
			Timestamp: at,
		}
		if rng.Intn(5) > 0 {
			e.PatientID = fmt.Sprintf("P%03d", rng.Intn(25))
		}

		type answer struct{ Hour, Distinct10 int }
		want := answer{
			Hour:       scan.PHIAccesses(e.UserID, at.Add(-time.Hour)),
			Distinct10: scan.DistinctPatients(e.UserID, at.Add(-10*time.Minute)),
		}
		got := answer{
			Hour:       idx.PHIAccesses(e.UserID, at.Add(-time.Hour)),
			Distinct10: idx.DistinctPatients(e.UserID, at.Add(-10*time.Minute)),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("event %d: index disagrees with log scan (-scan +index):\n%s", i, diff)
		}

		record(log, []Counter{scan, idx}, e)
	}
}
