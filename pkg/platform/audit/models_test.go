package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pedcare/pkg/domain-errors"
)

func TestParseEventType(t *testing.T) {
	t.Run("accepts wire tokens", func(t *testing.T) {
		for et := range validEventTypes {
			got, err := ParseEventType(string(et))
			require.NoError(t, err)
			assert.Equal(t, et, got)
		}
	})

	t.Run("normalises hyphenated tokens", func(t *testing.T) {
		got, err := ParseEventType("View-Health-Record")
		require.NoError(t, err)
		assert.Equal(t, EventViewHealthRecord, got)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := ParseEventType("export_everything")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty type", func(t *testing.T) {
		_, err := ParseEventType("  ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity("CRITICAL")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, got)

	_, err = ParseSeverity("urgent")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestDetails_JSON(t *testing.T) {
	t.Run("round trips scalar kinds", func(t *testing.T) {
		var d Details
		require.NoError(t, json.Unmarshal([]byte(`{"user_patient_id":"P002","attempt":3,"mobile":false}`), &d))

		pid, ok := d.StringValue(DetailUserPatientID)
		require.True(t, ok)
		assert.Equal(t, "P002", pid)

		n, ok := d["attempt"].AsNumber()
		require.True(t, ok)
		assert.Equal(t, 3.0, n)

		b, ok := d["mobile"].AsBool()
		require.True(t, ok)
		assert.False(t, b)

		out, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"user_patient_id":"P002","attempt":3,"mobile":false}`, string(out))
	})

	t.Run("rejects nested values", func(t *testing.T) {
		var d Details
		assert.Error(t, json.Unmarshal([]byte(`{"x":{"y":1}}`), &d))
		assert.Error(t, json.Unmarshal([]byte(`{"x":[1,2]}`), &d))
		assert.Error(t, json.Unmarshal([]byte(`{"x":null}`), &d))
	})

	t.Run("non string lookup is not a string", func(t *testing.T) {
		d := Details{DetailUserPatientID: Int(2)}
		_, ok := d.StringValue(DetailUserPatientID)
		assert.False(t, ok)
	})
}

func TestRecord_EventEnforcesViolationFields(t *testing.T) {
	sev := SeverityHigh
	reason := "Attempted unauthorized access to PHI"
	base := Record{ID: "AUD-000001", EventType: EventUnauthorizedAccess}

	t.Run("complete violation decodes", func(t *testing.T) {
		r := base
		r.IsViolation, r.ViolationSeverity, r.ViolationReason = true, &sev, &reason
		e, err := r.Event()
		require.NoError(t, err)
		assert.True(t, e.IsViolation)
		assert.Equal(t, SeverityHigh, e.Severity)
	})

	t.Run("clean event decodes", func(t *testing.T) {
		_, err := base.Event()
		require.NoError(t, err)
	})

	cases := map[string]func(r *Record){
		"violation without severity": func(r *Record) { r.IsViolation, r.ViolationReason = true, &reason },
		"violation without reason":   func(r *Record) { r.IsViolation, r.ViolationSeverity = true, &sev },
		"severity without violation": func(r *Record) { r.ViolationSeverity = &sev },
		"reason without violation":   func(r *Record) { r.ViolationReason = &reason },
	}
	for name, mutate := range cases {
		t.Run(name+" is rejected", func(t *testing.T) {
			r := base
			mutate(&r)
			_, err := r.Event()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestValue_IsZero(t *testing.T) {
	assert.True(t, Value{}.IsZero())
	assert.True(t, String("").IsZero())
	assert.True(t, Int(0).IsZero())
	assert.True(t, Bool(false).IsZero())
	assert.False(t, String("P002").IsZero())
	assert.False(t, Int(2).IsZero())
	assert.False(t, Bool(true).IsZero())
}

func TestEvent_CloneDetachesDetails(t *testing.T) {
	e := Event{ID: "AUD-000001", Details: Details{"reason": String("demo")}}
	c := e.Clone()
	c.Details["reason"] = String("changed")

	got, _ := e.Details.StringValue("reason")
	assert.Equal(t, "demo", got)
}
