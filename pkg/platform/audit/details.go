package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// Kind tags the scalar held by a Value.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
)

// Value is a scalar detail: a string, a number or a boolean. The zero Value
// is invalid and never produced by the constructors.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Int(n int) Value        { return Number(float64(n)) }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// AsString returns the string payload; ok is false for other kinds.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// IsZero reports whether the value is unset, empty, zero or false.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindString:
		return v.str == ""
	case KindNumber:
		return v.num == 0
	case KindBool:
		return !v.b
	}
	return true
}

// String renders the value for logs and text storage.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts JSON strings, numbers and booleans only.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("detail value: empty input")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '{', '[', 'n':
		return fmt.Errorf("detail value must be a string, number or boolean")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
	}
	return nil
}

// Details carries rule-specific context on an event.
type Details map[string]Value

// StringValue looks up a string detail.
func (d Details) StringValue(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (d Details) Clone() Details {
	if d == nil {
		return Details{}
	}
	return maps.Clone(d)
}
