package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind tags the payload carried by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindDate
	KindGender
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindGender:
		return "gender"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a field value of exactly one kind. Callers ask for the kind they
// expect and get ok=false when the value holds something else.
type Value struct {
	kind   ValueKind
	str    string
	date   Date
	gender Gender
}

func Null() Value { return Value{kind: KindNull} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func DateValue(d Date) Value { return Value{kind: KindDate, date: d} }

func GenderValue(g Gender) Value { return Value{kind: KindGender, gender: g} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Equal(o Value) bool { return v == o }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsDate() (Date, bool) {
	if v.kind != KindDate {
		return Date{}, false
	}
	return v.date, true
}

func (v Value) AsGender() (Gender, bool) {
	if v.kind != KindGender {
		return GenderUnspecified, false
	}
	return v.gender, true
}

// MarshalJSON renders the value with the same textual forms the record codec
// uses.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindDate:
		return json.Marshal(v.date.String())
	case KindGender:
		return json.Marshal(v.gender)
	default:
		return []byte("null"), nil
	}
}

// ParseValue decodes a JSON value for field f. JSON null becomes Null; any
// other token is read as the field's kind, so a date field expects
// "YYYY-MM-DD" and the gender field a gender name.
func ParseValue(f Field, raw json.RawMessage) (Value, error) {
	if !f.IsValid() {
		return Value{}, fmt.Errorf("unknown field %d", int(f))
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Null(), nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return Value{}, fmt.Errorf("%s expects a JSON string: %w", f.Key(), err)
	}
	switch f.Kind() {
	case KindDate:
		if s == "" {
			return Null(), nil
		}
		d, err := ParseDate(s)
		if err != nil {
			return Value{}, err
		}
		return DateValue(d), nil
	case KindGender:
		g, err := ParseGender(s)
		if err != nil {
			return Value{}, err
		}
		return GenderValue(g), nil
	default:
		return StringValue(s), nil
	}
}
