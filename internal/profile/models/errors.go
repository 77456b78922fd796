package models

import (
	"fmt"
	"strings"
)

// FieldTypeError is returned by Set when the value does not fit the field:
// the wrong kind, or a value of the right kind that is out of range (Err).
// The profile is left unchanged.
type FieldTypeError struct {
	Field Field
	Got   ValueKind
	Err   error
}

func (e *FieldTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %s rejects %s value: %v", e.Field.Key(), e.Got, e.Err)
	}
	return fmt.Sprintf("field %s does not accept a %s value", e.Field.Key(), e.Got)
}

func (e *FieldTypeError) Unwrap() error { return e.Err }

// ValidationError lists the required fields that are missing, in ordinal order.
type ValidationError struct {
	Missing []Field
}

func (e *ValidationError) Error() string {
	keys := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		keys[i] = f.Key()
	}
	return "required fields missing: " + strings.Join(keys, ", ")
}

// DecodeError means persisted bytes do not match the record schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode profile: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError means an in-memory profile could not be serialized.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode profile: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }
