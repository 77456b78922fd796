package models

import (
	"fmt"

	dErrors "dossier/pkg/domain-errors"
)

// Field addresses one profile attribute. The ordinal is stable and is what
// presentation layers use to address rows.
type Field int

const (
	FieldLastName Field = iota
	FieldFirstName
	FieldMiddleName
	FieldDateOfBirth
	FieldGender
	FieldPhoto
)

type fieldSpec struct {
	key      string
	label    string
	kind     ValueKind
	nullable bool
	required bool
}

var fieldSpecs = [...]fieldSpec{
	FieldLastName:    {key: "lastName", label: "Last name", kind: KindString, required: true},
	FieldFirstName:   {key: "firstName", label: "First name", kind: KindString, required: true},
	FieldMiddleName:  {key: "middleName", label: "Middle name", kind: KindString, nullable: true},
	FieldDateOfBirth: {key: "dateOfBirth", label: "Date of birth", kind: KindDate, nullable: true},
	FieldGender:      {key: "gender", label: "Gender", kind: KindGender, required: true},
	FieldPhoto:       {key: "photo", label: "Photo", kind: KindString, nullable: true},
}

// Fields returns every field in ordinal order.
func Fields() []Field {
	fields := make([]Field, len(fieldSpecs))
	for i := range fieldSpecs {
		fields[i] = Field(i)
	}
	return fields
}

// FieldByOrdinal maps a row ordinal back to its field.
func FieldByOrdinal(ordinal int) (Field, bool) {
	f := Field(ordinal)
	return f, f.IsValid()
}

// ParseField resolves a wire key such as "lastName".
func ParseField(key string) (Field, error) {
	for i, spec := range fieldSpecs {
		if spec.key == key {
			return Field(i), nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown field %q", key))
}

func (f Field) IsValid() bool {
	return f >= FieldLastName && int(f) < len(fieldSpecs)
}

func (f Field) Ordinal() int { return int(f) }

func (f Field) Key() string {
	if !f.IsValid() {
		return ""
	}
	return fieldSpecs[f].key
}

func (f Field) Label() string {
	if !f.IsValid() {
		return ""
	}
	return fieldSpecs[f].label
}

// Kind is the kind of non-null value the field holds.
func (f Field) Kind() ValueKind {
	if !f.IsValid() {
		return KindNull
	}
	return fieldSpecs[f].kind
}

// Nullable reports whether the field may be unset.
func (f Field) Nullable() bool {
	return f.IsValid() && fieldSpecs[f].nullable
}

// Required reports whether validation demands a value for the field.
func (f Field) Required() bool {
	return f.IsValid() && fieldSpecs[f].required
}

func (f Field) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldSpecs[f].key
}
