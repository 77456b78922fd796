package models

// Profile is the single personal-data record.
//
// Invariants:
//   - LastName and FirstName default to "" (the unset sentinel), never nil
//   - MiddleName and Photo are nil when unset; Set normalizes "" to nil
//   - DateOfBirth is nil when unset; Set normalizes the zero Date to nil
//   - Valid iff LastName != "", FirstName != "" and Gender is specified
//
// Profiles have value semantics for editing: use Clone before mutating a copy
// that shares optional fields with another profile.
type Profile struct {
	LastName    string
	FirstName   string
	MiddleName  *string
	DateOfBirth *Date
	Gender      Gender
	// Photo is an opaque reference resolved by the photo store. The record
	// never holds image bytes.
	Photo *string
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	c := p
	if p.MiddleName != nil {
		v := *p.MiddleName
		c.MiddleName = &v
	}
	if p.DateOfBirth != nil {
		v := *p.DateOfBirth
		c.DateOfBirth = &v
	}
	if p.Photo != nil {
		v := *p.Photo
		c.Photo = &v
	}
	return c
}

// Equal compares every field by value.
func (p Profile) Equal(o Profile) bool {
	return p.LastName == o.LastName &&
		p.FirstName == o.FirstName &&
		equalPtr(p.MiddleName, o.MiddleName) &&
		equalPtr(p.DateOfBirth, o.DateOfBirth) &&
		p.Gender == o.Gender &&
		equalPtr(p.Photo, o.Photo)
}

// IsZero reports whether p is the all-default profile.
func (p Profile) IsZero() bool {
	return p.Equal(Profile{})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Get returns the current value of f. Unset optional fields yield Null.
func (p Profile) Get(f Field) Value {
	switch f {
	case FieldLastName:
		return StringValue(p.LastName)
	case FieldFirstName:
		return StringValue(p.FirstName)
	case FieldMiddleName:
		return optionalStringValue(p.MiddleName)
	case FieldDateOfBirth:
		if p.DateOfBirth == nil {
			return Null()
		}
		return DateValue(*p.DateOfBirth)
	case FieldGender:
		return GenderValue(p.Gender)
	case FieldPhoto:
		return optionalStringValue(p.Photo)
	default:
		return Null()
	}
}

func optionalStringValue(s *string) Value {
	if s == nil {
		return Null()
	}
	return StringValue(*s)
}

// Set assigns v to f. A value whose kind the field cannot hold is rejected
// with *FieldTypeError and p is left unchanged.
func (p *Profile) Set(f Field, v Value) error {
	mismatch := &FieldTypeError{Field: f, Got: v.Kind()}
	switch f {
	case FieldLastName, FieldFirstName:
		s, ok := v.AsString()
		if !ok {
			return mismatch
		}
		if f == FieldLastName {
			p.LastName = s
		} else {
			p.FirstName = s
		}
	case FieldMiddleName, FieldPhoto:
		var s *string
		switch v.Kind() {
		case KindNull:
		case KindString:
			s = normalizeOptional(v.str)
		default:
			return mismatch
		}
		if f == FieldMiddleName {
			p.MiddleName = s
		} else {
			p.Photo = s
		}
	case FieldDateOfBirth:
		switch v.Kind() {
		case KindNull:
			p.DateOfBirth = nil
		case KindDate:
			if err := v.date.Validate(); err != nil {
				mismatch.Err = err
				return mismatch
			}
			p.DateOfBirth = normalizeDate(v.date)
		default:
			return mismatch
		}
	case FieldGender:
		g, ok := v.AsGender()
		if !ok || !g.IsValid() {
			return mismatch
		}
		p.Gender = g
	default:
		return mismatch
	}
	return nil
}

func normalizeOptional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normalizeDate(d Date) *Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

// IsValid reports whether the required fields are present.
func (p Profile) IsValid() bool {
	return p.Validate() == nil
}

// Validate returns *ValidationError naming every missing required field.
func (p Profile) Validate() error {
	var missing []Field
	if p.LastName == "" {
		missing = append(missing, FieldLastName)
	}
	if p.FirstName == "" {
		missing = append(missing, FieldFirstName)
	}
	if !p.Gender.IsSpecified() {
		missing = append(missing, FieldGender)
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Row is one preview line: a field, its label and its display text.
type Row struct {
	Field Field
	Label string
	Text  string
}

// Rows renders p for preview in ordinal order. The photo row carries the
// reference, since image bytes live with the photo store.
func (p Profile) Rows() []Row {
	rows := make([]Row, 0, len(fieldSpecs))
	for _, f := range Fields() {
		rows = append(rows, Row{Field: f, Label: f.Label(), Text: p.displayText(f)})
	}
	return rows
}

func (p Profile) displayText(f Field) string {
	switch f {
	case FieldDateOfBirth:
		if p.DateOfBirth == nil {
			return ""
		}
		return p.DateOfBirth.Display()
	case FieldGender:
		return p.Gender.Title()
	default:
		s, _ := p.Get(f).AsString()
		return s
	}
}
