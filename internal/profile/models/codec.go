package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// wireProfile is the canonical persisted form. Unset optionals are omitted.
type wireProfile struct {
	LastName    string  `json:"lastName"`
	FirstName   string  `json:"firstName"`
	MiddleName  *string `json:"middleName,omitempty"`
	DateOfBirth *Date   `json:"dateOfBirth,omitempty"`
	Gender      Gender  `json:"gender"`
	Photo       *string `json:"photo,omitempty"`
}

// storedProfile accepts both the canonical keys and the keys written by the
// earlier releases (secondName/name/thirdName/genderType). Canonical keys win.
type storedProfile struct {
	LastName    *string         `json:"lastName"`
	FirstName   *string         `json:"firstName"`
	MiddleName  *string         `json:"middleName"`
	DateOfBirth json.RawMessage `json:"dateOfBirth"`
	Gender      json.RawMessage `json:"gender"`
	Photo       *string         `json:"photo"`

	SecondName *string         `json:"secondName"`
	Name       *string         `json:"name"`
	ThirdName  *string         `json:"thirdName"`
	GenderType json.RawMessage `json:"genderType"`
}

// Encode serializes p into its persisted form.
func Encode(p Profile) ([]byte, error) {
	if !p.Gender.IsValid() {
		return nil, &EncodeError{Err: fmt.Errorf("unknown gender %d", int(p.Gender))}
	}
	if p.DateOfBirth != nil {
		if err := p.DateOfBirth.Validate(); err != nil {
			return nil, &EncodeError{Err: err}
		}
	}
	data, err := json.Marshal(wireProfile{
		LastName:    p.LastName,
		FirstName:   p.FirstName,
		MiddleName:  normalizeOptionalPtr(p.MiddleName),
		DateOfBirth: normalizeDatePtr(p.DateOfBirth),
		Gender:      p.Gender,
		Photo:       normalizeOptionalPtr(p.Photo),
	})
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}

// DecodeOption adjusts how Decode reads payloads from earlier releases.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	legacyLocation *time.Location
}

// WithLegacyLocation sets the zone legacy timestamps are read in. Earlier
// releases stored the instant of local midnight on the birth date, so the
// date is the calendar day in the user's zone. Defaults to UTC.
func WithLegacyLocation(loc *time.Location) DecodeOption {
	return func(c *decodeConfig) {
		if loc != nil {
			c.legacyLocation = loc
		}
	}
}

// Decode parses persisted bytes. Missing keys take their defaults. Anything
// that is not a JSON object of the expected shape is a *DecodeError.
func Decode(data []byte, opts ...DecodeOption) (Profile, error) {
	cfg := decodeConfig{legacyLocation: time.UTC}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Profile{}, &DecodeError{Err: errors.New("payload is not a JSON object")}
	}
	var stored storedProfile
	if err := json.Unmarshal(trimmed, &stored); err != nil {
		return Profile{}, &DecodeError{Err: err}
	}

	var p Profile
	p.LastName = firstString(stored.LastName, stored.SecondName)
	p.FirstName = firstString(stored.FirstName, stored.Name)
	p.MiddleName = normalizeOptionalPtr(firstPtr(stored.MiddleName, stored.ThirdName))
	p.Photo = normalizeOptionalPtr(stored.Photo)

	dob, err := decodeDate(stored.DateOfBirth, cfg.legacyLocation)
	if err != nil {
		return Profile{}, &DecodeError{Err: err}
	}
	p.DateOfBirth = dob

	genderRaw := stored.Gender
	if isAbsent(genderRaw) {
		genderRaw = stored.GenderType
	}
	g, err := decodeGender(genderRaw)
	if err != nil {
		return Profile{}, &DecodeError{Err: err}
	}
	p.Gender = g
	return p, nil
}

func firstString(candidates ...*string) string {
	if s := firstPtr(candidates...); s != nil {
		return *s
	}
	return ""
}

func firstPtr(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func normalizeOptionalPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return normalizeOptional(*s)
}

func normalizeDatePtr(d *Date) *Date {
	if d == nil {
		return nil
	}
	return normalizeDate(*d)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeDate accepts "YYYY-MM-DD", an RFC 3339 timestamp, or a number of
// seconds since the 2001-01-01 reference epoch. Timestamps are read in loc.
func decodeDate(raw json.RawMessage, loc *time.Location) (*Date, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		d, err := dateFromReferenceSeconds(secs, loc)
		if err != nil {
			return nil, fmt.Errorf("dateOfBirth: %w", err)
		}
		return normalizeDate(d), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("dateOfBirth: %w", err)
	}
	if d, err := ParseDate(s); err == nil {
		return normalizeDate(d), nil
	}
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("dateOfBirth: %w", err)
	}
	d, err := NewDate(t.In(loc).Date())
	if err != nil {
		return nil, fmt.Errorf("dateOfBirth: %w", err)
	}
	return normalizeDate(d), nil
}

// decodeGender accepts a gender name or the legacy integer raw value.
func decodeGender(raw json.RawMessage) (Gender, error) {
	if isAbsent(raw) {
		return GenderUnspecified, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		g := Gender(n)
		if !g.IsValid() {
			return GenderUnspecified, fmt.Errorf("gender: unknown value %d", n)
		}
		return g, nil
	}
	var g Gender
	if err := json.Unmarshal(raw, &g); err != nil {
		return GenderUnspecified, fmt.Errorf("gender: %w", err)
	}
	return g, nil
}
