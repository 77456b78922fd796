package models

import "fmt"

// Gender is the profile's gender. The zero value is GenderUnspecified, which
// fails validation.
type Gender int

const (
	GenderUnspecified Gender = iota
	GenderMale
	GenderFemale
)

var genderNames = [...]string{
	GenderUnspecified: "unspecified",
	GenderMale:        "male",
	GenderFemale:      "female",
}

var genderTitles = [...]string{
	GenderUnspecified: "Not specified",
	GenderMale:        "Male",
	GenderFemale:      "Female",
}

// Genders lists every gender in declaration order.
func Genders() []Gender {
	return []Gender{GenderUnspecified, GenderMale, GenderFemale}
}

func (g Gender) IsValid() bool {
	return g >= GenderUnspecified && g <= GenderFemale
}

// IsSpecified reports whether a concrete gender was chosen.
func (g Gender) IsSpecified() bool {
	return g.IsValid() && g != GenderUnspecified
}

func (g Gender) String() string {
	if !g.IsValid() {
		return fmt.Sprintf("gender(%d)", int(g))
	}
	return genderNames[g]
}

// Title is the human-readable label shown in previews.
func (g Gender) Title() string {
	if !g.IsValid() {
		return ""
	}
	return genderTitles[g]
}

// ParseGender parses the wire name of a gender.
func ParseGender(s string) (Gender, error) {
	for i, name := range genderNames {
		if name == s {
			return Gender(i), nil
		}
	}
	return GenderUnspecified, fmt.Errorf("unknown gender %q", s)
}

func (g Gender) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("unknown gender %d", int(g))
	}
	return []byte(genderNames[g]), nil
}

func (g *Gender) UnmarshalText(text []byte) error {
	parsed, err := ParseGender(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
