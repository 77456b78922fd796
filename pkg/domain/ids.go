package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "dossier/pkg/domain-errors"
)

// EditSessionID identifies one edit session over the profile.
type EditSessionID uuid.UUID

// PhotoID identifies a stored profile photo. Its string form is the opaque
// reference kept in the profile record.
type PhotoID uuid.UUID

func (id EditSessionID) String() string { return uuid.UUID(id).String() }
func (id EditSessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id PhotoID) String() string { return uuid.UUID(id).String() }
func (id PhotoID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewEditSessionID returns a fresh random session ID.
func NewEditSessionID() EditSessionID { return EditSessionID(uuid.New()) }

// NewPhotoID returns a fresh random photo ID.
func NewPhotoID() PhotoID { return PhotoID(uuid.New()) }

// ParseEditSessionID parses a session ID at a trust boundary.
func ParseEditSessionID(s string) (EditSessionID, error) {
	u, err := parseUUID(s, "session id")
	if err != nil {
		return EditSessionID{}, err
	}
	return EditSessionID(u), nil
}

// ParsePhotoID parses a photo reference. References double as file names, so
// anything that is not a canonical UUID is rejected.
func ParsePhotoID(s string) (PhotoID, error) {
	u, err := parseUUID(s, "photo reference")
	if err != nil {
		return PhotoID{}, err
	}
	return PhotoID(u), nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}
