package consult

import (
	"fmt"
	"strings"
)

// Role is the part a participant plays in a consultation.
type Role string

const (
	RoleDoctor     Role = "doctor"
	RolePatient    Role = "patient"
	RoleGuest      Role = "guest"
	RoleCompanion  Role = "companion"
	RoleSpecialist Role = "specialist"
	RoleTranslator Role = "translator"
)

var roles = []Role{RoleDoctor, RolePatient, RoleGuest, RoleCompanion, RoleSpecialist, RoleTranslator}

// ParseRole accepts any casing of a known role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsClinician reports whether the role runs the consultation.
func (r Role) IsClinician() bool {
	return r == RoleDoctor || r == RoleSpecialist
}

// IsInvited reports whether the role normally enters through a guest code.
func (r Role) IsInvited() bool {
	return r == RoleGuest || r == RoleCompanion || r == RoleTranslator
}

// Label is the human-facing name used in chat system lines and the roster.
func (r Role) Label() string {
	switch r {
	case RoleDoctor:
		return "Doctor"
	case RolePatient:
		return "Patient"
	case RoleGuest:
		return "Guest"
	case RoleCompanion:
		return "Companion"
	case RoleSpecialist:
		return "Specialist"
	case RoleTranslator:
		return "Translator"
	default:
		return "Unknown"
	}
}

func (r Role) String() string {
	return string(r)
}
