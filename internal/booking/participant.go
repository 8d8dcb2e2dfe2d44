package booking

import "strings"

type (
	// ParticipantType is the role a participant plays in a booking. Every
	// booking binds exactly one of each
	ParticipantType string

	// Participant is an immutable identity taking part in slot bookings.
	// IDs are globally unique across participant types
	Participant struct {
		ID   string          `json:"id"`
		Type ParticipantType `json:"participant_type"`
	}
)

const (
	Student    ParticipantType = "STUDENT"
	Aircraft   ParticipantType = "AIRCRAFT"
	Instructor ParticipantType = "INSTRUCTOR"
)

// ParseParticipantType normalizes and validates a participant type string
func ParseParticipantType(s string) (ParticipantType, error) {
	switch pt := ParticipantType(strings.ToUpper(strings.TrimSpace(s))); pt {
	case Student, Aircraft, Instructor:
		return pt, nil
	default:
		return "", NewValidationError("invalid participant type: %q", s)
	}
}

// Label is the human-readable role name used when enumerating unavailable
// participants in rejections
func (pt ParticipantType) Label() string {
	switch pt {
	case Student:
		return "Student"
	case Aircraft:
		return "Aircraft"
	case Instructor:
		return "Instructor"
	default:
		return string(pt)
	}
}
