package eventlog

import (
	"encoding/json"
	"strings"
	"time"
)

type (
	// ID is a single component of an AggregateID
	ID string

	// EventType names a committed event variant ("slot.participant_booked")
	EventType string

	// AggregateID identifies an aggregate as a set of parts. Compound
	// identities keep their components distinct ("participant-slot",
	// "2026-01-10-09", "student-1") instead of relying on string
	// concatenation
	AggregateID []ID

	// Event is a single committed entry in an aggregate's log
	Event struct {
		Timestamp   time.Time       `json:"timestamp"`
		Type        EventType       `json:"type"`
		AggregateID AggregateID     `json:"aggregate_id"`
		Data        json.RawMessage `json:"data"`
		Sequence    int64           `json:"sequence"`
	}
)

const idSep = ":"

func NewAggregateID(parts ...ID) AggregateID {
	return parts
}

// ParseAggregateID splits a string by the separator into an AggregateID
func ParseAggregateID(str, sep string) AggregateID {
	parts := strings.Split(str, sep)
	id := make(AggregateID, len(parts))
	for i, p := range parts {
		id[i] = ID(p)
	}
	return id
}

// Join combines the AggregateID parts into a single string using a separator
func (id AggregateID) Join(sep string) string {
	parts := make([]string, len(id))
	for i, p := range id {
		parts[i] = string(p)
	}
	return strings.Join(parts, sep)
}

// Key is the canonical string form used for Redis keys and cache lookups
func (id AggregateID) Key() string {
	return id.Join(idSep)
}

// Equal compares two AggregateIDs for equality
func (id AggregateID) Equal(other AggregateID) bool {
	if len(id) != len(other) {
		return false
	}
	for i, p := range id {
		if other[i] != p {
			return false
		}
	}
	return true
}

// HasPrefix checks if the AggregateID starts with the provided prefix
func (id AggregateID) HasPrefix(prefix AggregateID) bool {
	if len(prefix) > len(id) {
		return false
	}
	for i, p := range prefix {
		if id[i] != p {
			return false
		}
	}
	return true
}

// Unmarshal decodes the event's data payload into target
func (ev *Event) Unmarshal(target any) error {
	return json.Unmarshal(ev.Data, target)
}
