package booking

import "flightslot/internal/eventlog"

type (
	// Status is a participant's current standing on one slot
	Status string

	// ParticipantSlot is the derived per-(slot,participant) state machine.
	// It keeps only the latest status; replaying its log from empty always
	// lands on the effect of the final event
	ParticipantSlot struct {
		SlotID          string          `json:"slot_id"`
		ParticipantID   string          `json:"participant_id"`
		ParticipantType ParticipantType `json:"participant_type"`
		BookingID       string          `json:"booking_id,omitempty"`
		Status          Status          `json:"status"`
	}
)

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusBooked      Status = "BOOKED"
	StatusCancelled   Status = "CANCELLED"
)

const (
	ParticipantMarkedAvailable   eventlog.EventType = "participant-slot.marked_available"
	ParticipantUnmarkedAvailable eventlog.EventType = "participant-slot.unmarked_available"
	ParticipantBooked            eventlog.EventType = "participant-slot.booked"
	ParticipantCanceled          eventlog.EventType = "participant-slot.canceled"
)

// ParticipantSlotKind names the stream the index view consumes
const ParticipantSlotKind eventlog.ID = "participant-slot"

// ParticipantSlotID is the composite identity of a projection instance.
// Slot and participant stay separate ID parts; no string concatenation
func ParticipantSlotID(slotID, participantID string) eventlog.AggregateID {
	return eventlog.NewAggregateID(
		ParticipantSlotKind, eventlog.ID(slotID), eventlog.ID(participantID),
	)
}

func NewParticipantSlot() *ParticipantSlot {
	return &ParticipantSlot{}
}

// ParticipantSlotAppliers reduces the four mirrored event variants with a
// pure latest-write-wins rule, which also makes duplicate delivery
// idempotent in effect
var ParticipantSlotAppliers = eventlog.Appliers[*ParticipantSlot]{
	ParticipantMarkedAvailable:   eventlog.MakeApplier(participantStatus(StatusAvailable)),
	ParticipantUnmarkedAvailable: eventlog.MakeApplier(participantStatus(StatusUnavailable)),
	ParticipantBooked:            eventlog.MakeApplier(participantStatus(StatusBooked)),
	ParticipantCanceled:          eventlog.MakeApplier(participantStatus(StatusCancelled)),
}

func participantStatus(
	status Status,
) func(*ParticipantSlot, *eventlog.Event, SlotEventData) *ParticipantSlot {
	return func(
		_ *ParticipantSlot, _ *eventlog.Event, data SlotEventData,
	) *ParticipantSlot {
		return &ParticipantSlot{
			SlotID:          data.SlotID,
			ParticipantID:   data.ParticipantID,
			ParticipantType: data.ParticipantType,
			BookingID:       data.BookingID,
			Status:          status,
		}
	}
}
