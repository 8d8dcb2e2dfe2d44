package booking

import (
	"maps"
	"strings"

	"flightslot/internal/eventlog"
)

type (
	// Timeslot is the authoritative state of one hourly slot: who has
	// marked themselves available and who is booked. It is derived solely
	// by replaying the slot aggregate's event log
	Timeslot struct {
		Available map[string]Participant `json:"available"`
		Booked    map[string]BookedEntry `json:"booked"`
	}

	// BookedEntry tags a booked participant with the booking it belongs to
	BookedEntry struct {
		Participant Participant `json:"participant"`
		BookingID   string      `json:"booking_id"`
	}

	// SlotEventData is the payload shared by all slot events. BookingID is
	// only set on booked/canceled events
	SlotEventData struct {
		SlotID          string          `json:"slot_id"`
		ParticipantID   string          `json:"participant_id"`
		ParticipantType ParticipantType `json:"participant_type"`
		BookingID       string          `json:"booking_id,omitempty"`
	}
)

const (
	SlotMarkedAvailable     eventlog.EventType = "slot.marked_available"
	SlotUnmarkedAvailable   eventlog.EventType = "slot.unmarked_available"
	SlotParticipantBooked   eventlog.EventType = "slot.participant_booked"
	SlotParticipantCanceled eventlog.EventType = "slot.participant_canceled"
)

// SlotKind is the first AggregateID part of every slot aggregate; it names
// the outbound stream the router consumes
const SlotKind eventlog.ID = "slot"

// SlotAggregateID returns the aggregate identity for a slot
func SlotAggregateID(slotID string) eventlog.AggregateID {
	return eventlog.NewAggregateID(SlotKind, eventlog.ID(slotID))
}

func NewTimeslot() *Timeslot {
	return &Timeslot{
		Available: map[string]Participant{},
		Booked:    map[string]BookedEntry{},
	}
}

// SlotAppliers is the closed reducer set for the slot aggregate
var SlotAppliers = eventlog.Appliers[*Timeslot]{
	SlotMarkedAvailable:     eventlog.MakeApplier(slotMarkedAvailable),
	SlotUnmarkedAvailable:   eventlog.MakeApplier(slotUnmarkedAvailable),
	SlotParticipantBooked:   eventlog.MakeApplier(slotParticipantBooked),
	SlotParticipantCanceled: eventlog.MakeApplier(slotParticipantCanceled),
}

func slotMarkedAvailable(
	state *Timeslot, _ *eventlog.Event, data SlotEventData,
) *Timeslot {
	res := *state
	res.Available = maps.Clone(state.Available)
	res.Available[data.ParticipantID] = Participant{
		ID:   data.ParticipantID,
		Type: data.ParticipantType,
	}
	return &res
}

func slotUnmarkedAvailable(
	state *Timeslot, _ *eventlog.Event, data SlotEventData,
) *Timeslot {
	res := *state
	res.Available = maps.Clone(state.Available)
	delete(res.Available, data.ParticipantID)
	return &res
}

// A booked participant leaves the available set; availability must be
// re-marked after cancellation before the participant can be booked again
func slotParticipantBooked(
	state *Timeslot, _ *eventlog.Event, data SlotEventData,
) *Timeslot {
	res := *state
	res.Available = maps.Clone(state.Available)
	res.Booked = maps.Clone(state.Booked)
	delete(res.Available, data.ParticipantID)
	res.Booked[data.ParticipantID] = BookedEntry{
		Participant: Participant{
			ID:   data.ParticipantID,
			Type: data.ParticipantType,
		},
		BookingID: data.BookingID,
	}
	return &res
}

func slotParticipantCanceled(
	state *Timeslot, _ *eventlog.Event, data SlotEventData,
) *Timeslot {
	entry, ok := state.Booked[data.ParticipantID]
	if !ok || entry.BookingID != data.BookingID {
		return state
	}
	res := *state
	res.Booked = maps.Clone(state.Booked)
	delete(res.Booked, data.ParticipantID)
	return &res
}

// FindBooking returns the currently booked entries tagged with bookingID
func (t *Timeslot) FindBooking(bookingID string) []BookedEntry {
	var entries []BookedEntry
	for _, entry := range t.Booked {
		if entry.BookingID == bookingID {
			entries = append(entries, entry)
		}
	}
	return entries
}

// IsAvailable reports whether the participant has an active availability
// mark on this slot
func (t *Timeslot) IsAvailable(participantID string) bool {
	_, ok := t.Available[participantID]
	return ok
}

// MarkAvailable records a participant's availability. Repeated marks are
// harmless set-adds
func MarkAvailable(
	slotID string, p Participant,
) eventlog.Command[*Timeslot] {
	return func(_ *Timeslot, ag *eventlog.Aggregator[*Timeslot]) error {
		return eventlog.Raise(ag, SlotMarkedAvailable, SlotEventData{
			SlotID:          slotID,
			ParticipantID:   p.ID,
			ParticipantType: p.Type,
		})
	}
}

// UnmarkAvailable withdraws a participant's availability. There is no
// precondition that the participant was previously marked
func UnmarkAvailable(
	slotID string, p Participant,
) eventlog.Command[*Timeslot] {
	return func(_ *Timeslot, ag *eventlog.Aggregator[*Timeslot]) error {
		return eventlog.Raise(ag, SlotUnmarkedAvailable, SlotEventData{
			SlotID:          slotID,
			ParticipantID:   p.ID,
			ParticipantType: p.Type,
		})
	}
}

// BookSlot books all three participants as one atomic batch of three
// events. The availability check runs here, inside the aggregate's own
// serialized command handler, so two concurrent bookings sharing a
// participant cannot both succeed
func BookSlot(
	slotID, studentID, aircraftID, instructorID, bookingID string,
) eventlog.Command[*Timeslot] {
	roles := []struct {
		id string
		pt ParticipantType
	}{
		{studentID, Student},
		{aircraftID, Aircraft},
		{instructorID, Instructor},
	}

	return func(state *Timeslot, ag *eventlog.Aggregator[*Timeslot]) error {
		var unavailable []string
		for _, role := range roles {
			if !state.IsAvailable(role.id) {
				unavailable = append(unavailable, role.pt.Label())
			}
		}
		if len(unavailable) > 0 {
			return NewConflictError(
				"cannot book timeslot, participants unavailable: %s",
				strings.Join(unavailable, " "))
		}

		for _, role := range roles {
			err := eventlog.Raise(ag, SlotParticipantBooked, SlotEventData{
				SlotID:          slotID,
				ParticipantID:   role.id,
				ParticipantType: role.pt,
				BookingID:       bookingID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// CancelBooking cancels whatever the aggregate currently has booked under
// bookingID, one canceled event per entry, atomically. No matches means an
// empty batch and no state change
func CancelBooking(
	slotID, bookingID string,
) eventlog.Command[*Timeslot] {
	return func(state *Timeslot, ag *eventlog.Aggregator[*Timeslot]) error {
		for _, entry := range state.FindBooking(bookingID) {
			err := eventlog.Raise(ag, SlotParticipantCanceled, SlotEventData{
				SlotID:          slotID,
				ParticipantID:   entry.Participant.ID,
				ParticipantType: entry.Participant.Type,
				BookingID:       bookingID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
}
