package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flightslot/internal/booking"
	"flightslot/internal/eventlog"
)

func applyParticipantSlot(
	state *booking.ParticipantSlot, typ eventlog.EventType,
	data booking.SlotEventData,
) *booking.ParticipantSlot {
	return booking.ParticipantSlotAppliers[typ](state, slotEvent(typ, data))
}

func TestParticipantSlotStatusTransitions(t *testing.T) {
	data := booking.SlotEventData{
		SlotID:          slotID,
		ParticipantID:   student,
		ParticipantType: booking.Student,
	}

	state := booking.NewParticipantSlot()
	state = applyParticipantSlot(state, booking.ParticipantMarkedAvailable, data)
	assert.Equal(t, booking.StatusAvailable, state.Status)
	assert.Equal(t, slotID, state.SlotID)
	assert.Equal(t, student, state.ParticipantID)

	booked := data
	booked.BookingID = bookID
	state = applyParticipantSlot(state, booking.ParticipantBooked, booked)
	assert.Equal(t, booking.StatusBooked, state.Status)
	assert.Equal(t, bookID, state.BookingID)

	state = applyParticipantSlot(state, booking.ParticipantCanceled, booked)
	assert.Equal(t, booking.StatusCancelled, state.Status)

	state = applyParticipantSlot(state, booking.ParticipantUnmarkedAvailable, data)
	assert.Equal(t, booking.StatusUnavailable, state.Status)
	assert.Empty(t, state.BookingID)
}

func TestParticipantSlotLatestWriteWins(t *testing.T) {
	data := booking.SlotEventData{
		SlotID:          slotID,
		ParticipantID:   student,
		ParticipantType: booking.Student,
		BookingID:       bookID,
	}

	// Replaying the same event twice lands on the same state, which is
	// what makes at-least-once delivery safe downstream
	state := booking.NewParticipantSlot()
	state = applyParticipantSlot(state, booking.ParticipantBooked, data)
	again := applyParticipantSlot(state, booking.ParticipantBooked, data)
	assert.Equal(t, state, again)
}

func TestParticipantSlotID(t *testing.T) {
	id := booking.ParticipantSlotID(slotID, student)
	assert.Len(t, id, 3)
	assert.Equal(t, "participant-slot:2026-01-10-09:student-1", id.Key())
}
