package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"flightslot/internal/booking"
)

func TestParseSlotID(t *testing.T) {
	start, err := booking.ParseSlotID("2026-01-10-09")
	assert.NoError(t, err)
	assert.Equal(t, 2026, start.Year())
	assert.Equal(t, time.January, start.Month())
	assert.Equal(t, 10, start.Day())
	assert.Equal(t, 9, start.Hour())

	_, err = booking.ParseSlotID("not-a-slot")
	assert.Error(t, err)
	assert.True(t, booking.IsValidation(err))

	_, err = booking.ParseSlotID("2026-01-10")
	assert.Error(t, err)
}

func TestCheckBookable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)

	near := now.Add(48 * time.Hour).Format(booking.SlotIDLayout)
	assert.NoError(t, booking.CheckBookable(near, now))

	edge := now.Add(booking.BookingHorizon).Format(booking.SlotIDLayout)
	assert.NoError(t, booking.CheckBookable(edge, now))

	far := now.Add(booking.BookingHorizon + 2*time.Hour).
		Format(booking.SlotIDLayout)
	err := booking.CheckBookable(far, now)
	assert.Error(t, err)
	assert.True(t, booking.IsValidation(err))
	assert.Contains(t, err.Error(), "240 hours")
}

func TestCheckMarkable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)

	future := now.Add(time.Hour).Format(booking.SlotIDLayout)
	assert.NoError(t, booking.CheckMarkable(future, now))

	// Availability has no upper bound, unlike bookings
	far := now.Add(booking.BookingHorizon * 2).Format(booking.SlotIDLayout)
	assert.NoError(t, booking.CheckMarkable(far, now))

	past := now.Add(-2 * time.Hour).Format(booking.SlotIDLayout)
	err := booking.CheckMarkable(past, now)
	assert.Error(t, err)
	assert.True(t, booking.IsValidation(err))
	assert.Contains(t, err.Error(), "in the past")
}

func TestParseParticipantType(t *testing.T) {
	for input, expect := range map[string]booking.ParticipantType{
		"STUDENT":    booking.Student,
		"student":    booking.Student,
		" Aircraft ": booking.Aircraft,
		"instructor": booking.Instructor,
	} {
		pt, err := booking.ParseParticipantType(input)
		assert.NoError(t, err)
		assert.Equal(t, expect, pt)
	}

	_, err := booking.ParseParticipantType("pilot")
	assert.Error(t, err)
	assert.True(t, booking.IsValidation(err))
}

func TestParticipantLabels(t *testing.T) {
	assert.Equal(t, "Student", booking.Student.Label())
	assert.Equal(t, "Aircraft", booking.Aircraft.Label())
	assert.Equal(t, "Instructor", booking.Instructor.Label())
}
