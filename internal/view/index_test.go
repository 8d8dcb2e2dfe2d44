package view_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"flightslot/internal/booking"
	"flightslot/internal/eventlog"
	"flightslot/internal/view"
)

const (
	slotID  = "2026-01-10-09"
	bookID  = "booking-1"
	student = "student-1"
)

func newIndex(t *testing.T) *view.Index {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(server.Close)

	index, err := view.NewIndex(view.Config{
		Addr:   server.Addr(),
		Prefix: "test-view",
	}, zap.NewNop())
	assert.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func participantEvent(
	typ eventlog.EventType, data booking.SlotEventData,
) *eventlog.Event {
	buf, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return &eventlog.Event{
		Type:        typ,
		AggregateID: booking.ParticipantSlotID(data.SlotID, data.ParticipantID),
		Data:        buf,
	}
}

func TestIndexRowLifecycle(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()
	handler := index.Handler(ctx)

	data := booking.SlotEventData{
		SlotID:          slotID,
		ParticipantID:   student,
		ParticipantType: booking.Student,
	}
	assert.NoError(t, handler(
		participantEvent(booking.ParticipantMarkedAvailable, data)))

	rows, err := index.ByParticipantStatus(
		ctx, student, booking.StatusAvailable,
	)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, slotID, rows[0].SlotID)

	booked := data
	booked.BookingID = bookID
	assert.NoError(t, handler(
		participantEvent(booking.ParticipantBooked, booked)))

	// The row flipped status rather than multiplying
	rows, err = index.ByParticipant(ctx, student)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, booking.StatusBooked, rows[0].Status)
	assert.Equal(t, bookID, rows[0].BookingID)

	rows, err = index.ByParticipantStatus(
		ctx, student, booking.StatusAvailable,
	)
	assert.NoError(t, err)
	assert.Len(t, rows, 0)

	rows, err = index.ByBookingStatus(ctx, bookID, booking.StatusBooked)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestIndexMaterializesMissingRow(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()
	handler := index.Handler(ctx)

	// A booked event for a row the index has never seen still lands;
	// the payload carries everything needed to build the row
	assert.NoError(t, handler(participantEvent(
		booking.ParticipantBooked, booking.SlotEventData{
			SlotID:          slotID,
			ParticipantID:   student,
			ParticipantType: booking.Student,
			BookingID:       bookID,
		})))

	rows, err := index.ByParticipantStatus(
		ctx, student, booking.StatusBooked,
	)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, booking.Student, rows[0].ParticipantType)
}

func TestIndexDuplicateDelivery(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()
	handler := index.Handler(ctx)

	ev := participantEvent(
		booking.ParticipantBooked, booking.SlotEventData{
			SlotID:          slotID,
			ParticipantID:   student,
			ParticipantType: booking.Student,
			BookingID:       bookID,
		})
	assert.NoError(t, handler(ev))
	assert.NoError(t, handler(ev))

	rows, err := index.ByParticipant(ctx, student)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestIndexQueriesAcrossSlots(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()
	handler := index.Handler(ctx)

	later := "2026-01-11-14"
	for _, target := range []string{later, slotID} {
		assert.NoError(t, handler(participantEvent(
			booking.ParticipantMarkedAvailable, booking.SlotEventData{
				SlotID:          target,
				ParticipantID:   student,
				ParticipantType: booking.Student,
			})))
	}

	rows, err := index.ByParticipant(ctx, student)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	// Rows come back ordered by slot
	assert.Equal(t, slotID, rows[0].SlotID)
	assert.Equal(t, later, rows[1].SlotID)
}

func TestIndexEmptyQueries(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()

	rows, err := index.ByParticipant(ctx, "nobody")
	assert.NoError(t, err)
	assert.Len(t, rows, 0)

	rows, err = index.ByBookingStatus(
		ctx, "no-booking", booking.StatusBooked,
	)
	assert.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestIndexRebookingDropsOldBookingQuery(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()
	handler := index.Handler(ctx)

	// Book, cancel, re-mark, and book again under a new booking ID
	data := booking.SlotEventData{
		SlotID:          slotID,
		ParticipantID:   student,
		ParticipantType: booking.Student,
	}
	first := data
	first.BookingID = bookID
	second := data
	second.BookingID = "booking-2"

	for _, step := range []struct {
		typ  eventlog.EventType
		data booking.SlotEventData
	}{
		{booking.ParticipantMarkedAvailable, data},
		{booking.ParticipantBooked, first},
		{booking.ParticipantCanceled, first},
		{booking.ParticipantMarkedAvailable, data},
		{booking.ParticipantBooked, second},
	} {
		assert.NoError(t, handler(participantEvent(step.typ, step.data)))
	}

	// The old booking ID no longer resolves to the re-booked row
	rows, err := index.ByBookingStatus(ctx, bookID, booking.StatusBooked)
	assert.NoError(t, err)
	assert.Len(t, rows, 0)

	rows, err = index.ByBookingStatus(ctx, "booking-2", booking.StatusBooked)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "booking-2", rows[0].BookingID)
}

func TestIndexCancellationClearsBookedQuery(t *testing.T) {
	index := newIndex(t)
	ctx := context.Background()
	handler := index.Handler(ctx)

	data := booking.SlotEventData{
		SlotID:          slotID,
		ParticipantID:   student,
		ParticipantType: booking.Student,
		BookingID:       bookID,
	}
	assert.NoError(t, handler(
		participantEvent(booking.ParticipantBooked, data)))
	assert.NoError(t, handler(
		participantEvent(booking.ParticipantCanceled, data)))

	rows, err := index.ByBookingStatus(ctx, bookID, booking.StatusBooked)
	assert.NoError(t, err)
	assert.Len(t, rows, 0)

	rows, err = index.ByBookingStatus(ctx, bookID, booking.StatusCancelled)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}
