package booking_test

import (
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"flightslot/internal/booking"
	"flightslot/internal/eventlog"
)

const (
	slotID     = "2026-01-10-09"
	bookID     = "booking-1"
	student    = "student-1"
	aircraft   = "aircraft-1"
	instructor = "instructor-1"
)

func newBookingStore(
	t *testing.T, prefix string,
) (*miniredis.Miniredis, *eventlog.Store, eventlog.Config) {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := eventlog.DefaultConfig()
	cfg.Store.Addr = server.Addr()
	cfg.Store.Prefix = prefix

	store, err := eventlog.NewStore(cfg.Store, zap.NewNop())
	assert.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return server, store, cfg
}

func newSlotExecutor(
	store *eventlog.Store, cfg eventlog.Config,
) *eventlog.Executor[*booking.Timeslot] {
	return eventlog.NewExecutor(
		store, booking.NewTimeslot, booking.SlotAppliers, cfg,
	)
}

func newProjectionExecutor(
	store *eventlog.Store, cfg eventlog.Config,
) *eventlog.Executor[*booking.ParticipantSlot] {
	return eventlog.NewExecutor(
		store, booking.NewParticipantSlot,
		booking.ParticipantSlotAppliers, cfg,
	)
}

func slotEvent(
	typ eventlog.EventType, data booking.SlotEventData,
) *eventlog.Event {
	buf, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return &eventlog.Event{Type: typ, Data: buf}
}
