package view_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"flightslot/internal/booking"
	"flightslot/internal/eventlog"
	"flightslot/internal/view"
)

// Exercises the full asynchronous path: slot command -> committed events
// -> router relay -> participant-slot events -> indexer relay -> index rows
func TestPipelineEndToEnd(t *testing.T) {
	server, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := eventlog.DefaultConfig()
	cfg.Store.Addr = server.Addr()
	cfg.Store.Prefix = "pipeline"

	store, err := eventlog.NewStore(cfg.Store, zap.NewNop())
	assert.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	slots := eventlog.NewExecutor(
		store, booking.NewTimeslot, booking.SlotAppliers, cfg,
	)
	projections := eventlog.NewExecutor(
		store, booking.NewParticipantSlot,
		booking.ParticipantSlotAppliers, cfg,
	)

	index, err := view.NewIndex(view.Config{
		Addr:   server.Addr(),
		Prefix: "pipeline-view",
	}, zap.NewNop())
	assert.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	ctx := context.Background()
	router := booking.NewRouter(projections, zap.NewNop())

	routerRelay, err := eventlog.NewRelay(
		store, booking.SlotKind, "router", router.Handler(ctx), zap.NewNop(),
	)
	assert.NoError(t, err)
	routerRelay.Start(ctx)
	t.Cleanup(routerRelay.Stop)

	indexRelay, err := eventlog.NewRelay(
		store, booking.ParticipantSlotKind, "indexer", index.Handler(ctx),
		zap.NewNop(),
	)
	assert.NoError(t, err)
	indexRelay.Start(ctx)
	t.Cleanup(indexRelay.Stop)

	_, err = slots.Exec(ctx, booking.SlotAggregateID(slotID),
		booking.MarkAvailable(slotID, booking.Participant{
			ID: student, Type: booking.Student,
		}))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		rows, err := index.ByParticipantStatus(
			ctx, student, booking.StatusAvailable,
		)
		return err == nil && len(rows) == 1 && rows[0].SlotID == slotID
	}, 10*time.Second, 50*time.Millisecond)

	// Book with all three available and watch the booking surface in the
	// booking-centric query
	for _, p := range []booking.Participant{
		{ID: "aircraft-1", Type: booking.Aircraft},
		{ID: "instructor-1", Type: booking.Instructor},
	} {
		_, err = slots.Exec(ctx, booking.SlotAggregateID(slotID),
			booking.MarkAvailable(slotID, p))
		assert.NoError(t, err)
	}
	_, err = slots.Exec(ctx, booking.SlotAggregateID(slotID),
		booking.BookSlot(slotID, student, "aircraft-1", "instructor-1", bookID))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		rows, err := index.ByBookingStatus(ctx, bookID, booking.StatusBooked)
		return err == nil && len(rows) == 3
	}, 10*time.Second, 50*time.Millisecond)
}
