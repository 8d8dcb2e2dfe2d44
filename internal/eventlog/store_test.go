package eventlog_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"flightslot/internal/eventlog"
)

func makeCounterEvent(id eventlog.AggregateID, n int) *eventlog.Event {
	data, _ := json.Marshal(n)
	return &eventlog.Event{
		Timestamp:   time.Now(),
		Type:        counterIncremented,
		AggregateID: id,
		Data:        data,
	}
}

func TestAppendAndGetEvents(t *testing.T) {
	_, store := newTestStore(t, "append")
	ctx := context.Background()
	id := eventlog.NewAggregateID("counter", "1")

	evs := []*eventlog.Event{
		makeCounterEvent(id, 3),
		makeCounterEvent(id, 4),
	}
	assert.NoError(t, store.AppendEvents(ctx, id, 0, evs))

	loaded, err := store.GetEvents(ctx, id, 0)
	assert.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, counterIncremented, loaded[0].Type)
	assert.Equal(t, int64(0), loaded[0].Sequence)
	assert.Equal(t, int64(1), loaded[1].Sequence)
}

func TestAppendPublishesToKindStream(t *testing.T) {
	server, store := newTestStore(t, "stream")
	ctx := context.Background()
	id := eventlog.NewAggregateID("counter", "1")

	evs := []*eventlog.Event{
		makeCounterEvent(id, 1),
		makeCounterEvent(id, 2),
	}
	assert.NoError(t, store.AppendEvents(ctx, id, 0, evs))

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer func() { _ = client.Close() }()

	n, err := client.XLen(ctx, "stream:stream:counter").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAppendVersionConflict(t *testing.T) {
	_, store := newTestStore(t, "conflict")
	ctx := context.Background()
	id := eventlog.NewAggregateID("counter", "1")

	first := makeCounterEvent(id, 5)
	assert.NoError(t,
		store.AppendEvents(ctx, id, 0, []*eventlog.Event{first}))

	second := makeCounterEvent(id, 7)
	err := store.AppendEvents(ctx, id, 0, []*eventlog.Event{second})
	assert.Error(t, err)

	var conflict *eventlog.VersionConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(0), conflict.ExpectedSequence)
	assert.Equal(t, int64(1), conflict.ActualSequence)
	assert.Len(t, conflict.NewEvents, 1)

	var n int
	assert.NoError(t, conflict.NewEvents[0].Unmarshal(&n))
	assert.Equal(t, 5, n)
}

func TestConflictDoesNotPublish(t *testing.T) {
	server, store := newTestStore(t, "noconflictpub")
	ctx := context.Background()
	id := eventlog.NewAggregateID("counter", "1")

	assert.NoError(t, store.AppendEvents(
		ctx, id, 0, []*eventlog.Event{makeCounterEvent(id, 1)}))
	assert.Error(t, store.AppendEvents(
		ctx, id, 0, []*eventlog.Event{makeCounterEvent(id, 2)}))

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer func() { _ = client.Close() }()

	n, err := client.XLen(ctx, "noconflictpub:stream:counter").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSnapshotRoundtrip(t *testing.T) {
	_, store := newTestStore(t, "snapshot")
	ctx := context.Background()
	id := eventlog.NewAggregateID("counter", "1")

	assert.NoError(t,
		store.PutSnapshot(ctx, id, &counterState{Value: 9}, 3))

	var state counterState
	snap, err := store.GetSnapshot(ctx, id, &state)
	assert.NoError(t, err)
	assert.Equal(t, 9, state.Value)
	assert.Equal(t, int64(3), snap.NextSequence)
	assert.Len(t, snap.AdditionalEvents, 0)
}

func TestGetSnapshotEmpty(t *testing.T) {
	_, store := newTestStore(t, "empty-snapshot")

	var state counterState
	snap, err := store.GetSnapshot(
		context.Background(), eventlog.NewAggregateID("counter", "1"), &state,
	)
	assert.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, int64(0), snap.NextSequence)
	assert.Len(t, snap.AdditionalEvents, 0)
}

func TestListAggregates(t *testing.T) {
	_, store := newTestStore(t, "list")
	ctx := context.Background()

	id1 := eventlog.NewAggregateID("counter", "1")
	id2 := eventlog.NewAggregateID("counter", "2")
	other := eventlog.NewAggregateID("gauge", "1")

	for _, id := range []eventlog.AggregateID{id1, id2, other} {
		assert.NoError(t, store.AppendEvents(
			ctx, id, 0, []*eventlog.Event{makeCounterEvent(id, 1)}))
	}

	ids, err := store.ListAggregates(
		ctx, eventlog.NewAggregateID("counter", "*"),
	)
	assert.NoError(t, err)
	assert.Len(t, ids, 2)
	for _, id := range ids {
		assert.True(t, id.HasPrefix(eventlog.NewAggregateID("counter")))
	}
}

func TestVersionConflictErrorMessage(t *testing.T) {
	err := &eventlog.VersionConflictError{
		ExpectedSequence: 0,
		ActualSequence:   5,
		NewEvents:        []*eventlog.Event{{}, {}},
	}

	assert.Contains(t, err.Error(), "version conflict")
	assert.Contains(t, err.Error(), "expected sequence 0")
	assert.Contains(t, err.Error(), "but at 5")
}

func TestNewStorePingError(t *testing.T) {
	server, err := miniredis.Run()
	assert.NoError(t, err)
	addr := server.Addr()
	server.Close()

	cfg := eventlog.DefaultStoreConfig()
	cfg.Addr = addr

	store, err := eventlog.NewStore(cfg, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, store)
}
