package eventlog_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"flightslot/internal/eventlog"
)

// counterState is the minimal aggregate used across these tests
type counterState struct {
	Value int `json:"value"`
}

const counterIncremented eventlog.EventType = "counter.incremented"

func newCounterState() *counterState {
	return &counterState{}
}

var counterAppliers = eventlog.Appliers[*counterState]{
	counterIncremented: eventlog.MakeApplier(
		func(state *counterState, _ *eventlog.Event, n int) *counterState {
			return &counterState{Value: state.Value + n}
		},
	),
}

func increment(n int) eventlog.Command[*counterState] {
	return func(
		_ *counterState, ag *eventlog.Aggregator[*counterState],
	) error {
		return eventlog.Raise(ag, counterIncremented, n)
	}
}

func newTestStore(
	t *testing.T, prefix string,
) (*miniredis.Miniredis, *eventlog.Store) {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := eventlog.DefaultStoreConfig()
	cfg.Addr = server.Addr()
	cfg.Prefix = prefix

	store, err := eventlog.NewStore(cfg, zap.NewNop())
	assert.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return server, store
}
