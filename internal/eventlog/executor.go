package eventlog

import (
	"context"

	"github.com/cockroachdb/errors"
)

type (
	// Executor serializes commands against individual aggregates. Commands
	// run against current state and their raised events are flushed as one
	// atomic batch with an optimistic sequence check; a conflicting writer
	// causes a state refresh and retry
	Executor[T any] struct {
		store      *Store
		appliers   Appliers[T]
		construct  constructor[T]
		cache      *lruCache[*projection[T]]
		maxRetries int
	}

	// Command mutates an aggregate by raising events on its Aggregator
	Command[T any] func(T, *Aggregator[T]) error

	projection[T any] struct {
		State        T
		NextSequence int64
	}
)

var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

func NewExecutor[T any](
	store *Store, cons constructor[T], apps Appliers[T], cfg Config,
) *Executor[T] {
	return &Executor[T]{
		store:      store,
		appliers:   apps,
		construct:  cons,
		cache:      newLRUCache[*projection[T]](cfg.CacheSize),
		maxRetries: cfg.MaxRetries,
	}
}

func (e *Executor[T]) GetStore() *Store {
	return e.store
}

// AppliesEvent reports whether this executor's aggregate reduces the event
func (e *Executor[T]) AppliesEvent(ev *Event) bool {
	_, ok := e.appliers[ev.Type]
	return ok
}

// Exec loads the aggregate, runs the command, and commits the raised batch.
// An aggregate with no committed events starts from its constructor's empty
// state, so the first command simply appends against sequence zero
func (e *Executor[T]) Exec(
	ctx context.Context, id AggregateID, cmd Command[T],
) (T, error) {
	var zero T
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		proj, err := e.loadSnapshot(ctx, id)
		if err != nil {
			return zero, err
		}

		ag := newAggregator(id, e.appliers, proj.State, proj.NextSequence)
		if err := cmd(ag.Value(), ag); err != nil {
			return zero, err
		}

		count, err := ag.Flush(func(atSeq int64, evs []*Event) error {
			return e.store.AppendEvents(ctx, id, atSeq, evs)
		})
		if err == nil {
			if count == 0 {
				return proj.State, nil
			}
			final := &projection[T]{
				State:        ag.Value(),
				NextSequence: ag.NextSequence(),
			}
			e.updateCache(id, final)
			return final.State, nil
		}

		if !e.handleVersionConflict(err, id, proj) {
			return zero, err
		}
	}

	return zero, ErrMaxRetriesExceeded
}

func (e *Executor[T]) handleVersionConflict(
	err error, id AggregateID, proj *projection[T],
) bool {
	var versionErr *VersionConflictError
	if !errors.As(err, &versionErr) {
		return false
	}

	// A log shorter than the cached projection expects means the aggregate
	// was offloaded or its keys removed; the projection must be rebuilt
	// from the store rather than patched forward
	if versionErr.ActualSequence < versionErr.ExpectedSequence {
		e.invalidate(id)
		return true
	}

	if evs := versionErr.NewEvents; len(evs) > 0 {
		updated := e.applyEvents(proj.State, evs)
		e.updateCache(id, updated)
	}
	return true
}

func (e *Executor[T]) invalidate(id AggregateID) {
	entry := e.cache.Get(id.Key(), func() *projection[T] {
		return &projection[T]{State: e.construct()}
	})
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.value = &projection[T]{State: e.construct(), NextSequence: 0}
}

func (e *Executor[T]) loadSnapshot(
	ctx context.Context, id AggregateID,
) (*projection[T], error) {
	entry := e.cache.Get(id.Key(), func() *projection[T] {
		return &projection[T]{State: e.construct(), NextSequence: 0}
	})
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.value.NextSequence != 0 {
		return entry.value, nil
	}

	return e.loadFromStore(ctx, id, entry)
}

func (e *Executor[T]) loadFromStore(
	ctx context.Context, id AggregateID, entry *cacheEntry[*projection[T]],
) (*projection[T], error) {
	proj := &projection[T]{State: e.construct()}

	snap, err := e.store.GetSnapshot(ctx, id, &proj.State)
	if err != nil {
		return nil, err
	}
	proj.NextSequence = snap.NextSequence

	if evs := snap.AdditionalEvents; len(evs) > 0 {
		proj = e.applyEvents(proj.State, evs)
	}

	if snap.ShouldSnapshot && e.store.snapshotWorker != nil {
		e.store.snapshotWorker.enqueue(id, proj.State, proj.NextSequence)
	}

	entry.value = proj
	return proj, nil
}

func (e *Executor[T]) applyEvents(state T, evs []*Event) *projection[T] {
	for _, ev := range evs {
		if apply, ok := e.appliers[ev.Type]; ok {
			state = apply(state, ev)
		}
	}
	return &projection[T]{
		State:        state,
		NextSequence: evs[len(evs)-1].Sequence + 1,
	}
}

func (e *Executor[T]) updateCache(id AggregateID, proj *projection[T]) {
	entry := e.cache.Get(id.Key(), func() *projection[T] { return proj })
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if proj.NextSequence > entry.value.NextSequence {
		entry.value = proj
	}
}

// SaveSnapshot forces an immediate snapshot save for the given aggregate,
// bypassing the worker queue
func (e *Executor[T]) SaveSnapshot(
	ctx context.Context, id AggregateID,
) error {
	proj, err := e.loadSnapshot(ctx, id)
	if err != nil {
		return err
	}
	return e.store.PutSnapshot(ctx, id, proj.State, proj.NextSequence)
}
