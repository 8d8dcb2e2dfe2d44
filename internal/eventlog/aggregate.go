package eventlog

import (
	"encoding/json"
	"time"
)

type (
	// Aggregator maintains aggregate state and tracks events raised during a
	// command. It is not safe for concurrent use
	Aggregator[T any] struct {
		value    T
		appliers Appliers[T]
		id       AggregateID
		enqueued []*Event
		nextSeq  int64
	}

	// Flusher persists enqueued events and returns an error if the write
	// fails. The first argument is the sequence the batch expects to append
	// at
	Flusher func(int64, []*Event) error
)

func newAggregator[T any](
	id AggregateID, appliers Appliers[T], initValue T, initSeq int64,
) *Aggregator[T] {
	return &Aggregator[T]{
		id:       id,
		nextSeq:  initSeq,
		enqueued: []*Event{},
		appliers: appliers,
		value:    initValue,
	}
}

// ID returns the aggregate's identifier components
func (a *Aggregator[_]) ID() AggregateID {
	return a.id
}

// Value returns the aggregate's current state
func (a *Aggregator[T]) Value() T {
	return a.value
}

// NextSequence returns the next sequence number that will be assigned to a
// new event
func (a *Aggregator[_]) NextSequence() int64 {
	return a.nextSeq
}

// Enqueued returns the events raised during the current command
func (a *Aggregator[_]) Enqueued() []*Event {
	return a.enqueued
}

func (a *Aggregator[T]) raise(typ EventType, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ev := &Event{
		Timestamp:   time.Now(),
		Sequence:    a.nextSeq,
		AggregateID: a.id,
		Type:        typ,
		Data:        data,
	}
	a.enqueued = append(a.enqueued, ev)
	a.nextSeq++
	a.Apply(ev)
	return nil
}

// Apply updates the aggregate state using the applier for the event
func (a *Aggregator[T]) Apply(ev *Event) {
	if apply, ok := a.appliers[ev.Type]; ok {
		a.value = apply(a.value, ev)
	}
}

// Flush writes enqueued events through the provided flusher and clears the
// queue on success. All enqueued events are presented as a single batch, so
// a partial append is never observable
func (a *Aggregator[_]) Flush(f Flusher) (int, error) {
	count := len(a.enqueued)
	if count == 0 {
		return 0, nil
	}
	expectedSeq := a.nextSeq - int64(count)
	if err := f(expectedSeq, a.enqueued); err != nil {
		return count, err
	}
	a.enqueued = []*Event{}
	return count, nil
}

// Raise marshals the value and enqueues a new event on the Aggregator
func Raise[T, V any](ag *Aggregator[T], typ EventType, value V) error {
	return ag.raise(typ, value)
}
