package eventlog

type (
	// Applier folds a single event into aggregate state
	Applier[T any] func(T, *Event) T

	// Appliers is the closed set of event variants an aggregate reduces.
	// An event type absent from the map is left unapplied
	Appliers[T any] map[EventType]Applier[T]

	// Handler consumes a single delivered event
	Handler func(*Event) error
)

// MakeApplier adapts a typed reducer into an Applier by decoding the event
// payload. Undecodable payloads leave the state untouched
func MakeApplier[T, Data any](fn func(T, *Event, Data) T) Applier[T] {
	return func(val T, ev *Event) T {
		var data Data
		if err := ev.Unmarshal(&data); err != nil {
			return val
		}
		return fn(val, ev, data)
	}
}

// MakeHandler adapts a typed consumer into a Handler
func MakeHandler[T any](fn func(ev *Event, data T) error) Handler {
	return func(ev *Event) error {
		var data T
		if err := ev.Unmarshal(&data); err != nil {
			return err
		}
		return fn(ev, data)
	}
}

// MakeDispatcher routes events to per-type handlers. Unknown event types
// are acknowledged without effect
func MakeDispatcher(handlers map[EventType]Handler) Handler {
	return func(ev *Event) error {
		if fn, ok := handlers[ev.Type]; ok {
			return fn(ev)
		}
		return nil
	}
}
