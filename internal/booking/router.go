package booking

import (
	"context"

	"go.uber.org/zap"

	"flightslot/internal/eventlog"
)

// Router fans committed slot events out into commands on the addressed
// ParticipantSlot instance. It runs behind an at-least-once relay, so a
// duplicate delivery re-raises an event the projection reduces to the same
// status; out-of-order delivery across different slots is harmless because
// every (slot, participant) pair is an independent state machine
type Router struct {
	projections *eventlog.Executor[*ParticipantSlot]
	log         *zap.Logger
}

// slot event -> the mirrored participant-slot event it becomes
var routedEvents = map[eventlog.EventType]eventlog.EventType{
	SlotMarkedAvailable:     ParticipantMarkedAvailable,
	SlotUnmarkedAvailable:   ParticipantUnmarkedAvailable,
	SlotParticipantBooked:   ParticipantBooked,
	SlotParticipantCanceled: ParticipantCanceled,
}

func NewRouter(
	projections *eventlog.Executor[*ParticipantSlot], log *zap.Logger,
) *Router {
	return &Router{
		projections: projections,
		log:         log.Named("router"),
	}
}

// Handler adapts the router for relay registration
func (r *Router) Handler(ctx context.Context) eventlog.Handler {
	return eventlog.MakeHandler(
		func(ev *eventlog.Event, data SlotEventData) error {
			return r.route(ctx, ev, data)
		},
	)
}

func (r *Router) route(
	ctx context.Context, ev *eventlog.Event, data SlotEventData,
) error {
	routed, ok := routedEvents[ev.Type]
	if !ok {
		return nil
	}

	id := ParticipantSlotID(data.SlotID, data.ParticipantID)
	_, err := r.projections.Exec(ctx, id,
		func(_ *ParticipantSlot, ag *eventlog.Aggregator[*ParticipantSlot]) error {
			return eventlog.Raise(ag, routed, data)
		},
	)
	if err != nil {
		r.log.Warn("failed to route slot event",
			zap.String("event_type", string(ev.Type)),
			zap.String("participant_slot", id.Key()),
			zap.Error(err))
		return err
	}

	r.log.Debug("routed slot event",
		zap.String("event_type", string(ev.Type)),
		zap.String("participant_slot", id.Key()))
	return nil
}
