package eventlog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type (
	// Relay delivers committed events of one aggregate kind to a handler
	// through a Redis Streams consumer group. Delivery is at-least-once:
	// an entry is acknowledged and removed only after the handler returns
	// nil, and abandoned deliveries are reclaimed after MinIdle. Events
	// from the same aggregate arrive in commit order
	Relay struct {
		store    *Store
		log      *zap.Logger
		handler  Handler
		kind     ID
		group    string
		consumer string
		minIdle  time.Duration
		cancel   context.CancelFunc
		done     chan struct{}
	}
)

const (
	// DefaultMinIdle is the idle duration before pending deliveries are
	// reclaimed from a dead consumer
	DefaultMinIdle = 30 * time.Second

	relayReadCount = 16
	relayBlock     = time.Second
)

var ErrNilRelayHandler = errors.New("relay handler is required")

func NewRelay(
	store *Store, kind ID, group string, handler Handler, log *zap.Logger,
) (*Relay, error) {
	if handler == nil {
		return nil, ErrNilRelayHandler
	}
	return &Relay{
		store:    store,
		log:      log.Named("relay").With(zap.String("group", group)),
		handler:  handler,
		kind:     kind,
		group:    group,
		consumer: group + "-1",
		minIdle:  DefaultMinIdle,
	}, nil
}

// SetMinIdle overrides the reclaim threshold for pending deliveries
func (r *Relay) SetMinIdle(d time.Duration) {
	r.minIdle = d
}

// Start runs the relay loop in the background until Stop is called
func (r *Relay) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for {
			if err := r.Poll(ctx, relayBlock); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.Warn("relay poll failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(relayBlock):
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Stop halts the background loop and waits for it to drain
func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Poll reads pending and new deliveries once, invoking the handler for
// each. Processing stops at the first handler failure so redelivery keeps
// per-aggregate order
func (r *Relay) Poll(ctx context.Context, block time.Duration) error {
	streamKey := r.streamKey()

	if err := r.ensureGroup(ctx, streamKey); err != nil {
		return err
	}

	if err := r.reclaim(ctx, streamKey); err != nil {
		return err
	}

	args := &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{streamKey, ">"},
		Count:    relayReadCount,
		Block:    block,
	}

	streams, err := r.store.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if err := r.deliver(ctx, streamKey, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Relay) reclaim(ctx context.Context, streamKey string) error {
	args := &redis.XAutoClaimArgs{
		Stream:   streamKey,
		Group:    r.group,
		Consumer: r.consumer,
		MinIdle:  r.minIdle,
		Start:    "0-0",
		Count:    relayReadCount,
	}

	msgs, _, err := r.store.client.XAutoClaim(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for _, msg := range msgs {
		if err := r.deliver(ctx, streamKey, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) deliver(
	ctx context.Context, streamKey string, msg redis.XMessage,
) error {
	ev, err := r.parseEntry(msg)
	if err != nil {
		// A malformed entry would wedge the group forever; drop it loudly
		r.log.Error("dropping malformed stream entry",
			zap.String("stream_id", msg.ID), zap.Error(err))
		return r.ack(ctx, streamKey, msg.ID)
	}

	if err := r.handler(ev); err != nil {
		r.log.Warn("event handler failed, leaving delivery pending",
			zap.String("event_type", string(ev.Type)),
			zap.String("aggregate_id", ev.AggregateID.Key()),
			zap.Error(err))
		return err
	}

	return r.ack(ctx, streamKey, msg.ID)
}

func (r *Relay) ack(
	ctx context.Context, streamKey, msgID string,
) error {
	_, err := r.store.consumeEntry.Run(
		ctx, r.store.client, []string{streamKey}, r.group, msgID,
	).Result()
	return err
}

func (r *Relay) parseEntry(msg redis.XMessage) (*Event, error) {
	payloadRaw, ok := msg.Values["payload"]
	if !ok {
		return nil, errors.New("stream entry missing payload")
	}

	payload, ok := payloadRaw.(string)
	if !ok {
		if raw, okBytes := payloadRaw.([]byte); okBytes {
			payload = string(raw)
		} else {
			return nil, errors.New("stream entry payload is not a string")
		}
	}

	ev := &Event{}
	if err := json.Unmarshal([]byte(payload), ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *Relay) ensureGroup(ctx context.Context, streamKey string) error {
	err := r.store.client.XGroupCreateMkStream(
		ctx, streamKey, r.group, "0-0",
	).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (r *Relay) streamKey() string {
	return r.store.prefix + streamInfix + string(r.kind)
}
