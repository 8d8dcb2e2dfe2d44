package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type (
	// Store is a Redis-backed append-only event log. Multi-event batches
	// commit atomically together with their publication to the per-kind
	// outbound stream
	Store struct {
		client         *redis.Client
		log            *zap.Logger
		prefix         string
		appendEvents   *redis.Script
		getEvents      *redis.Script
		putSnapshot    *redis.Script
		getSnapshot    *redis.Script
		consumeEntry   *redis.Script
		offloadDelete  *redis.Script
		snapshotWorker *SnapshotWorker
		config         StoreConfig
	}

	// VersionConflictError reports an optimistic append that lost the race,
	// carrying the events committed by the winner
	VersionConflictError struct {
		NewEvents        []*Event
		ExpectedSequence int64
		ActualSequence   int64
	}

	// SnapshotResult carries a loaded snapshot plus the events committed
	// after it was taken
	SnapshotResult struct {
		AdditionalEvents []*Event
		NextSequence     int64
		ShouldSnapshot   bool
	}
)

const (
	RedisConnectTimeout = 5 * time.Second

	eventsSuffix      = ":events"
	snapshotValSuffix = ":snapshot:val"
	snapshotSeqSuffix = ":snapshot:seq"
	streamInfix       = ":stream:"
)

var ErrUnexpectedScriptResult = errors.New(
	"unexpected result from Lua script")

// NewStore connects to Redis and prepares the Lua scripts
func NewStore(cfg StoreConfig, log *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(
		context.Background(), RedisConnectTimeout,
	)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "event store ping")
	}

	s := &Store{
		client:        client,
		log:           log,
		prefix:        cfg.Prefix,
		appendEvents:  redis.NewScript(luaAppendEvents),
		getEvents:     redis.NewScript(luaGetEvents),
		putSnapshot:   redis.NewScript(luaPutSnapshot),
		getSnapshot:   redis.NewScript(luaGetSnapshot),
		consumeEntry:  redis.NewScript(luaConsumeEntry),
		offloadDelete: redis.NewScript(luaOffloadDelete),
		config:        cfg,
	}
	return s, nil
}

// StartSnapshotWorker enables background snapshot saves for this store
func (s *Store) StartSnapshotWorker() {
	if s.snapshotWorker == nil {
		s.snapshotWorker = NewSnapshotWorker(s, s.config)
	}
}

func (s *Store) Close() error {
	if s.snapshotWorker != nil {
		s.snapshotWorker.Stop()
	}
	return s.client.Close()
}

// AppendEvents appends a batch of events at the expected sequence. The
// batch and its stream publication are one atomic unit; on a sequence
// mismatch the returned VersionConflictError carries the interleaved events
func (s *Store) AppendEvents(
	ctx context.Context, id AggregateID, atSeq int64, evs []*Event,
) error {
	if len(evs) == 0 {
		return nil
	}

	keys := []string{s.buildKey(id, eventsSuffix), s.streamKey(id)}
	args := []any{atSeq}

	for _, ev := range evs {
		eventData, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		args = append(args, string(eventData))
	}

	result, err := s.appendEvents.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return err
	}

	res, ok := result.([]any)
	if !ok || len(res) < 2 {
		return ErrUnexpectedScriptResult
	}
	success := res[0].(int64)
	seq := res[1].(int64)

	if success == 0 {
		return s.versionConflict(res[2:], atSeq, seq)
	}
	return nil
}

// GetEvents returns the aggregate's events starting at fromSeq
func (s *Store) GetEvents(
	ctx context.Context, id AggregateID, fromSeq int64,
) ([]*Event, error) {
	keys := []string{s.buildKey(id, eventsSuffix)}

	result, err := s.getEvents.Run(ctx, s.client, keys, fromSeq).Result()
	if err != nil {
		return nil, err
	}

	return s.unmarshalEvents(fromSeq, result.([]any))
}

// GetSnapshot loads the latest snapshot into target and returns the events
// committed after it
func (s *Store) GetSnapshot(
	ctx context.Context, id AggregateID, target any,
) (*SnapshotResult, error) {
	keys := []string{
		s.buildKey(id, snapshotValSuffix),
		s.buildKey(id, snapshotSeqSuffix),
		s.buildKey(id, eventsSuffix),
	}

	result, err := s.getSnapshot.Run(ctx, s.client, keys).Result()
	if err != nil {
		return nil, err
	}

	resultSlice, ok := result.([]any)
	if !ok || len(resultSlice) < 2 {
		return nil, ErrUnexpectedScriptResult
	}

	snapData := resultSlice[0].(string)
	snapSeq := resultSlice[1].(int64)

	if snapData != "" {
		if err := json.Unmarshal([]byte(snapData), target); err != nil {
			return nil, err
		}
	}

	events, err := s.unmarshalEvents(snapSeq, resultSlice[2:])
	if err != nil {
		return nil, err
	}

	eventsSize := 0
	for i := range events {
		eventsSize += len(resultSlice[i+2].(string))
	}

	return &SnapshotResult{
		AdditionalEvents: events,
		NextSequence:     snapSeq,
		ShouldSnapshot:   eventsSize > len(snapData),
	}, nil
}

// PutSnapshot saves a snapshot if its sequence is newer than the stored one
func (s *Store) PutSnapshot(
	ctx context.Context, id AggregateID, value any, sequence int64,
) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	keys := []string{
		s.buildKey(id, snapshotValSuffix),
		s.buildKey(id, snapshotSeqSuffix),
	}
	_, err = s.putSnapshot.Run(
		ctx, s.client, keys, string(data), sequence,
	).Result()
	return err
}

// ListAggregates returns the IDs of aggregates matching the given prefix
// pattern. Parts may use Redis glob characters ("slot", "*")
func (s *Store) ListAggregates(
	ctx context.Context, id AggregateID,
) ([]AggregateID, error) {
	searchKey := fmt.Sprintf("%s:%s%s", s.prefix, id.Key(), eventsSuffix)

	keys, err := s.client.Keys(ctx, searchKey).Result()
	if err != nil {
		return nil, err
	}

	var ids []AggregateID
	for _, key := range keys {
		trimmed := strings.TrimPrefix(key, s.prefix+":")
		trimmed = strings.TrimSuffix(trimmed, eventsSuffix)
		ids = append(ids, ParseAggregateID(trimmed, idSep))
	}

	return ids, nil
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf(
		"version conflict: expected sequence %d, but at %d (%d new events)",
		e.ExpectedSequence, e.ActualSequence, len(e.NewEvents),
	)
}

func (s *Store) versionConflict(
	rawEvents []any, expectedSeq, actualSeq int64,
) error {
	newEvs, err := s.unmarshalEvents(expectedSeq, rawEvents)
	if err != nil {
		return err
	}

	return &VersionConflictError{
		ExpectedSequence: expectedSeq,
		ActualSequence:   actualSeq,
		NewEvents:        newEvs,
	}
}

func (s *Store) buildKey(id AggregateID, suffix string) string {
	return fmt.Sprintf("%s:%s%s", s.prefix, id.Key(), suffix)
}

// streamKey returns the outbound stream for the aggregate's kind (the first
// ID part), so each downstream consumer group owns its stream exclusively
func (s *Store) streamKey(id AggregateID) string {
	return s.prefix + streamInfix + string(id[0])
}

func (s *Store) unmarshalEvents(
	startSeq int64, data []any,
) ([]*Event, error) {
	events := make([]*Event, 0, len(data))
	for i, item := range data {
		ev := &Event{}
		if err := json.Unmarshal([]byte(item.(string)), ev); err != nil {
			return nil, err
		}
		ev.Sequence = startSeq + int64(i)
		events = append(events, ev)
	}
	return events, nil
}
