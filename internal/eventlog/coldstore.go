package eventlog

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type (
	// ColdStore persists an aggregate's full artifacts outside Redis once
	// the aggregate is no longer live
	ColdStore interface {
		Put(context.Context, AggregateID, *ColdRecord) error
		Close() error
	}

	// ColdRecord stores the snapshot and event list for an aggregate
	ColdRecord struct {
		Snapshot         json.RawMessage   `json:"snapshot,omitempty"`
		SnapshotSequence int64             `json:"snapshot_sequence"`
		Events           []json.RawMessage `json:"events"`
	}
)

// ErrOffloadConflict indicates the aggregate's log advanced while its
// artifacts were being offloaded; the caller may retry
var ErrOffloadConflict = errors.New(
	"aggregate log advanced during offload")

// Offload moves the aggregate's snapshot and events into the ColdStore and
// removes its Redis keys. Deletion is skipped if the log advanced after the
// read, so no committed event is ever lost
func (s *Store) Offload(
	ctx context.Context, id AggregateID, cold ColdStore,
) error {
	eventsKey := s.buildKey(id, eventsSuffix)
	snapKey := s.buildKey(id, snapshotValSuffix)
	snapSeqKey := s.buildKey(id, snapshotSeqSuffix)

	rawEvents, err := s.client.LRange(ctx, eventsKey, 0, -1).Result()
	if err != nil {
		return err
	}

	snapData, err := s.client.Get(ctx, snapKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	snapSeq, err := s.client.Get(ctx, snapSeqKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if snapData == "" && len(rawEvents) == 0 {
		return nil
	}

	record := &ColdRecord{
		SnapshotSequence: snapSeq,
		Events:           make([]json.RawMessage, 0, len(rawEvents)),
	}
	// Only set when one exists; an empty RawMessage is not valid JSON and
	// would poison the record's own marshaling
	if snapData != "" {
		record.Snapshot = json.RawMessage(snapData)
	}
	for _, ev := range rawEvents {
		record.Events = append(record.Events, json.RawMessage(ev))
	}

	if err := cold.Put(ctx, id, record); err != nil {
		return err
	}

	keys := []string{snapKey, snapSeqKey, eventsKey}
	result, err := s.offloadDelete.Run(
		ctx, s.client, keys, len(rawEvents),
	).Result()
	if err != nil {
		return err
	}
	if deleted, ok := result.(int64); !ok || deleted == 0 {
		return ErrOffloadConflict
	}
	return nil
}
