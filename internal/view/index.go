// Package view maintains the participant-slot index: a Redis-backed
// materialization of ParticipantSlot state, queryable by participant and
// by booking.
package view

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flightslot/internal/booking"
	"flightslot/internal/eventlog"
)

type (
	// Index implements booking.SlotView. Rows are keyed by the
	// (slot, participant) pair; secondary sets index row keys per
	// participant and per booking so queries never scan the keyspace
	Index struct {
		client *redis.Client
		log    *zap.Logger
		prefix string
	}

	Config struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const DefaultPrefix = "flightslot-view"

func NewIndex(cfg Config, log *zap.Logger) (*Index, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging view redis")
	}

	return &Index{
		client: client,
		log:    log.Named("view"),
		prefix: cfg.Prefix,
	}, nil
}

func (ix *Index) Close() error {
	return ix.client.Close()
}

// Handler adapts the index updater for relay registration. Updates are
// latest-write-wins, so redelivery of an already-applied event rewrites
// the row with the same contents
func (ix *Index) Handler(ctx context.Context) eventlog.Handler {
	return eventlog.MakeHandler(
		func(ev *eventlog.Event, data booking.SlotEventData) error {
			return ix.apply(ctx, ev, data)
		},
	)
}

var rowStatus = map[eventlog.EventType]booking.Status{
	booking.ParticipantMarkedAvailable:   booking.StatusAvailable,
	booking.ParticipantUnmarkedAvailable: booking.StatusUnavailable,
	booking.ParticipantBooked:            booking.StatusBooked,
	booking.ParticipantCanceled:          booking.StatusCancelled,
}

func (ix *Index) apply(
	ctx context.Context, ev *eventlog.Event, data booking.SlotEventData,
) error {
	status, ok := rowStatus[ev.Type]
	if !ok {
		return nil
	}

	prev, err := ix.getRow(ctx, data.SlotID, data.ParticipantID)
	if err != nil {
		return err
	}

	// Non-creating events can arrive for a row the index has never seen,
	// for instance after the index store is rebuilt. The event payload
	// carries everything needed to materialize the row, so it is created
	// in place rather than dropped
	if prev == nil && status != booking.StatusAvailable {
		ix.log.Warn("materializing missing index row",
			zap.String("slot_id", data.SlotID),
			zap.String("participant_id", data.ParticipantID),
			zap.String("event_type", string(ev.Type)))
	}

	row := booking.ParticipantSlot{
		SlotID:          data.SlotID,
		ParticipantID:   data.ParticipantID,
		ParticipantType: data.ParticipantType,
		BookingID:       data.BookingID,
		Status:          status,
	}
	return ix.putRow(ctx, row, prev)
}

func (ix *Index) putRow(
	ctx context.Context, row booking.ParticipantSlot,
	prev *booking.ParticipantSlot,
) error {
	buf, err := json.Marshal(row)
	if err != nil {
		return err
	}

	key := ix.rowKey(row.SlotID, row.ParticipantID)
	pipe := ix.client.TxPipeline()
	pipe.Set(ctx, key, buf, 0)
	pipe.SAdd(ctx, ix.participantKey(row.ParticipantID), key)
	if row.BookingID != "" {
		pipe.SAdd(ctx, ix.bookingKey(row.BookingID), key)
	}
	// A row taken over by a new booking leaves the old booking's set, so
	// a stale booking ID stops resolving to it
	if prev != nil && prev.BookingID != "" && prev.BookingID != row.BookingID {
		pipe.SRem(ctx, ix.bookingKey(prev.BookingID), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "writing index row")
	}

	ix.log.Debug("index row updated",
		zap.String("slot_id", row.SlotID),
		zap.String("participant_id", row.ParticipantID),
		zap.String("status", string(row.Status)))
	return nil
}

func (ix *Index) getRow(
	ctx context.Context, slotID, participantID string,
) (*booking.ParticipantSlot, error) {
	str, err := ix.client.Get(ctx, ix.rowKey(slotID, participantID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var row booking.ParticipantSlot
	if err := json.Unmarshal([]byte(str), &row); err != nil {
		ix.log.Warn("dropping malformed index row", zap.Error(err))
		return nil, nil
	}
	return &row, nil
}

// ByParticipant returns every slot row recorded for the participant,
// ordered by slot ID
func (ix *Index) ByParticipant(
	ctx context.Context, participantID string,
) ([]booking.ParticipantSlot, error) {
	return ix.rowsBySet(ctx, ix.participantKey(participantID), "")
}

// ByParticipantStatus narrows ByParticipant to rows whose current status
// matches
func (ix *Index) ByParticipantStatus(
	ctx context.Context, participantID string, status booking.Status,
) ([]booking.ParticipantSlot, error) {
	return ix.rowsBySet(ctx, ix.participantKey(participantID), status)
}

// ByBookingStatus returns the rows whose current booking ID and status
// both match. A committed booking contributes one row per participant
func (ix *Index) ByBookingStatus(
	ctx context.Context, bookingID string, status booking.Status,
) ([]booking.ParticipantSlot, error) {
	rows, err := ix.rowsBySet(ctx, ix.bookingKey(bookingID), status)
	if err != nil {
		return nil, err
	}

	// Set membership alone is not authoritative; the row itself says
	// which booking currently owns it
	matched := rows[:0]
	for _, row := range rows {
		if row.BookingID == bookingID {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

func (ix *Index) rowsBySet(
	ctx context.Context, setKey string, status booking.Status,
) ([]booking.ParticipantSlot, error) {
	keys, err := ix.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading index set")
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	raw, err := ix.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading index rows")
	}

	var rows []booking.ParticipantSlot
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			continue
		}
		var row booking.ParticipantSlot
		if err := json.Unmarshal([]byte(str), &row); err != nil {
			ix.log.Warn("dropping malformed index row", zap.Error(err))
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (ix *Index) rowKey(slotID, participantID string) string {
	return ix.prefix + ":row:" + slotID + ":" + participantID
}

func (ix *Index) participantKey(participantID string) string {
	return ix.prefix + ":participant:" + participantID
}

func (ix *Index) bookingKey(bookingID string) string {
	return ix.prefix + ":booking:" + bookingID
}
