package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"flightslot/internal/eventlog"
)

// Sweeper periodically offloads the event logs of slots whose hour has
// elapsed past the retention window, along with the participant-slot
// projections derived from them, into the cold store
type Sweeper struct {
	store     *eventlog.Store
	cold      eventlog.ColdStore
	log       *zap.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

const (
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

func NewSweeper(
	store *eventlog.Store, cold eventlog.ColdStore,
	retention, interval time.Duration, log *zap.Logger,
) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:     store,
		cold:      cold,
		log:       log.Named("sweeper"),
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start launches the background sweep loop. Stop shuts it down
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					s.log.Warn("sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Sweep offloads every expired slot it finds. Failures on individual
// slots are logged and skipped; the next sweep retries them
func (s *Sweeper) Sweep(ctx context.Context) error {
	ids, err := s.store.ListAggregates(
		ctx, eventlog.NewAggregateID(SlotKind, "*"),
	)
	if err != nil {
		return err
	}

	cutoff := s.now().Add(-s.retention)
	var swept int
	for _, id := range ids {
		slotID := string(id[1])
		start, err := ParseSlotID(slotID)
		if err != nil {
			s.log.Warn("skipping unparseable slot aggregate",
				zap.String("aggregate_id", id.Key()))
			continue
		}
		if !start.Before(cutoff) {
			continue
		}

		if err := s.sweepSlot(ctx, slotID); err != nil {
			s.log.Warn("failed to offload slot",
				zap.String("slot_id", slotID), zap.Error(err))
			continue
		}
		swept++
	}

	if swept > 0 {
		s.log.Info("sweep complete", zap.Int("slots_offloaded", swept))
	}
	return nil
}

// sweepSlot offloads the slot aggregate and then every participant-slot
// projection keyed under the same slot ID
func (s *Sweeper) sweepSlot(ctx context.Context, slotID string) error {
	if err := s.store.Offload(ctx, SlotAggregateID(slotID), s.cold); err != nil {
		return err
	}

	derived, err := s.store.ListAggregates(ctx, eventlog.NewAggregateID(
		ParticipantSlotKind, eventlog.ID(slotID), "*",
	))
	if err != nil {
		return err
	}
	for _, id := range derived {
		if err := s.store.Offload(ctx, id, s.cold); err != nil {
			return err
		}
	}
	return nil
}
