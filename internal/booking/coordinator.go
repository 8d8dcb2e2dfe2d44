package booking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"flightslot/internal/eventlog"
	"flightslot/internal/weather"
)

type (
	// SlotView answers participant-centric and booking-centric lookups
	// against the materialized index. Results lag the slot aggregate by
	// the router + indexer pipeline latency; the coordinator treats them
	// as advisory and lets the aggregate's own command handler have the
	// final word
	SlotView interface {
		ByParticipant(
			ctx context.Context, participantID string,
		) ([]ParticipantSlot, error)
		ByParticipantStatus(
			ctx context.Context, participantID string, status Status,
		) ([]ParticipantSlot, error)
		ByBookingStatus(
			ctx context.Context, bookingID string, status Status,
		) ([]ParticipantSlot, error)
	}

	// Coordinator orchestrates booking requests: input validation, the
	// admission gate, index lookups, and commands against the slot
	// aggregate
	Coordinator struct {
		slots    *eventlog.Executor[*Timeslot]
		view     SlotView
		assessor weather.Assessor
		location string
		log      *zap.Logger
		now      func() time.Time
	}
)

// minimum BOOKED rows that prove a booking exists; a valid booking always
// commits exactly three booked events
const bookingRowCount = 3

func NewCoordinator(
	slots *eventlog.Executor[*Timeslot], view SlotView,
	assessor weather.Assessor, location string, log *zap.Logger,
) *Coordinator {
	return &Coordinator{
		slots:    slots,
		view:     view,
		assessor: assessor,
		location: location,
		log:      log.Named("coordinator"),
		now:      time.Now,
	}
}

// CreateBooking books a student, aircraft, and instructor into the slot.
// The gate and the view are consulted first so rejections carry a precise
// reason, but availability is enforced authoritatively inside the
// aggregate command, which closes the read-then-write race between two
// concurrent bookings sharing a participant
func (c *Coordinator) CreateBooking(
	ctx context.Context,
	slotID, studentID, aircraftID, instructorID, bookingID string,
) error {
	if err := CheckBookable(slotID, c.now()); err != nil {
		return err
	}

	report, err := c.assessor.Assess(ctx, slotID, c.location)
	if err != nil {
		return NewExternalServiceError(err)
	}
	c.log.Info("admission gate verdict",
		zap.String("slot_id", slotID),
		zap.Bool("meets_requirements", report.MeetsRequirements),
		zap.String("justification", report.Justification))

	if !report.MeetsRequirements {
		return NewConflictError(
			"booking rejected due to weather report: %s",
			report.Justification)
	}

	if err := c.checkViewAvailability(
		ctx, slotID, studentID, aircraftID, instructorID,
	); err != nil {
		return err
	}

	_, err = c.slots.Exec(ctx, SlotAggregateID(slotID),
		BookSlot(slotID, studentID, aircraftID, instructorID, bookingID))
	if err != nil {
		if IsConflict(err) {
			return err
		}
		return NewPersistenceError(err)
	}

	c.log.Info("booking created",
		zap.String("slot_id", slotID),
		zap.String("booking_id", bookingID))
	return nil
}

// checkViewAvailability reads the index once per participant, three
// separate non-transactional lookups, and enumerates by role name exactly
// which participants have no AVAILABLE row for the slot
func (c *Coordinator) checkViewAvailability(
	ctx context.Context, slotID, studentID, aircraftID, instructorID string,
) error {
	roles := []struct {
		id string
		pt ParticipantType
	}{
		{studentID, Student},
		{aircraftID, Aircraft},
		{instructorID, Instructor},
	}

	var unavailable []string
	for _, role := range roles {
		rows, err := c.view.ByParticipantStatus(
			ctx, role.id, StatusAvailable,
		)
		if err != nil {
			return NewPersistenceError(err)
		}
		if !containsSlot(rows, slotID) {
			unavailable = append(unavailable, role.pt.Label())
		}
	}

	if len(unavailable) > 0 {
		return NewConflictError(
			"cannot book timeslot, participants unavailable: %s",
			strings.Join(unavailable, " "))
	}
	return nil
}

// CancelBooking cancels the booking if the index shows a complete one
// (three BOOKED rows). The aggregate cancels whatever its authoritative
// booked set currently holds, which may diverge from a stale view
func (c *Coordinator) CancelBooking(
	ctx context.Context, slotID, bookingID string,
) error {
	rows, err := c.view.ByBookingStatus(ctx, bookingID, StatusBooked)
	if err != nil {
		return NewPersistenceError(err)
	}
	if len(rows) < bookingRowCount {
		return NewNotFoundError("no booking with id: %s", bookingID)
	}

	_, err = c.slots.Exec(ctx, SlotAggregateID(slotID),
		CancelBooking(slotID, bookingID))
	if err != nil {
		return NewPersistenceError(err)
	}

	c.log.Info("booking canceled",
		zap.String("slot_id", slotID),
		zap.String("booking_id", bookingID))
	return nil
}

// MarkAvailable records the participant's availability for a future slot.
// Toggling availability on an already-booked participant is a conflict
func (c *Coordinator) MarkAvailable(
	ctx context.Context, slotID, participantID string, participantType string,
) error {
	p, err := c.checkAvailabilityChange(
		ctx, slotID, participantID, participantType,
	)
	if err != nil {
		return err
	}

	_, err = c.slots.Exec(ctx, SlotAggregateID(slotID),
		MarkAvailable(slotID, *p))
	if err != nil {
		return NewPersistenceError(err)
	}
	return nil
}

// UnmarkAvailable withdraws the participant's availability; same window
// and booked-participant validation as MarkAvailable
func (c *Coordinator) UnmarkAvailable(
	ctx context.Context, slotID, participantID string, participantType string,
) error {
	p, err := c.checkAvailabilityChange(
		ctx, slotID, participantID, participantType,
	)
	if err != nil {
		return err
	}

	_, err = c.slots.Exec(ctx, SlotAggregateID(slotID),
		UnmarkAvailable(slotID, *p))
	if err != nil {
		return NewPersistenceError(err)
	}
	return nil
}

func (c *Coordinator) checkAvailabilityChange(
	ctx context.Context, slotID, participantID, participantType string,
) (*Participant, error) {
	if err := CheckMarkable(slotID, c.now()); err != nil {
		return nil, err
	}

	pt, err := ParseParticipantType(participantType)
	if err != nil {
		return nil, err
	}

	rows, err := c.view.ByParticipantStatus(
		ctx, participantID, StatusBooked,
	)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if containsSlot(rows, slotID) {
		return nil, NewConflictError(
			"participant %s is already booked on this time slot",
			participantID)
	}

	return &Participant{ID: participantID, Type: pt}, nil
}

// GetSlot returns the slot's authoritative current state; a slot with no
// recorded events is the canonical empty state
func (c *Coordinator) GetSlot(
	ctx context.Context, slotID string,
) (*Timeslot, error) {
	if _, err := ParseSlotID(slotID); err != nil {
		return nil, err
	}

	state, err := c.slots.Exec(ctx, SlotAggregateID(slotID),
		func(*Timeslot, *eventlog.Aggregator[*Timeslot]) error {
			return nil
		},
	)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return state, nil
}

func containsSlot(rows []ParticipantSlot, slotID string) bool {
	for _, row := range rows {
		if row.SlotID == slotID {
			return true
		}
	}
	return false
}
