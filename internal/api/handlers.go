package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"flightslot/internal/booking"
)

type (
	createBookingRequest struct {
		StudentID    string `json:"student_id"`
		AircraftID   string `json:"aircraft_id"`
		InstructorID string `json:"instructor_id"`
		BookingID    string `json:"booking_id"`
	}

	bookingResponse struct {
		SlotID    string `json:"slot_id"`
		BookingID string `json:"booking_id"`
	}

	availabilityRequest struct {
		ParticipantID   string `json:"participant_id"`
		ParticipantType string `json:"participant_type"`
	}

	slotResponse struct {
		SlotID    string           `json:"slot_id"`
		Available []participantDTO `json:"available"`
		Booked    []bookedEntryDTO `json:"booked"`
	}

	participantDTO struct {
		ParticipantID   string `json:"participant_id"`
		ParticipantType string `json:"participant_type"`
	}

	bookedEntryDTO struct {
		ParticipantID   string `json:"participant_id"`
		ParticipantType string `json:"participant_type"`
		BookingID       string `json:"booking_id"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func (s *Server) createBooking(c echo.Context) error {
	slotID := c.Param("slotId")

	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest,
			errorResponse{Error: "malformed request body"})
	}
	if req.StudentID == "" || req.AircraftID == "" || req.InstructorID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "student_id, aircraft_id and instructor_id are required",
		})
	}
	if req.BookingID == "" {
		req.BookingID = uuid.NewString()
	}

	err := s.coordinator.CreateBooking(
		c.Request().Context(), slotID,
		req.StudentID, req.AircraftID, req.InstructorID, req.BookingID,
	)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, bookingResponse{
		SlotID:    slotID,
		BookingID: req.BookingID,
	})
}

func (s *Server) cancelBooking(c echo.Context) error {
	slotID := c.Param("slotId")
	bookingID := c.Param("bookingId")

	err := s.coordinator.CancelBooking(c.Request().Context(), slotID, bookingID)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, bookingResponse{
		SlotID:    slotID,
		BookingID: bookingID,
	})
}

// participantSlots lists the participant's slot rows filtered to the
// requested status. The status segment is case-insensitive
func (s *Server) participantSlots(c echo.Context) error {
	participantID := c.Param("participantId")
	status := booking.Status(strings.ToUpper(c.Param("status")))

	switch status {
	case booking.StatusAvailable, booking.StatusUnavailable,
		booking.StatusBooked, booking.StatusCancelled:
	default:
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "unknown status: " + string(status),
		})
	}

	rows, err := s.view.ByParticipantStatus(
		c.Request().Context(), participantID, status,
	)
	if err != nil {
		return s.mapError(c, err)
	}
	if rows == nil {
		rows = []booking.ParticipantSlot{}
	}

	return c.JSON(http.StatusOK, rows)
}

// slotAvailability returns the slot's authoritative state. A slot no one
// has touched yet comes back with empty sets, not 404
func (s *Server) slotAvailability(c echo.Context) error {
	slotID := c.Param("slotId")

	state, err := s.coordinator.GetSlot(c.Request().Context(), slotID)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, makeSlotResponse(slotID, state))
}

func (s *Server) markAvailable(c echo.Context) error {
	return s.availabilityChange(c, s.coordinator.MarkAvailable)
}

func (s *Server) unmarkAvailable(c echo.Context) error {
	return s.availabilityChange(c, s.coordinator.UnmarkAvailable)
}

func (s *Server) availabilityChange(
	c echo.Context,
	op func(ctx context.Context, slotID, participantID, participantType string) error,
) error {
	slotID := c.Param("slotId")

	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest,
			errorResponse{Error: "malformed request body"})
	}
	if req.ParticipantID == "" {
		return c.JSON(http.StatusBadRequest,
			errorResponse{Error: "participant_id is required"})
	}

	err := op(c.Request().Context(), slotID, req.ParticipantID, req.ParticipantType)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"slot_id":        slotID,
		"participant_id": req.ParticipantID,
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mapError translates domain errors onto HTTP statuses. Caller mistakes
// map to 400, upstream provider failures to 502, everything else is a 500
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case booking.IsValidation(err),
		booking.IsConflict(err),
		booking.IsNotFound(err):
		return c.JSON(http.StatusBadRequest,
			errorResponse{Error: err.Error()})
	case booking.IsExternalService(err):
		return c.JSON(http.StatusBadGateway,
			errorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError,
			errorResponse{Error: "internal error"})
	}
}

func makeSlotResponse(slotID string, state *booking.Timeslot) slotResponse {
	res := slotResponse{
		SlotID:    slotID,
		Available: []participantDTO{},
		Booked:    []bookedEntryDTO{},
	}
	for _, p := range state.Available {
		res.Available = append(res.Available, participantDTO{
			ParticipantID:   p.ID,
			ParticipantType: string(p.Type),
		})
	}
	for _, entry := range state.Booked {
		res.Booked = append(res.Booked, bookedEntryDTO{
			ParticipantID:   entry.Participant.ID,
			ParticipantType: string(entry.Participant.Type),
			BookingID:       entry.BookingID,
		})
	}
	sort.Slice(res.Available, func(i, j int) bool {
		return res.Available[i].ParticipantID < res.Available[j].ParticipantID
	})
	sort.Slice(res.Booked, func(i, j int) bool {
		return res.Booked[i].ParticipantID < res.Booked[j].ParticipantID
	})
	return res
}
