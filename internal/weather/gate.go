// Package weather implements the admission gate that can veto a booking
// based on forecast flight conditions for the slot's hour.
package weather

import (
	"context"

	"github.com/cockroachdb/errors"
)

type (
	// Assessor decides whether conditions at a location meet the safe
	// flying requirements for the hour a slot denotes
	Assessor interface {
		Assess(ctx context.Context, slotID, location string) (*Report, error)
	}

	// Report is the gate's verdict. Justification spells out which
	// conditions passed or failed in human-readable form
	Report struct {
		SlotID            string `json:"time_slot_id"`
		MeetsRequirements bool   `json:"meets_requirements"`
		Justification     string `json:"justification"`
	}
)

var (
	// ErrForecastHorizon indicates the slot's hour is outside the forecast
	// provider's coverage (past, or beyond 240 hours out)
	ErrForecastHorizon = errors.New(
		"slot time is outside the 240 hour forecast horizon")

	// ErrLocationNotFound indicates the location could not be geocoded
	ErrLocationNotFound = errors.New("location could not be resolved")
)
