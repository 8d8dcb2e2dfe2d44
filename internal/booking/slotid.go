package booking

import "time"

// SlotIDLayout is the date-hour token identifying an hourly slot. The slot
// ID doubles as the aggregate identity and as a parseable timestamp
const SlotIDLayout = "2006-01-02-15"

// BookingHorizon bounds how far ahead a booking may be created; the
// admission gate's forecast provider covers no more than 240 hours out
const BookingHorizon = 240 * time.Hour

// ParseSlotID parses a slot ID into the hour it denotes
func ParseSlotID(slotID string) (time.Time, error) {
	start, err := time.ParseInLocation(SlotIDLayout, slotID, time.Local)
	if err != nil {
		return time.Time{}, NewValidationError("invalid slot id: %q", slotID)
	}
	return start, nil
}

// CheckBookable rejects slots beyond the booking horizon. Runs before any
// external call or state mutation
func CheckBookable(slotID string, now time.Time) error {
	start, err := ParseSlotID(slotID)
	if err != nil {
		return err
	}
	if start.After(now.Add(BookingHorizon)) {
		return NewValidationError(
			"slot %s starts more than 240 hours (10 days) in the future; "+
				"no weather forecast is available that far out", slotID)
	}
	return nil
}

// CheckMarkable rejects slots whose hour has already elapsed. Availability
// has no upper window, only a lower bound
func CheckMarkable(slotID string, now time.Time) error {
	start, err := ParseSlotID(slotID)
	if err != nil {
		return err
	}
	if start.Before(now) {
		return NewValidationError("slot %s start time is in the past", slotID)
	}
	return nil
}
