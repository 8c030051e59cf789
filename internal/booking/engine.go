package booking

import (
	"labreserve/internal/domain"
	"labreserve/internal/models"
)

// Overlaps reports whether the half-open ranges [s1,e1) and [s2,e2) share
// any instant. Times must be normalized to models.TimeLayout.
func Overlaps(s1, e1, s2, e2 string) bool {
	return s1 < e2 && s2 < e1
}

// IsAvailable reports whether slot is free given the existing bookings.
// Bookings of other laboratories or days and cancelled bookings never block.
func IsAvailable(slot models.Slot, existing []models.Booking) bool {
	for i := range existing {
		b := &existing[i]
		if !b.IsActive() || !slot.SameDay(b.Slot()) {
			continue
		}
		if Overlaps(slot.StartTime, slot.EndTime, b.StartTime, b.EndTime) {
			return false
		}
	}
	return true
}

// DecideCreate re-checks availability right before a create is attempted.
func DecideCreate(slot models.Slot, existing []models.Booking) error {
	if !IsAvailable(slot, existing) {
		return domain.ErrOverlap
	}
	return nil
}

// DecideCancel allows cancelling only an existing active booking.
func DecideCancel(b *models.Booking) error {
	if !b.IsActive() {
		return domain.ErrBookingNotFound
	}
	return nil
}
