package models

import "time"

type Booking struct {
	ID           int64     `json:"id"`
	LaboratoryID int64     `json:"laboratory_id"`
	Date         string    `json:"date"`       // YYYY-MM-DD
	StartTime    string    `json:"start_time"` // HH:MM:SS
	EndTime      string    `json:"end_time"`   // HH:MM:SS
	Status       string    `json:"status"`     // active, cancelled
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the booking still blocks its time range.
func (b *Booking) IsActive() bool {
	return b != nil && b.Status == StatusActive
}

// Slot returns the reserved window of the booking.
func (b *Booking) Slot() Slot {
	return Slot{
		LaboratoryID: b.LaboratoryID,
		Date:         b.Date,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
	}
}

// BookingView is a booking with laboratory fields denormalized for listings.
type BookingView struct {
	Booking
	LaboratoryName string `json:"laboratory_name"`
	Capacity       int    `json:"capacity"`
}
