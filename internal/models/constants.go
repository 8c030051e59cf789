package models

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

const (
	// DateLayout is the calendar day format used on the wire and in storage.
	DateLayout = "2006-01-02"

	// TimeLayout is the normalized time-of-day format used in storage.
	TimeLayout = "15:04:05"

	// ShortTimeLayout is the accepted HH:MM input form.
	ShortTimeLayout = "15:04"
)
