package models

// Slot is a validated reservation window for one laboratory on one day.
// StartTime and EndTime are normalized to TimeLayout, so plain string
// comparison matches chronological order.
type Slot struct {
	LaboratoryID int64
	Date         string
	StartTime    string
	EndTime      string
}

// SameDay reports whether both slots target the same laboratory and date.
func (s Slot) SameDay(other Slot) bool {
	return s.LaboratoryID == other.LaboratoryID && s.Date == other.Date
}
