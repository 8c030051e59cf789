package booking

import (
	"strconv"
	"strings"
	"time"

	"labreserve/internal/domain"
	"labreserve/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	msgLaboratoryID = "laboratory_id must be numeric"
	msgDate         = "Invalid date format (YYYY-MM-DD)"
	msgTime         = "Invalid time format (HH:MM or HH:MM:SS)"
	msgPast         = "Cannot book for past dates"
	msgRange        = "End time must be after start time"
	msgBookingID    = "booking_id must be numeric"
	msgBookingIDReq = "booking_id required"
)

// Request holds the raw candidate fields as received from a client.
type Request struct {
	LaboratoryID string
	Date         string
	StartTime    string
	EndTime      string
}

// Engine validates booking candidates against the server-local calendar.
type Engine struct {
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Engine)

// WithClock overrides the clock used for the past-date check.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateRequest checks a candidate and returns its normalized slot.
// Checks run in order (missing, format, past date, time range) and stop at
// the first violation.
func (e *Engine) ValidateRequest(in Request) (models.Slot, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"laboratory_id", strings.TrimSpace(in.LaboratoryID)},
		{"date", strings.TrimSpace(in.Date)},
		{"start_time", strings.TrimSpace(in.StartTime)},
		{"end_time", strings.TrimSpace(in.EndTime)},
	}
	for _, f := range fields {
		if e.validate.Var(f.value, "required") != nil {
			return models.Slot{}, domain.NewValidationError(f.name, domain.CodeMissing, "Required field missing: "+f.name)
		}
	}

	labID, ok := e.parseID(fields[0].value)
	if !ok {
		return models.Slot{}, domain.NewValidationError("laboratory_id", domain.CodeFormat, msgLaboratoryID)
	}

	date := fields[1].value
	if e.validate.Var(date, "datetime="+models.DateLayout) != nil {
		return models.Slot{}, domain.NewValidationError("date", domain.CodeFormat, msgDate)
	}

	start, ok := e.normalizeTime(fields[2].value)
	if !ok {
		return models.Slot{}, domain.NewValidationError("start_time", domain.CodeFormat, msgTime)
	}
	end, ok := e.normalizeTime(fields[3].value)
	if !ok {
		return models.Slot{}, domain.NewValidationError("end_time", domain.CodeFormat, msgTime)
	}

	if date < e.now().Format(models.DateLayout) {
		return models.Slot{}, domain.NewValidationError("date", domain.CodePast, msgPast)
	}

	if start >= end {
		return models.Slot{}, domain.NewValidationError("end_time", domain.CodeRange, msgRange)
	}

	return models.Slot{
		LaboratoryID: labID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
	}, nil
}

// ParseBookingID validates the identifier of a booking to cancel.
func (e *Engine) ParseBookingID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if e.validate.Var(raw, "required") != nil {
		return 0, domain.NewValidationError("booking_id", domain.CodeMissing, msgBookingIDReq)
	}
	id, ok := e.parseID(raw)
	if !ok {
		return 0, domain.NewValidationError("booking_id", domain.CodeFormat, msgBookingID)
	}
	return id, nil
}

func (e *Engine) parseID(raw string) (int64, bool) {
	if e.validate.Var(raw, "number") != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// normalizeTime accepts HH:MM or HH:MM:SS with two-digit fields and
// returns the HH:MM:SS form.
func (e *Engine) normalizeTime(raw string) (string, bool) {
	var layout string
	switch len(raw) {
	case len(models.ShortTimeLayout):
		layout = models.ShortTimeLayout
	case len(models.TimeLayout):
		layout = models.TimeLayout
	default:
		return "", false
	}
	if e.validate.Var(raw, "datetime="+layout) != nil {
		return "", false
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return "", false
	}
	return t.Format(models.TimeLayout), true
}
