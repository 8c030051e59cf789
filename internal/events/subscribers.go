package events

import (
	"labreserve/internal/logging"
	"labreserve/internal/metrics"

	"github.com/rs/zerolog"
)

// RegisterAuditLog writes one structured line per booking state change.
func RegisterAuditLog(bus *EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "audit")

	handler := func(event *Event) error {
		var p BookingEventPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		audit.Info().
			Str("event", event.Type).
			Int64("booking_id", p.BookingID).
			Int64("laboratory_id", p.LaboratoryID).
			Str("date", p.Date).
			Str("start_time", p.StartTime).
			Str("end_time", p.EndTime).
			Str("status", p.Status).
			Str("request_id", p.RequestID).
			Msg("booking changed")
		return nil
	}

	bus.Subscribe(EventBookingCreated, handler)
	bus.Subscribe(EventBookingCancelled, handler)
}

// RegisterMetrics counts booking state changes.
func RegisterMetrics(bus *EventBus) {
	bus.Subscribe(EventBookingCreated, func(_ *Event) error {
		metrics.IncDecision(metrics.OutcomeCreated)
		return nil
	})
	bus.Subscribe(EventBookingCancelled, func(_ *Event) error {
		metrics.IncDecision(metrics.OutcomeCancelled)
		return nil
	})
}
