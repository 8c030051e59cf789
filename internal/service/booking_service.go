package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labreserve/internal/booking"
	"labreserve/internal/domain"
	"labreserve/internal/events"
	"labreserve/internal/logging"
	"labreserve/internal/metrics"
	"labreserve/internal/models"

	"github.com/rs/zerolog"
)

// BookingService runs each booking operation as validate, decide, persist.
type BookingService struct {
	store    domain.Store
	engine   *booking.Engine
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewBookingService(store domain.Store, engine *booking.Engine, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	if engine == nil {
		engine = booking.NewEngine()
	}
	return &BookingService{
		store:    store,
		engine:   engine,
		eventBus: eventBus,
		logger:   logging.Component(logger, "booking-service"),
	}
}

func (s *BookingService) ListLaboratories(ctx context.Context) ([]models.Laboratory, error) {
	return s.store.ListLaboratories(ctx)
}

func (s *BookingService) ListBookings(ctx context.Context) ([]models.BookingView, error) {
	return s.store.ListActiveBookings(ctx)
}

// CheckAvailability validates the candidate and reports whether it is free.
func (s *BookingService) CheckAvailability(ctx context.Context, req booking.Request) (bool, error) {
	slot, err := s.engine.ValidateRequest(req)
	if err != nil {
		metrics.IncDecision(metrics.OutcomeInvalid)
		return false, err
	}

	existing, err := s.store.FindActiveBookings(ctx, slot.LaboratoryID, slot.Date)
	if err != nil {
		return false, fmt.Errorf("failed to load bookings: %w", err)
	}
	return booking.IsAvailable(slot, existing), nil
}

// CreateBooking validates, re-checks availability and persists a booking.
func (s *BookingService) CreateBooking(ctx context.Context, req booking.Request) (*models.Booking, error) {
	slot, err := s.engine.ValidateRequest(req)
	if err != nil {
		metrics.IncDecision(metrics.OutcomeInvalid)
		return nil, err
	}

	if _, err := s.store.GetLaboratory(ctx, slot.LaboratoryID); err != nil {
		if errors.Is(err, domain.ErrLaboratoryNotFound) {
			metrics.IncDecision(metrics.OutcomeNoLab)
		}
		return nil, err
	}

	existing, err := s.store.FindActiveBookings(ctx, slot.LaboratoryID, slot.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	if err := booking.DecideCreate(slot, existing); err != nil {
		metrics.IncDecision(metrics.OutcomeOverlap)
		return nil, err
	}

	id, err := s.store.InsertBooking(ctx, slot)
	if err != nil {
		if errors.Is(err, domain.ErrOverlap) {
			metrics.IncDecision(metrics.OutcomeOverlap)
			s.logger.Info().
				Int64("laboratory_id", slot.LaboratoryID).
				Str("date", slot.Date).
				Str("request_id", logging.RequestID(ctx)).
				Msg("overlap detected at insert")
		}
		if errors.Is(err, domain.ErrLaboratoryNotFound) {
			// Deleted between the lookup and the insert transaction.
			metrics.IncDecision(metrics.OutcomeNoLab)
		}
		return nil, err
	}

	now := time.Now().UTC()
	created := &models.Booking{
		ID:           id,
		LaboratoryID: slot.LaboratoryID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.publishEvent(ctx, events.EventBookingCreated, created)
	return created, nil
}

// CancelBooking cancels an active booking identified by its raw id.
func (s *BookingService) CancelBooking(ctx context.Context, rawID string) (int64, error) {
	id, err := s.engine.ParseBookingID(rawID)
	if err != nil {
		metrics.IncDecision(metrics.OutcomeInvalid)
		return 0, err
	}

	current, err := s.store.GetBooking(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
		return 0, err
	}
	if err := booking.DecideCancel(current); err != nil {
		metrics.IncDecision(metrics.OutcomeNotFound)
		return 0, err
	}

	ok, err := s.store.CancelBooking(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Cancelled concurrently between the read and the update.
		metrics.IncDecision(metrics.OutcomeNotFound)
		return 0, domain.ErrBookingNotFound
	}

	current.Status = models.StatusCancelled
	current.UpdatedAt = time.Now().UTC()
	s.publishEvent(ctx, events.EventBookingCancelled, current)
	return id, nil
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, b *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    b.ID,
		LaboratoryID: b.LaboratoryID,
		Date:         b.Date,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Status:       b.Status,
		RequestID:    logging.RequestID(ctx),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Int64("booking_id", b.ID).Msg("publish booking event")
	}
}
