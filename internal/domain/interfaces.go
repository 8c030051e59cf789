package domain

import (
	"context"

	"labreserve/internal/models"
)

type Store interface {
	ListLaboratories(ctx context.Context) ([]models.Laboratory, error)
	GetLaboratory(ctx context.Context, id int64) (*models.Laboratory, error)
	ListActiveBookings(ctx context.Context) ([]models.BookingView, error)
	FindActiveBookings(ctx context.Context, laboratoryID int64, date string) ([]models.Booking, error)
	InsertBooking(ctx context.Context, slot models.Slot) (int64, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
