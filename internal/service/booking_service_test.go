package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"labreserve/internal/booking"
	"labreserve/internal/domain"
	"labreserve/internal/events"
	"labreserve/internal/metrics"
	"labreserve/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListLaboratories(ctx context.Context) ([]models.Laboratory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Laboratory), args.Error(1)
}

func (m *mockStore) GetLaboratory(ctx context.Context, id int64) (*models.Laboratory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Laboratory), args.Error(1)
}

func (m *mockStore) ListActiveBookings(ctx context.Context) ([]models.BookingView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingView), args.Error(1)
}

func (m *mockStore) FindActiveBookings(ctx context.Context, labID int64, date string) ([]models.Booking, error) {
	args := m.Called(ctx, labID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) InsertBooking(ctx context.Context, slot models.Slot) (int64, error) {
	args := m.Called(ctx, slot)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) CancelBooking(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

func newTestService(store *mockStore, pub *mockPublisher) *BookingService {
	now := time.Date(2030, time.January, 10, 12, 0, 0, 0, time.Local)
	engine := booking.NewEngine(booking.WithClock(func() time.Time { return now }))
	if pub == nil {
		return NewBookingService(store, engine, nil, nil)
	}
	return NewBookingService(store, engine, pub, nil)
}

var validReq = booking.Request{LaboratoryID: "1", Date: "2030-01-11", StartTime: "09:00", EndTime: "10:00"}

var validSlot = models.Slot{LaboratoryID: 1, Date: "2030-01-11", StartTime: "09:00:00", EndTime: "10:00:00"}

func TestCreateBooking_Success(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := newTestService(store, pub)
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(&models.Laboratory{ID: 1, Name: "Physics"}, nil)
	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{
		{ID: 3, LaboratoryID: 1, Date: "2030-01-11", StartTime: "10:00:00", EndTime: "11:00:00", Status: models.StatusActive},
	}, nil)
	store.On("InsertBooking", ctx, validSlot).Return(int64(42), nil)
	pub.On("PublishJSON", events.EventBookingCreated, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.BookingID == 42 && p.Status == models.StatusActive
	})).Return(nil)

	created, err := svc.CreateBooking(ctx, validReq)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, "09:00:00", created.StartTime)
	assert.Equal(t, models.StatusActive, created.Status)

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateBooking_ValidationStopsEarly(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := newTestService(store, pub)

	req := validReq
	req.Date = "2030-01-09"
	_, err := svc.CreateBooking(context.Background(), req)

	verr, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodePast, verr.Code)
	store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_UnknownLaboratory(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, new(mockPublisher))
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(nil, domain.ErrLaboratoryNotFound)

	counter := metrics.DecisionCounter(metrics.OutcomeNoLab)
	before := testutil.ToFloat64(counter)

	_, err := svc.CreateBooking(ctx, validReq)
	assert.ErrorIs(t, err, domain.ErrLaboratoryNotFound)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_LaboratoryGoneAtInsert(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := newTestService(store, pub)
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(&models.Laboratory{ID: 1}, nil)
	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{}, nil)
	store.On("InsertBooking", ctx, validSlot).Return(int64(0), domain.ErrLaboratoryNotFound)

	counter := metrics.DecisionCounter(metrics.OutcomeNoLab)
	before := testutil.ToFloat64(counter)

	_, err := svc.CreateBooking(ctx, validReq)
	assert.ErrorIs(t, err, domain.ErrLaboratoryNotFound)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestCreateBooking_OverlapPreCheck(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := newTestService(store, pub)
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(&models.Laboratory{ID: 1}, nil)
	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{
		{ID: 3, LaboratoryID: 1, Date: "2030-01-11", StartTime: "09:30:00", EndTime: "10:30:00", Status: models.StatusActive},
	}, nil)

	_, err := svc.CreateBooking(ctx, validReq)
	assert.ErrorIs(t, err, domain.ErrOverlap)
	store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestCreateBooking_OverlapAtInsert(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := newTestService(store, pub)
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(&models.Laboratory{ID: 1}, nil)
	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{}, nil)
	store.On("InsertBooking", ctx, validSlot).Return(int64(0), domain.ErrOverlap)

	_, err := svc.CreateBooking(ctx, validReq)
	assert.ErrorIs(t, err, domain.ErrOverlap)
	pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestCreateBooking_StoreFailure(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, new(mockPublisher))
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(&models.Laboratory{ID: 1}, nil)
	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return(nil, errors.New("disk I/O error"))

	_, err := svc.CreateBooking(ctx, validReq)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrOverlap))
}

func TestCreateBooking_PublishErrorIgnored(t *testing.T) {
	store := new(mockStore)
	pub := new(mockPublisher)
	svc := newTestService(store, pub)
	ctx := context.Background()

	store.On("GetLaboratory", ctx, int64(1)).Return(&models.Laboratory{ID: 1}, nil)
	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{}, nil)
	store.On("InsertBooking", ctx, validSlot).Return(int64(7), nil)
	pub.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(errors.New("bus down"))

	created, err := svc.CreateBooking(ctx, validReq)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
}

func TestCheckAvailability(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{
		{ID: 1, LaboratoryID: 1, Date: "2030-01-11", StartTime: "08:00:00", EndTime: "09:00:00", Status: models.StatusActive},
	}, nil).Once()
	available, err := svc.CheckAvailability(ctx, validReq)
	require.NoError(t, err)
	assert.True(t, available)

	store.On("FindActiveBookings", ctx, int64(1), "2030-01-11").Return([]models.Booking{
		{ID: 2, LaboratoryID: 1, Date: "2030-01-11", StartTime: "09:59:00", EndTime: "11:00:00", Status: models.StatusActive},
	}, nil).Once()
	available, err = svc.CheckAvailability(ctx, validReq)
	require.NoError(t, err)
	assert.False(t, available)

	_, err = svc.CheckAvailability(ctx, booking.Request{LaboratoryID: "1"})
	_, ok := domain.AsValidation(err)
	assert.True(t, ok)
}

func TestCancelBooking(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := new(mockStore)
		pub := new(mockPublisher)
		svc := newTestService(store, pub)
		ctx := context.Background()

		store.On("GetBooking", ctx, int64(5)).Return(&models.Booking{ID: 5, LaboratoryID: 1, Status: models.StatusActive}, nil)
		store.On("CancelBooking", ctx, int64(5)).Return(true, nil)
		pub.On("PublishJSON", events.EventBookingCancelled, mock.MatchedBy(func(p events.BookingEventPayload) bool {
			return p.BookingID == 5 && p.Status == models.StatusCancelled
		})).Return(nil)

		id, err := svc.CancelBooking(ctx, "5")
		require.NoError(t, err)
		assert.Equal(t, int64(5), id)
		pub.AssertExpectations(t)
	})

	t.Run("already cancelled", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, new(mockPublisher))
		ctx := context.Background()

		store.On("GetBooking", ctx, int64(5)).Return(&models.Booking{ID: 5, Status: models.StatusCancelled}, nil)

		_, err := svc.CancelBooking(ctx, "5")
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
		store.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
	})

	t.Run("missing", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, new(mockPublisher))
		ctx := context.Background()

		store.On("GetBooking", ctx, int64(9)).Return(nil, domain.ErrBookingNotFound)

		_, err := svc.CancelBooking(ctx, "9")
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})

	t.Run("lost race", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, new(mockPublisher))
		ctx := context.Background()

		store.On("GetBooking", ctx, int64(5)).Return(&models.Booking{ID: 5, Status: models.StatusActive}, nil)
		store.On("CancelBooking", ctx, int64(5)).Return(false, nil)

		_, err := svc.CancelBooking(ctx, "5")
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockPublisher))
		_, err := svc.CancelBooking(context.Background(), "abc")
		verr, ok := domain.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "booking_id must be numeric", verr.Message)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, new(mockPublisher))
		ctx := context.Background()

		store.On("GetBooking", ctx, int64(5)).Return(nil, errors.New("connection reset"))

		_, err := svc.CancelBooking(ctx, "5")
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrBookingNotFound))
	})
}

func TestListings(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("ListLaboratories", ctx).Return([]models.Laboratory{{ID: 1, Name: "A"}}, nil)
	store.On("ListActiveBookings", ctx).Return([]models.BookingView{{LaboratoryName: "A"}}, nil)

	labs, err := svc.ListLaboratories(ctx)
	require.NoError(t, err)
	assert.Len(t, labs, 1)

	views, err := svc.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}
