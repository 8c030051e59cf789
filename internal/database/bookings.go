package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"labreserve/internal/config"
	"labreserve/internal/domain"
	"labreserve/internal/models"

	"github.com/Masterminds/squirrel"
)

var bookingColumns = []string{
	"id", "laboratory_id", "date", "start_time", "end_time", "status", "created_at", "updated_at",
}

var bookingViewColumns = []string{
	"b.id", "b.laboratory_id", "b.date", "b.start_time", "b.end_time", "b.status", "b.created_at", "b.updated_at",
	"l.name", "l.capacity",
}

func (db *DB) bookingViews() squirrel.SelectBuilder {
	return db.sb.Select(bookingViewColumns...).
		From("bookings b").
		Join("laboratories l ON l.id = b.laboratory_id")
}

// ListActiveBookings returns active bookings ordered by date and start time.
func (db *DB) ListActiveBookings(ctx context.Context) ([]models.BookingView, error) {
	return db.queryViews(ctx, db.bookingViews().
		Where(squirrel.Eq{"b.status": models.StatusActive}).
		OrderBy("b.date ASC", "b.start_time ASC", "b.id ASC"))
}

// ListAllBookings returns every booking, cancelled ones included.
func (db *DB) ListAllBookings(ctx context.Context) ([]models.BookingView, error) {
	return db.queryViews(ctx, db.bookingViews().
		OrderBy("b.date ASC", "b.start_time ASC", "b.id ASC"))
}

func (db *DB) queryViews(ctx context.Context, builder squirrel.SelectBuilder) ([]models.BookingView, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookings query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	views := make([]models.BookingView, 0)
	for rows.Next() {
		var v models.BookingView
		if err := rows.Scan(
			&v.ID, &v.LaboratoryID, &v.Date, &v.StartTime, &v.EndTime, &v.Status, &v.CreatedAt, &v.UpdatedAt,
			&v.LaboratoryName, &v.Capacity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// FindActiveBookings reads the committed active bookings of one laboratory on one day.
func (db *DB) FindActiveBookings(ctx context.Context, laboratoryID int64, date string) ([]models.Booking, error) {
	query, args, err := db.sb.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"laboratory_id": laboratoryID, "date": date, "status": models.StatusActive}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookings query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// InsertBooking stores a new active booking. The overlap check is repeated
// inside the insert transaction, so a booking committed concurrently for
// the same range yields domain.ErrOverlap instead of a double booking.
func (db *DB) InsertBooking(ctx context.Context, slot models.Slot) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serializes inserts per laboratory. SQLite already holds the write lock from BEGIN IMMEDIATE.
	lock := db.sb.Select("id").From("laboratories").Where(squirrel.Eq{"id": slot.LaboratoryID})
	if db.driver == config.DriverPostgres {
		lock = lock.Suffix("FOR UPDATE")
	}
	query, args, err := lock.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build lock query: %w", err)
	}
	var labID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&labID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrLaboratoryNotFound
		}
		return 0, fmt.Errorf("failed to lock laboratory: %w", err)
	}

	query, args, err = db.sb.Select("COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"laboratory_id": slot.LaboratoryID, "date": slot.Date, "status": models.StatusActive}).
		Where(squirrel.Lt{"start_time": slot.EndTime}).
		Where(squirrel.Gt{"end_time": slot.StartTime}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build overlap query: %w", err)
	}
	var overlapping int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&overlapping); err != nil {
		return 0, fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return 0, domain.ErrOverlap
	}

	now := db.now()
	insert := db.sb.Insert("bookings").
		Columns("laboratory_id", "date", "start_time", "end_time", "status", "created_at", "updated_at").
		Values(slot.LaboratoryID, slot.Date, slot.StartTime, slot.EndTime, models.StatusActive, now, now)

	var id int64
	if db.driver == config.DriverPostgres {
		query, args, err = insert.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build insert: %w", err)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert booking: %w", err)
		}
	} else {
		query, args, err = insert.ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build insert: %w", err)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert booking: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read booking id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit booking: %w", err)
	}
	return id, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query, args, err := db.sb.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking query: %w", err)
	}

	b, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %d: %w", id, err)
	}
	return b, nil
}

// CancelBooking moves an active booking to cancelled. It reports false when
// the booking does not exist or was already cancelled.
func (db *DB) CancelBooking(ctx context.Context, id int64) (bool, error) {
	query, args, err := db.sb.Update("bookings").
		Set("status", models.StatusCancelled).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id, "status": models.StatusActive}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build cancel query: %w", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(&b.ID, &b.LaboratoryID, &b.Date, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
