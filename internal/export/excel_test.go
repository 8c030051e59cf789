package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"labreserve/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubLister struct {
	views []models.BookingView
	err   error
}

func (s stubLister) ListAllBookings(context.Context) ([]models.BookingView, error) {
	return s.views, s.err
}

func sampleViews() []models.BookingView {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []models.BookingView{
		{
			Booking: models.Booking{
				ID: 1, LaboratoryID: 2, Date: "2026-03-02", StartTime: "09:00:00", EndTime: "10:00:00",
				Status: models.StatusActive, CreatedAt: created, UpdatedAt: created,
			},
			LaboratoryName: "Chemistry Lab",
			Capacity:       16,
		},
		{
			Booking: models.Booking{
				ID: 2, LaboratoryID: 1, Date: "2026-03-02", StartTime: "11:00:00", EndTime: "12:00:00",
				Status: models.StatusCancelled, CreatedAt: created, UpdatedAt: created.Add(time.Hour),
			},
			LaboratoryName: "Physics Lab",
			Capacity:       20,
		},
	}
}

func TestWriteBookings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteBookings(path, sampleViews()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "Chemistry Lab", rows[1][2])
	assert.Equal(t, "09:00:00", rows[1][5])
	assert.Equal(t, models.StatusCancelled, rows[2][7])
}

func TestBookings(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)

	path, err := Bookings(context.Background(), stubLister{views: sampleViews()}, dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_20260305_143000.xlsx"), path)
	assert.FileExists(t, path)
}

func TestBookings_StoreError(t *testing.T) {
	_, err := Bookings(context.Background(), stubLister{err: errors.New("boom")}, t.TempDir(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestBookings_Empty(t *testing.T) {
	path, err := Bookings(context.Background(), stubLister{}, t.TempDir(), time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
