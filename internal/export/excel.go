package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"labreserve/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{
	"ID", "Laboratory ID", "Laboratory", "Capacity", "Date", "Start", "End", "Status", "Created", "Updated",
}

// BookingLister returns every booking regardless of status.
type BookingLister interface {
	ListAllBookings(ctx context.Context) ([]models.BookingView, error)
}

// Bookings writes all bookings to <dir>/bookings_<timestamp>.xlsx and returns the file path.
func Bookings(ctx context.Context, store BookingLister, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	views, err := store.ListAllBookings(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("bookings_%s.xlsx", now.Format("20060102_150405")))
	if err := WriteBookings(path, views); err != nil {
		return "", err
	}
	return path, nil
}

// WriteBookings saves views as a single-sheet workbook with a bold header row.
// Cancelled bookings are shaded.
func WriteBookings(path string, views []models.BookingView) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	cancelledStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	for i, v := range views {
		row := i + 2
		values := []any{
			v.ID,
			v.LaboratoryID,
			v.LaboratoryName,
			v.Capacity,
			v.Date,
			v.StartTime,
			v.EndTime,
			v.Status,
			v.CreatedAt.Format(time.RFC3339),
			v.UpdatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
		if v.Status == models.StatusCancelled {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, first, last, cancelledStyle)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "C", 25)
	_ = f.SetColWidth(sheetName, "D", "H", 12)
	_ = f.SetColWidth(sheetName, "I", "J", 22)

	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}
