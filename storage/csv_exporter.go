package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"hotel-rate-scraper/models"
)

// CSVExporter appends a session's snapshots to a CSV file as a secondary
// sink for quick inspection without the database. Safe for concurrent use.
type CSVExporter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVExporter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVExporter(path string) (*CSVExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"hotel_id", "checkin_date", "room_type", "price", "currency", "available", "observed_date", "run_id",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVExporter{file: f, writer: w}, nil
}

// Export appends snapshot rows to the file.
func (c *CSVExporter) Export(snapshots []*models.RateSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range snapshots {
		price := ""
		if s.Price != nil {
			price = strconv.FormatFloat(*s.Price, 'f', 2, 64)
		}
		row := []string{
			strconv.FormatInt(s.HotelID, 10),
			s.CheckinDate,
			s.RoomType,
			price,
			s.Currency,
			strconv.FormatBool(s.Available),
			s.ObservedDate,
			strconv.FormatInt(s.RunID, 10),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVExporter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
