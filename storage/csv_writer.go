package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"student-harvester/models"
	"student-harvester/utils"
)

const (
	CleanedFileName = "students_cleaned.csv"
	RawFileName     = "students_raw.csv"
)

// CSVWriter writes harvested and cleaned students into an output directory
type CSVWriter struct {
	dir    string
	logger *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(dir string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger}
}

// SelectColumns returns, in canonical order, the fields that have at least
// one observed value
func SelectColumns(records []models.CleanedRecord) []models.Field {
	var cols []models.Field
	for _, f := range models.Fields {
		for _, r := range records {
			if r.IsObserved(f) {
				cols = append(cols, f)
				break
			}
		}
	}
	return cols
}

// FormatScore rounds to one decimal place for display: 7.666 -> "7.7",
// 7 -> "7.0". Ties go to the even digit: 8.25 -> "8.2", 7.75 -> "7.8".
func FormatScore(v float64) string {
	return strconv.FormatFloat(math.RoundToEven(v*10)/10, 'f', 1, 64)
}

// WriteCleaned exports the cleaned dataset, omitting all-missing columns.
// Records are written in aggregation order and are not modified.
func (w *CSVWriter) WriteCleaned(records []models.CleanedRecord) (string, []models.Field, error) {
	cols := SelectColumns(records)
	path := filepath.Join(w.dir, CleanedFileName)

	header := make([]string, len(cols))
	for i, f := range cols {
		header[i] = string(f)
	}

	err := w.write(path, header, len(records), func(i int) []string {
		r := records[i]
		row := make([]string, len(cols))
		for j, f := range cols {
			if f.IsScore() {
				if v := r.Score(f); v.Valid {
					row[j] = FormatScore(v.Float64)
				}
				continue
			}
			row[j] = r.Text(f).String
		}
		return row
	})
	if err != nil {
		return "", nil, err
	}

	w.logger.Info("Cleaned students written to: %s (%d rows, %d columns)", path, len(records), len(cols))
	return path, cols, nil
}

// WriteRaw dumps the dataset exactly as harvested, all columns included
func (w *CSVWriter) WriteRaw(ds models.Dataset) (string, error) {
	path := filepath.Join(w.dir, RawFileName)

	header := make([]string, len(models.Fields))
	for i, f := range models.Fields {
		header[i] = string(f)
	}

	err := w.write(path, header, len(ds), func(i int) []string {
		row := make([]string, len(models.Fields))
		for j, f := range models.Fields {
			row[j] = ds[i].Get(f).String
		}
		return row
	})
	if err != nil {
		return "", err
	}

	w.logger.Info("Raw students written to: %s (%d rows)", path, len(ds))
	return path, nil
}

func (w *CSVWriter) write(path string, header []string, n int, row func(i int) []string) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := writer.Write(row(i)); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}
