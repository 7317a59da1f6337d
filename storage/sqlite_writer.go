package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"student-harvester/models"
	"student-harvester/utils"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteWriter stores cleaned students in a local SQLite file
type SQLiteWriter struct {
	db     *sql.DB
	path   string
	runID  string
	logger *utils.Logger
}

// NewSQLiteWriter opens (creating if needed) the database at path
func NewSQLiteWriter(path, runID string, logger *utils.Logger) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	w := &SQLiteWriter{db: db, path: path, runID: runID, logger: logger}
	if err := w.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return w, nil
}

func (w *SQLiteWriter) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students_cleaned (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		student_id TEXT,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		dob TEXT,
		hometown TEXT,
		math_score REAL,
		english_score REAL,
		literature_score REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_students_cleaned_run ON students_cleaned(run_id);
	`
	_, err := w.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCleaned inserts the records of this run in a single transaction
func (w *SQLiteWriter) SaveCleaned(ctx context.Context, records []models.CleanedRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO students_cleaned (%s) VALUES (%s)",
		strings.Join(insertColumns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err = stmt.ExecContext(ctx, insertArgs(w.runID, r)...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Info("Inserted %d students into %s", len(records), w.path)
	return nil
}

// CountRun returns how many rows were stored for a run
func (w *SQLiteWriter) CountRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students_cleaned WHERE run_id = ?", runID).Scan(&n)
	return n, err
}

// Close closes the database connection
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
