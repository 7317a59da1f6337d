package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"student-harvester/models"
	"student-harvester/utils"

	_ "github.com/lib/pq"
)

// PostgresWriter stores cleaned students in PostgreSQL
type PostgresWriter struct {
	db     *sql.DB
	runID  string
	logger *utils.Logger
}

// NewPostgresWriter opens the DB and pings it, retrying with backoff
func NewPostgresWriter(ctx context.Context, connStr, runID string, maxRetries int, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	err = utils.RetryWithBackoff(ctx, maxRetries, time.Second, func(ctx context.Context) error {
		return db.PingContext(ctx)
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresWriter{db: db, runID: runID, logger: logger}, nil
}

// CreateTable creates the students_cleaned table if it doesn't exist, with indexes
func (w *PostgresWriter) CreateTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS students_cleaned (
		id               SERIAL PRIMARY KEY,
		run_id           UUID         NOT NULL,
		student_id       VARCHAR(64),
		first_name       TEXT,
		last_name        TEXT,
		email            TEXT,
		dob              TEXT,
		hometown         TEXT,
		math_score       DOUBLE PRECISION,
		english_score    DOUBLE PRECISION,
		literature_score DOUBLE PRECISION,
		created_at       TIMESTAMP    NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_students_cleaned_run      ON students_cleaned (run_id);
	CREATE INDEX IF NOT EXISTS idx_students_cleaned_hometown ON students_cleaned (hometown);
	`
	if _, err := w.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	w.logger.Info("Table 'students_cleaned' is ready")
	return nil
}

// SaveCleaned inserts the records of this run in a single transaction
func (w *PostgresWriter) SaveCleaned(ctx context.Context, records []models.CleanedRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	if err := w.CreateTable(ctx); err != nil {
		return err
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

	placeholders := make([]string, len(insertColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO students_cleaned (%s) VALUES (%s)",
		strings.Join(insertColumns, ", "), strings.Join(placeholders, ", ")))
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

	w.logger.Info("Inserted %d students into PostgreSQL", len(records))
	return nil
}

// Close closes the database connection
func (w *PostgresWriter) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}
