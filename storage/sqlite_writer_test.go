package storage

import (
	"context"
	"path/filepath"
	"testing"

	"student-harvester/models"
	"student-harvester/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteWriterSaveCleaned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "students.db")
	w, err := NewSQLiteWriter(path, "run-1", utils.NopLogger())
	require.NoError(t, err)
	defer w.Close()

	records := []models.CleanedRecord{
		{StudentID: models.Text("S1"), Hometown: models.Text("Hue"), MathScore: score(7.5)},
		{FirstName: models.Text("NoScores")},
	}
	ctx := context.Background()
	require.NoError(t, w.SaveCleaned(ctx, records))

	n, err := w.CountRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var math *float64
	require.NoError(t, w.db.QueryRowContext(ctx,
		"SELECT math_score FROM students_cleaned WHERE first_name = ?", "NoScores").Scan(&math))
	assert.Nil(t, math, "missing scores are stored as NULL")
}

func TestSQLiteWriterEmptyIsNoop(t *testing.T) {
	w, err := NewSQLiteWriter(filepath.Join(t.TempDir(), "students.db"), "run-2", utils.NopLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.SaveCleaned(context.Background(), nil))
	n, err := w.CountRun(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertArgsOrder(t *testing.T) {
	args := insertArgs("run", models.CleanedRecord{Email: models.Text("e@x")})
	require.Len(t, args, len(insertColumns))
	assert.Equal(t, "run", args[0])
	assert.Equal(t, models.Text("e@x"), args[4])
}
