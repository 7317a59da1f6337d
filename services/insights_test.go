package services

import (
	"bytes"
	"database/sql"
	"testing"

	"student-harvester/models"
	"student-harvester/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleaned(first, town string, scores ...float64) models.CleanedRecord {
	r := models.CleanedRecord{
		FirstName: models.Text(first),
		Hometown:  models.Text(town),
	}
	for i, f := range models.ScoreFields {
		if i < len(scores) && scores[i] >= 0 {
			r = r.WithScore(f, sql.NullFloat64{Float64: scores[i], Valid: true})
		}
	}
	return r
}

func TestInsightsEmpty(t *testing.T) {
	report := NewInsightService(utils.NopLogger()).Generate(nil)
	assert.Equal(t, 0, report.TotalStudents)
	assert.Empty(t, report.Subjects)
}

func TestInsightsSubjects(t *testing.T) {
	records := []models.CleanedRecord{
		cleaned("An", "Hanoi", 8, 6, -1),
		cleaned("Binh", "Hanoi", 6, 7, -1),
		cleaned("Chi", "Hue", 7, 9, -1),
	}
	report := NewInsightService(utils.NopLogger()).Generate(records)

	require.Len(t, report.Subjects, 3)
	math := report.Subjects[0]
	assert.Equal(t, models.FieldMathScore, math.Field)
	assert.Equal(t, 3, math.Count)
	assert.InDelta(t, 7.0, math.Mean, 1e-12)
	assert.Equal(t, 6.0, math.Min)
	assert.Equal(t, 8.0, math.Max)
	assert.Equal(t, 2, math.AtOrAbove)

	lit := report.Subjects[2]
	assert.Equal(t, 0, lit.Count, "missing scores are left out")

	require.Len(t, report.Hometowns, 2)
	assert.Equal(t, "Hanoi", report.Hometowns[0].Hometown)
	assert.Equal(t, 2, report.Hometowns[0].Students)
	assert.InDelta(t, 7.0, report.Hometowns[0].Means[models.FieldMathScore], 1e-12)
	_, hasLit := report.Hometowns[0].Means[models.FieldLiteratureScore]
	assert.False(t, hasLit)

	require.Len(t, report.TopStudents, 3)
	assert.Equal(t, "Chi", report.TopStudents[0].Record.FirstName.String)
	assert.InDelta(t, 8.0, report.TopStudents[0].Average, 1e-12)
}

func TestInsightsTopStudentsCapped(t *testing.T) {
	var records []models.CleanedRecord
	for i := 0; i < 8; i++ {
		records = append(records, cleaned("S", "X", float64(i), float64(i), float64(i)))
	}
	report := NewInsightService(utils.NopLogger()).Generate(records)
	require.Len(t, report.TopStudents, 5)
	assert.Equal(t, 7.0, report.TopStudents[0].Average)
}

func TestPrintInsightReport(t *testing.T) {
	records := []models.CleanedRecord{
		cleaned("An", "Hanoi", 8, 6, 7),
		cleaned("", "", 5, 5, 5),
	}
	report := NewInsightService(utils.NopLogger()).Generate(records)

	var buf bytes.Buffer
	PrintInsightReport(&buf, report)
	out := buf.String()
	assert.Contains(t, out, "STUDENT SCORE INSIGHTS")
	assert.Contains(t, out, "math_score")
	assert.Contains(t, out, "Hanoi:")
	assert.Contains(t, out, "(unknown):")
	assert.Contains(t, out, "1. An")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "An Le", DisplayName(models.CleanedRecord{FirstName: models.Text("An"), LastName: models.Text("Le")}))
	assert.Equal(t, "S1", DisplayName(models.CleanedRecord{StudentID: models.Text("S1")}))
	assert.Equal(t, "a@b.c", DisplayName(models.CleanedRecord{Email: models.Text("a@b.c")}))
	assert.Equal(t, "(anonymous)", DisplayName(models.CleanedRecord{}))
}

func TestAggregator(t *testing.T) {
	agg := NewAggregator(utils.NopLogger(), 4)
	page1 := models.Dataset{student("Hanoi", "1", "", ""), student("Hue", "2", "", "")}
	page2 := models.Dataset{student("Hanoi", "1", "", "")}

	y1 := agg.Add(1, 3, page1, 1, 0)
	y2 := agg.Add(2, 1, page2, 0, 0)

	assert.Equal(t, 2, y1.Total)
	assert.Equal(t, 1, y1.Dropped)
	assert.Equal(t, 3, y2.Total)
	assert.Equal(t, 3, agg.Total())
	assert.Len(t, agg.Dataset(), 3, "identical records are not deduplicated")
	assert.Len(t, agg.Yields(), 2)

	ds := agg.Dataset()
	ds[0] = models.RawRecord{}
	assert.True(t, agg.Dataset()[0].Hometown.Valid, "Dataset returns a copy")
}
