package storage

import "student-harvester/models"

// insertColumns is the column order used by every SQL store
var insertColumns = []string{
	"run_id", "student_id", "first_name", "last_name", "email", "dob", "hometown",
	"math_score", "english_score", "literature_score",
}

// insertArgs flattens a record into insertColumns order. Missing values
// become NULL through the sql.Null* types.
func insertArgs(runID string, r models.CleanedRecord) []any {
	return []any{
		runID,
		r.StudentID, r.FirstName, r.LastName, r.Email, r.DOB, r.Hometown,
		r.MathScore, r.EnglishScore, r.LiteratureScore,
	}
}
