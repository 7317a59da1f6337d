package models

import (
	"database/sql"
	"strings"
)

// Field names a column of the student table, in the order the UI renders it
type Field string

const (
	FieldStudentID       Field = "student_id"
	FieldFirstName       Field = "first_name"
	FieldLastName        Field = "last_name"
	FieldEmail           Field = "email"
	FieldDOB             Field = "dob"
	FieldHometown        Field = "hometown"
	FieldMathScore       Field = "math_score"
	FieldEnglishScore    Field = "english_score"
	FieldLiteratureScore Field = "literature_score"
)

// Fields lists every field in canonical column order
var Fields = []Field{
	FieldStudentID,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldDOB,
	FieldHometown,
	FieldMathScore,
	FieldEnglishScore,
	FieldLiteratureScore,
}

// ScoreFields lists the numeric fields that get coerced and imputed
var ScoreFields = []Field{FieldMathScore, FieldEnglishScore, FieldLiteratureScore}

// IsScore reports whether f is one of the numeric score fields
func (f Field) IsScore() bool {
	return f == FieldMathScore || f == FieldEnglishScore || f == FieldLiteratureScore
}

// RawRecord is one table row exactly as harvested. A field that was absent
// or blank is invalid, never an empty-string value.
type RawRecord struct {
	StudentID       sql.NullString
	FirstName       sql.NullString
	LastName        sql.NullString
	Email           sql.NullString
	DOB             sql.NullString
	Hometown        sql.NullString
	MathScore       sql.NullString
	EnglishScore    sql.NullString
	LiteratureScore sql.NullString
}

// NewRawRecord builds a record from field values, trimming text and mapping
// blank values to missing. Unknown fields are ignored.
func NewRawRecord(values map[Field]string) RawRecord {
	var r RawRecord
	for f, v := range values {
		if p := r.slot(f); p != nil {
			*p = Text(v)
		}
	}
	return r
}

// Text trims s and returns it as a valid value, or invalid when blank
func Text(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Get returns the value of field f
func (r RawRecord) Get(f Field) sql.NullString {
	if p := r.slot(f); p != nil {
		return *p
	}
	return sql.NullString{}
}

func (r *RawRecord) slot(f Field) *sql.NullString {
	switch f {
	case FieldStudentID:
		return &r.StudentID
	case FieldFirstName:
		return &r.FirstName
	case FieldLastName:
		return &r.LastName
	case FieldEmail:
		return &r.Email
	case FieldDOB:
		return &r.DOB
	case FieldHometown:
		return &r.Hometown
	case FieldMathScore:
		return &r.MathScore
	case FieldEnglishScore:
		return &r.EnglishScore
	case FieldLiteratureScore:
		return &r.LiteratureScore
	}
	return nil
}

// Dataset is every harvested record, in harvest order
type Dataset []RawRecord

// CleanedRecord is a RawRecord after score coercion and imputation. A score
// is invalid only when no mean was available to fill it.
type CleanedRecord struct {
	StudentID       sql.NullString
	FirstName       sql.NullString
	LastName        sql.NullString
	Email           sql.NullString
	DOB             sql.NullString
	Hometown        sql.NullString
	MathScore       sql.NullFloat64
	EnglishScore    sql.NullFloat64
	LiteratureScore sql.NullFloat64
}

// Text returns a text field; score fields return invalid
func (c CleanedRecord) Text(f Field) sql.NullString {
	switch f {
	case FieldStudentID:
		return c.StudentID
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldEmail:
		return c.Email
	case FieldDOB:
		return c.DOB
	case FieldHometown:
		return c.Hometown
	}
	return sql.NullString{}
}

// Score returns a score field; text fields return invalid
func (c CleanedRecord) Score(f Field) sql.NullFloat64 {
	if p := c.scoreSlot(f); p != nil {
		return *p
	}
	return sql.NullFloat64{}
}

// WithScore returns a copy of c with score field f set to v
func (c CleanedRecord) WithScore(f Field, v sql.NullFloat64) CleanedRecord {
	if p := c.scoreSlot(f); p != nil {
		*p = v
	}
	return c
}

// IsObserved reports whether field f carries a value
func (c CleanedRecord) IsObserved(f Field) bool {
	if f.IsScore() {
		return c.Score(f).Valid
	}
	return c.Text(f).Valid
}

func (c *CleanedRecord) scoreSlot(f Field) *sql.NullFloat64 {
	switch f {
	case FieldMathScore:
		return &c.MathScore
	case FieldEnglishScore:
		return &c.EnglishScore
	case FieldLiteratureScore:
		return &c.LiteratureScore
	}
	return nil
}
