package services

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"student-harvester/config"
	"student-harvester/models"
	"student-harvester/utils"
)

// Imputer coerces score fields to numbers and fills the gaps with the mean
// of the student's hometown group, falling back to the dataset-wide mean.
type Imputer struct {
	logger      *utils.Logger
	sharedGroup bool
}

// NewImputer creates an Imputer. With the "shared" policy every record
// without a hometown joins one common group; with "isolated" each such
// record is a group of its own and can only be filled from the global mean.
func NewImputer(policy string, logger *utils.Logger) *Imputer {
	return &Imputer{
		logger:      logger,
		sharedGroup: policy == config.MissingHometownShared,
	}
}

// Impute coerces and fills a harvested dataset. The result has the same
// length and order as ds; ds itself is not modified.
func (im *Imputer) Impute(ds models.Dataset) []models.CleanedRecord {
	cleaned, _ := im.ImputeWithStats(ds)
	return cleaned
}

// ImputeWithStats is Impute plus per-field counts for diagnostics
func (im *Imputer) ImputeWithStats(ds models.Dataset) ([]models.CleanedRecord, models.ImputationStats) {
	cleaned, stats := im.fill(Coerce(ds))
	im.logger.Info("Cleaned %d records", len(cleaned))
	for _, f := range models.ScoreFields {
		s := stats[f]
		im.logger.Debug("%s: %d observed, %d filled by hometown, %d filled globally, %d still missing",
			f, s.Observed, s.FilledByGroup, s.FilledByGlobal, s.StillMissing)
	}
	return cleaned, stats
}

// Fill imputes already-coerced records. Observed values are never changed,
// so Fill(Fill(x)) == Fill(x).
func (im *Imputer) Fill(records []models.CleanedRecord) []models.CleanedRecord {
	out, _ := im.fill(records)
	return out
}

// Coerce copies text fields and parses score text. Unparseable, missing,
// NaN and infinite values become unobserved.
func Coerce(ds models.Dataset) []models.CleanedRecord {
	out := make([]models.CleanedRecord, len(ds))
	for i, r := range ds {
		out[i] = models.CleanedRecord{
			StudentID:       r.StudentID,
			FirstName:       r.FirstName,
			LastName:        r.LastName,
			Email:           r.Email,
			DOB:             r.DOB,
			Hometown:        r.Hometown,
			MathScore:       parseScore(r.MathScore),
			EnglishScore:    parseScore(r.EnglishScore),
			LiteratureScore: parseScore(r.LiteratureScore),
		}
	}
	return out
}

func parseScore(s sql.NullString) sql.NullFloat64 {
	if !s.Valid {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s.String), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// meanAcc accumulates observed values in record order
type meanAcc struct {
	sum   float64
	count int
}

func (m *meanAcc) add(v float64) {
	m.sum += v
	m.count++
}

func (m meanAcc) mean() (float64, bool) {
	if m.count == 0 {
		return 0, false
	}
	return m.sum / float64(m.count), true
}

// groupKeys assigns every record its partition key
func (im *Imputer) groupKeys(records []models.CleanedRecord) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		switch {
		case r.Hometown.Valid:
			keys[i] = "h:" + r.Hometown.String
		case im.sharedGroup:
			keys[i] = "missing"
		default:
			keys[i] = "r:" + strconv.Itoa(i)
		}
	}
	return keys
}

func (im *Imputer) fill(records []models.CleanedRecord) ([]models.CleanedRecord, models.ImputationStats) {
	out := make([]models.CleanedRecord, len(records))
	copy(out, records)
	stats := make(models.ImputationStats, len(models.ScoreFields))
	keys := im.groupKeys(records)

	for _, f := range models.ScoreFields {
		var global meanAcc
		groups := make(map[string]*meanAcc)
		for i, r := range records {
			v := r.Score(f)
			if !v.Valid {
				continue
			}
			global.add(v.Float64)
			g, ok := groups[keys[i]]
			if !ok {
				g = &meanAcc{}
				groups[keys[i]] = g
			}
			g.add(v.Float64)
		}

		s := models.FieldImputation{Observed: global.count}
		s.GlobalMean, s.HasGlobalMean = global.mean()

		for i, r := range records {
			if r.Score(f).Valid {
				continue
			}
			if g, ok := groups[keys[i]]; ok {
				if m, ok := g.mean(); ok {
					out[i] = out[i].WithScore(f, sql.NullFloat64{Float64: m, Valid: true})
					s.FilledByGroup++
					continue
				}
			}
			if s.HasGlobalMean {
				out[i] = out[i].WithScore(f, sql.NullFloat64{Float64: s.GlobalMean, Valid: true})
				s.FilledByGlobal++
				continue
			}
			s.StillMissing++
		}
		stats[f] = s
	}
	return out, stats
}
