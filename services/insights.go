package services

import (
	"sort"

	"student-harvester/models"
	"student-harvester/utils"
)

// PassThreshold is the score a student needs to pass a subject
const PassThreshold = 7.0

// InsightService computes analytics from the cleaned dataset
type InsightService struct {
	logger *utils.Logger
	topN   int
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, topN: 5}
}

// Generate computes all insights from the cleaned records. Scores that are
// still missing are left out of every statistic.
func (s *InsightService) Generate(records []models.CleanedRecord) *models.InsightReport {
	report := &models.InsightReport{
		TotalStudents: len(records),
		PassThreshold: PassThreshold,
	}

	if len(records) == 0 {
		s.logger.Warn("No students to generate insights from")
		return report
	}

	for _, f := range models.ScoreFields {
		report.Subjects = append(report.Subjects, subjectStats(records, f))
	}
	report.Hometowns = hometownStats(records)
	report.TopStudents = s.topStudents(records)
	return report
}

func subjectStats(records []models.CleanedRecord, f models.Field) models.SubjectStats {
	st := models.SubjectStats{Field: f}
	var total float64
	for _, r := range records {
		v := r.Score(f)
		if !v.Valid {
			continue
		}
		if st.Count == 0 || v.Float64 < st.Min {
			st.Min = v.Float64
		}
		if st.Count == 0 || v.Float64 > st.Max {
			st.Max = v.Float64
		}
		if v.Float64 >= PassThreshold {
			st.AtOrAbove++
		}
		total += v.Float64
		st.Count++
	}
	if st.Count > 0 {
		st.Mean = total / float64(st.Count)
	}
	return st
}

// hometownStats groups by hometown; students without one are reported
// under an empty name. Sorted by student count, then name.
func hometownStats(records []models.CleanedRecord) []models.HometownStats {
	type acc struct {
		students int
		sums     map[models.Field]float64
		counts   map[models.Field]int
	}
	byTown := make(map[string]*acc)
	for _, r := range records {
		town := r.Hometown.String
		a, ok := byTown[town]
		if !ok {
			a = &acc{sums: make(map[models.Field]float64), counts: make(map[models.Field]int)}
			byTown[town] = a
		}
		a.students++
		for _, f := range models.ScoreFields {
			if v := r.Score(f); v.Valid {
				a.sums[f] += v.Float64
				a.counts[f]++
			}
		}
	}

	out := make([]models.HometownStats, 0, len(byTown))
	for town, a := range byTown {
		hs := models.HometownStats{Hometown: town, Students: a.students, Means: make(map[models.Field]float64)}
		for f, n := range a.counts {
			hs.Means[f] = a.sums[f] / float64(n)
		}
		out = append(out, hs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Students != out[j].Students {
			return out[i].Students > out[j].Students
		}
		return out[i].Hometown < out[j].Hometown
	})
	return out
}

// topStudents ranks students by the mean of their available scores
func (s *InsightService) topStudents(records []models.CleanedRecord) []models.RankedStudent {
	ranked := make([]models.RankedStudent, 0, len(records))
	for _, r := range records {
		var sum float64
		var n int
		for _, f := range models.ScoreFields {
			if v := r.Score(f); v.Valid {
				sum += v.Float64
				n++
			}
		}
		if n == 0 {
			continue
		}
		ranked = append(ranked, models.RankedStudent{Record: r, Average: sum / float64(n)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Average > ranked[j].Average
	})
	maxTop := s.topN
	if len(ranked) < maxTop {
		maxTop = len(ranked)
	}
	return ranked[:maxTop]
}
