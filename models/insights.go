package models

// SubjectStats summarizes one score field over the cleaned dataset
type SubjectStats struct {
	Field     Field
	Count     int
	Mean      float64
	Min       float64
	Max       float64
	AtOrAbove int // scores at or above the pass threshold
}

// HometownStats summarizes the students of one hometown
type HometownStats struct {
	Hometown string
	Students int
	Means    map[Field]float64
}

// RankedStudent is a student with their mean over available scores
type RankedStudent struct {
	Record  CleanedRecord
	Average float64
}

// InsightReport holds computed analytics from the cleaned dataset
type InsightReport struct {
	TotalStudents int
	PassThreshold float64
	Subjects      []SubjectStats
	Hometowns     []HometownStats
	TopStudents   []RankedStudent
}
