package models

import "time"

// ColumnSummary is one row of the metadata summary.
type ColumnSummary struct {
	Name           string
	DataType       string
	Uniques        int
	Nulls          int
	NullProportion float64
	SampleValues   []string
	SourceFile     string
}

// FileShape records the dimensions of one input or output table.
type FileShape struct {
	FileName string
	Rows     int
	Columns  int
}

// RunReport holds the computed statistics of one pipeline run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	OutputPath string

	Locations    int
	Transactions int
	Facilities   int

	Properties int
	OutputRows int
	FirstYear  int
	LastYear   int

	ObservedYears     int
	InterpolatedYears int
	AveragePrice      float64
	MinPrice          float64
	MaxPrice          float64

	UnmatchedPostcodes int
	Warnings           map[string]int
	ByBuildingType     map[BuildingType]int
	ClosestStoreCounts map[string]int
}

// TotalWarnings sums all warning categories.
func (r *RunReport) TotalWarnings() int {
	n := 0
	for _, c := range r.Warnings {
		n += c
	}
	return n
}
