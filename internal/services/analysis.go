package services

import (
	"errors"
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

const NoPeriodDataMessage = "No period data available"

var ErrNoPeriodData = errors.New("no period data available")

type DateRange struct {
	Start ISODate `json:"start"`
	End   ISODate `json:"end"`
}

// CycleAnalysis carries either statistics or an explanation of why they
// could not be computed.
type CycleAnalysis struct {
	*CycleStatistics
	Error string `json:"error,omitempty"`
}

type ComprehensiveAnalysis struct {
	TotalPeriods    int            `json:"total_periods"`
	DateRange       DateRange      `json:"date_range"`
	CycleAnalysis   CycleAnalysis  `json:"cycle_analysis"`
	SymptomAnalysis SymptomProfile `json:"symptom_analysis"`
	FlowAnalysis    FlowProfile    `json:"flow_analysis"`
	Prediction      *Prediction    `json:"prediction,omitempty"`
}

// BuildComprehensiveAnalysis recomputes every figure from the full record
// set. Snapshot columns stored at insert time are ignored.
func BuildComprehensiveAnalysis(records []models.PeriodRecord, defaultCycleLength int, today time.Time) (ComprehensiveAnalysis, error) {
	if len(records) == 0 {
		return ComprehensiveAnalysis{}, ErrNoPeriodData
	}

	sorted := SortPeriodRecords(records)
	analysis := ComprehensiveAnalysis{
		TotalPeriods: len(sorted),
		DateRange: DateRange{
			Start: NewISODate(sorted[0].StartDate),
			End:   NewISODate(sorted[len(sorted)-1].StartDate),
		},
		SymptomAnalysis: AnalyzeSymptoms(sorted),
		FlowAnalysis:    AnalyzeFlow(sorted),
	}

	stats, err := ComputeCycleStatistics(sorted)
	if err != nil {
		analysis.CycleAnalysis.Error = err.Error()
	} else {
		analysis.CycleAnalysis.CycleStatistics = &stats
	}

	if prediction, ok := BuildPrediction(sorted, defaultCycleLength, today); ok {
		analysis.Prediction = prediction
	}
	return analysis, nil
}
