package services

import (
	"errors"
	"math"
	"sort"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

var ErrInsufficientData = errors.New("need at least 2 periods to calculate cycle statistics")

const (
	RegularityRegular       = "regular"
	RegularityIrregular     = "irregular"
	RegularityVeryIrregular = "very irregular"

	regularMaxStdDev   = 3.0
	irregularMaxStdDev = 7.0

	minRecordsForCycleStats = 2
)

type CycleStatistics struct {
	AverageCycleLength float64 `json:"average_cycle_length"`
	ShortestCycle      int     `json:"shortest_cycle"`
	LongestCycle       int     `json:"longest_cycle"`
	StandardDeviation  float64 `json:"standard_deviation"`
	Regularity         string  `json:"regularity"`
	CycleLengths       []int   `json:"cycle_lengths"`
	TotalCycles        int     `json:"total_cycles"`
}

// SortPeriodRecords returns a copy of records ordered by start date. Records
// sharing a start date keep their input order.
func SortPeriodRecords(records []models.PeriodRecord) []models.PeriodRecord {
	sorted := make([]models.PeriodRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return daysBetween(sorted[j].StartDate, sorted[i].StartDate) < 0
	})
	return sorted
}

// CycleGaps returns the day gaps between consecutive period starts.
func CycleGaps(records []models.PeriodRecord) []int {
	if len(records) < minRecordsForCycleStats {
		return nil
	}

	sorted := SortPeriodRecords(records)
	gaps := make([]int, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, daysBetween(sorted[i-1].StartDate, sorted[i].StartDate))
	}
	return gaps
}

func ComputeCycleStatistics(records []models.PeriodRecord) (CycleStatistics, error) {
	if len(records) < minRecordsForCycleStats {
		return CycleStatistics{}, ErrInsufficientData
	}

	gaps := CycleGaps(records)
	mean := meanInts(gaps)
	stdDev := populationStdDev(gaps, mean)
	shortest, longest := minMaxInts(gaps)

	return CycleStatistics{
		AverageCycleLength: roundTo(mean, 1),
		ShortestCycle:      shortest,
		LongestCycle:       longest,
		StandardDeviation:  roundTo(stdDev, 2),
		Regularity:         ClassifyRegularity(stdDev),
		CycleLengths:       gaps,
		TotalCycles:        len(gaps),
	}, nil
}

func ClassifyRegularity(stdDev float64) string {
	switch {
	case stdDev <= regularMaxStdDev:
		return RegularityRegular
	case stdDev <= irregularMaxStdDev:
		return RegularityIrregular
	default:
		return RegularityVeryIrregular
	}
}

// StatisticalAverageCycleLength is the unrounded mean gap, used for reporting.
func StatisticalAverageCycleLength(records []models.PeriodRecord) (float64, bool) {
	gaps := CycleGaps(records)
	if len(gaps) == 0 {
		return 0, false
	}
	return meanInts(gaps), true
}

// IntegerAverageCycleLength is the floor of the mean gap. Insert snapshots and
// predictions use it, so it can differ from StatisticalAverageCycleLength
// (27.5 reports as 27.5 but predicts with 27).
func IntegerAverageCycleLength(records []models.PeriodRecord) (int, bool) {
	gaps := CycleGaps(records)
	if len(gaps) == 0 {
		return 0, false
	}
	total := 0
	for _, gap := range gaps {
		total += gap
	}
	return total / len(gaps), true
}

// PredictionCycleLength is the integer average when it is positive, else the
// default cycle length.
func PredictionCycleLength(records []models.PeriodRecord, defaultCycleLength int) int {
	if average, ok := IntegerAverageCycleLength(records); ok && average > 0 {
		return average
	}
	if defaultCycleLength <= 0 {
		return models.DefaultCycleLength
	}
	return defaultCycleLength
}

func meanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var total int
	for _, value := range values {
		total += value
	}
	return float64(total) / float64(len(values))
}

func populationStdDev(values []int, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSquares float64
	for _, value := range values {
		delta := float64(value) - mean
		sumSquares += delta * delta
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

func minMaxInts(values []int) (int, int) {
	if len(values) == 0 {
		return 0, 0
	}
	lowest, highest := values[0], values[0]
	for _, value := range values[1:] {
		if value < lowest {
			lowest = value
		}
		if value > highest {
			highest = value
		}
	}
	return lowest, highest
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
