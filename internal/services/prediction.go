package services

import (
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

const (
	LatenessNormal       = "normal"
	LatenessSlightlyLate = "slightly_late"
	LatenessLate         = "late"

	latenessGraceDays = 7
)

type Prediction struct {
	NextPeriodDate  ISODate `json:"next_period_date"`
	DaysUntil       int     `json:"days_until"`
	CycleLengthUsed int     `json:"cycle_length_used"`
	LastPeriodStart ISODate `json:"last_period_start"`
}

type LatenessCheck struct {
	Status              string  `json:"status"`
	DaysSinceLastPeriod int     `json:"days_since_last_period"`
	AverageCycleLength  int     `json:"average_cycle_length"`
	DaysLate            int     `json:"days_late"`
	LastPeriodStart     ISODate `json:"last_period_start"`
}

func lastPeriodRecord(records []models.PeriodRecord) (models.PeriodRecord, bool) {
	if len(records) == 0 {
		return models.PeriodRecord{}, false
	}
	sorted := SortPeriodRecords(records)
	return sorted[len(sorted)-1], true
}

// PredictNextPeriod projects the next start from the latest period. It
// returns false when there are no records.
func PredictNextPeriod(records []models.PeriodRecord, defaultCycleLength int) (time.Time, bool) {
	last, ok := lastPeriodRecord(records)
	if !ok {
		return time.Time{}, false
	}
	cycleLength := PredictionCycleLength(records, defaultCycleLength)
	return dateOnly(last.StartDate).AddDate(0, 0, cycleLength), true
}

func DaysUntil(target time.Time, today time.Time) int {
	return daysBetween(today, target)
}

func BuildPrediction(records []models.PeriodRecord, defaultCycleLength int, today time.Time) (*Prediction, bool) {
	last, ok := lastPeriodRecord(records)
	if !ok {
		return nil, false
	}
	next, _ := PredictNextPeriod(records, defaultCycleLength)

	return &Prediction{
		NextPeriodDate:  NewISODate(next),
		DaysUntil:       DaysUntil(next, today),
		CycleLengthUsed: PredictionCycleLength(records, defaultCycleLength),
		LastPeriodStart: NewISODate(last.StartDate),
	}, true
}

// CheckLateness is an advisory heuristic, not a medical determination.
func CheckLateness(records []models.PeriodRecord, defaultCycleLength int, today time.Time) (LatenessCheck, bool) {
	last, ok := lastPeriodRecord(records)
	if !ok {
		return LatenessCheck{}, false
	}

	average := PredictionCycleLength(records, defaultCycleLength)
	daysSince := daysBetween(last.StartDate, today)
	check := LatenessCheck{
		Status:              LatenessNormal,
		DaysSinceLastPeriod: daysSince,
		AverageCycleLength:  average,
		LastPeriodStart:     NewISODate(last.StartDate),
	}

	switch {
	case daysSince > average+latenessGraceDays:
		check.Status = LatenessLate
		check.DaysLate = daysSince - average
	case daysSince > average:
		check.Status = LatenessSlightlyLate
		check.DaysLate = daysSince - average
	}
	return check, true
}
