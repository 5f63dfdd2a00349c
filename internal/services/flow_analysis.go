package services

import (
	"strings"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

type FlowCount struct {
	Flow  string `json:"flow"`
	Count int    `json:"count"`
}

type FlowProfile struct {
	Distribution        map[string]int `json:"distribution"`
	MostCommon          *FlowCount     `json:"most_common,omitempty"`
	RecordsWithDuration int            `json:"records_with_duration"`
	AverageDuration     *float64       `json:"average_duration,omitempty"`
	ShortestDuration    *int           `json:"shortest_duration,omitempty"`
	LongestDuration     *int           `json:"longest_duration,omitempty"`
}

// PeriodDuration counts both boundary days, so a period that starts and ends
// on the same day lasts one day.
func PeriodDuration(record models.PeriodRecord) (int, bool) {
	if record.EndDate == nil {
		return 0, false
	}
	return daysBetween(record.StartDate, *record.EndDate) + 1, true
}

func AnalyzeFlow(records []models.PeriodRecord) FlowProfile {
	flows := newOrderedCounter()
	durations := make([]int, 0, len(records))

	for _, record := range SortPeriodRecords(records) {
		if flow := strings.TrimSpace(record.FlowIntensity); flow != "" {
			flows.add(flow)
		}
		if duration, ok := PeriodDuration(record); ok {
			durations = append(durations, duration)
		}
	}

	profile := FlowProfile{
		Distribution:        make(map[string]int, len(flows.counts)),
		RecordsWithDuration: len(durations),
	}
	for flow, count := range flows.counts {
		profile.Distribution[flow] = count
	}
	if top := flows.top(1); len(top) == 1 {
		profile.MostCommon = &FlowCount{Flow: top[0].Symptom, Count: top[0].Count}
	}

	if len(durations) > 0 {
		average := roundTo(meanInts(durations), 1)
		shortest, longest := minMaxInts(durations)
		profile.AverageDuration = &average
		profile.ShortestDuration = &shortest
		profile.LongestDuration = &longest
	}
	return profile
}
