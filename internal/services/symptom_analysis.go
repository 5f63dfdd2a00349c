package services

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

const (
	topSymptomsLimit        = 5
	topSymptomsPerFlowLimit = 3
)

type SymptomCount struct {
	Symptom string `json:"symptom"`
	Count   int    `json:"count"`
}

type SymptomProfile struct {
	TotalSymptomReports int                       `json:"total_symptom_reports"`
	UniqueSymptoms      int                       `json:"unique_symptoms"`
	MostCommon          []SymptomCount            `json:"most_common"`
	ByFlow              map[string][]SymptomCount `json:"by_flow"`
	SkippedRecords      int                       `json:"skipped_records"`
}

// DecodeSymptoms reads the stored tag list. A null or empty column decodes
// to no tags.
func DecodeSymptoms(record models.PeriodRecord) ([]string, error) {
	raw := strings.TrimSpace(string(record.Symptoms))
	if raw == "" || raw == "null" {
		return nil, nil
	}

	tags := make([]string, 0)
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// orderedCounter counts keys and remembers when each key was first seen.
type orderedCounter struct {
	counts map[string]int
	order  []string
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{counts: make(map[string]int)}
}

func (counter *orderedCounter) add(key string) {
	if _, seen := counter.counts[key]; !seen {
		counter.order = append(counter.order, key)
	}
	counter.counts[key]++
}

func (counter *orderedCounter) total() int {
	total := 0
	for _, count := range counter.counts {
		total += count
	}
	return total
}

// top returns up to limit keys by descending count; equal counts keep
// first-seen order.
func (counter *orderedCounter) top(limit int) []SymptomCount {
	ranked := make([]SymptomCount, 0, len(counter.order))
	for _, key := range counter.order {
		ranked = append(ranked, SymptomCount{Symptom: key, Count: counter.counts[key]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func AnalyzeSymptoms(records []models.PeriodRecord) SymptomProfile {
	overall := newOrderedCounter()
	byFlow := make(map[string]*orderedCounter)
	skipped := 0

	for _, record := range SortPeriodRecords(records) {
		tags, err := DecodeSymptoms(record)
		if err != nil {
			skipped++
			continue
		}

		flow := strings.TrimSpace(record.FlowIntensity)
		for _, tag := range tags {
			overall.add(tag)
			if flow == "" {
				continue
			}
			partition, ok := byFlow[flow]
			if !ok {
				partition = newOrderedCounter()
				byFlow[flow] = partition
			}
			partition.add(tag)
		}
	}

	profile := SymptomProfile{
		TotalSymptomReports: overall.total(),
		UniqueSymptoms:      len(overall.order),
		MostCommon:          overall.top(topSymptomsLimit),
		ByFlow:              make(map[string][]SymptomCount, len(byFlow)),
		SkippedRecords:      skipped,
	}
	for flow, partition := range byFlow {
		profile.ByFlow[flow] = partition.top(topSymptomsPerFlowLimit)
	}
	return profile
}
