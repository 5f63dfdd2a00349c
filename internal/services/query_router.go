package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

const (
	QueryAverageCycle  = "average_cycle"
	QuerySymptoms      = "symptoms"
	QueryPrediction    = "prediction"
	QueryHistory       = "history"
	QueryFlow          = "flow"
	QueryComprehensive = "comprehensive"
	QueryRegularity    = "regularity"
	QueryDuration      = "duration"
	QueryLateness      = "lateness"
	QueryStatistics    = "statistics"
	QueryHelp          = "help"

	queryErrorPrefix = "Error processing query: "

	// More matching routes than this means the question spans several topics.
	broadQueryMatchThreshold = 2

	historyPreviewLimit = 5
)

type QueryResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Data     any    `json:"data"`
	Category string `json:"handler"`
}

type queryInput struct {
	records            []models.PeriodRecord
	today              time.Time
	defaultCycleLength int
}

type queryHandler func(input queryInput) (QueryResult, error)

type queryRoute struct {
	name     string
	label    string
	patterns []*regexp.Regexp
	handler  queryHandler
}

type QueryRouter struct {
	routes             []queryRoute
	defaultCycleLength int
}

func NewQueryRouter(defaultCycleLength int) *QueryRouter {
	if defaultCycleLength <= 0 {
		defaultCycleLength = models.DefaultCycleLength
	}
	return &QueryRouter{
		routes:             defaultQueryRoutes(),
		defaultCycleLength: defaultCycleLength,
	}
}

func defaultQueryRoutes() []queryRoute {
	return []queryRoute{
		{
			name:     QueryAverageCycle,
			label:    "average cycle length",
			patterns: compilePatterns(`\baverage\b.*\bcycle`, `\bcycle length\b`, `\bavg cycle\b`, `\bhow long is my cycle\b`),
			handler:  handleAverageCycleQuery,
		},
		{
			name:     QuerySymptoms,
			label:    "symptoms",
			patterns: compilePatterns(`\bsymptoms?\b`, `\bcramps?\b`, `\bpain\b`, `\bmood\b`),
			handler:  handleSymptomsQuery,
		},
		{
			name:     QueryPrediction,
			label:    "next period prediction",
			patterns: compilePatterns(`\bnext period\b`, `\bpredict`, `\bwhen (will|is|does) my (next )?period\b`, `\bexpect`),
			handler:  handlePredictionQuery,
		},
		{
			name:     QueryHistory,
			label:    "period history",
			patterns: compilePatterns(`\bhistory\b`, `\b(past|previous) periods?\b`, `\bshow (me )?(all )?my periods\b`),
			handler:  handleHistoryQuery,
		},
		{
			name:     QueryFlow,
			label:    "flow intensity",
			patterns: compilePatterns(`\bflow\b`, `\bheavy\b`, `\bbleeding\b`),
			handler:  handleFlowQuery,
		},
		{
			name:     QueryComprehensive,
			label:    "comprehensive summary",
			patterns: compilePatterns(`\bsummary\b`, `\bsummari[sz]e\b`, `\bcomprehensive\b`, `\boverview\b`, `\breport\b`, `\banaly[sz](e|is)\b`),
			handler:  handleComprehensiveQuery,
		},
		{
			name:     QueryRegularity,
			label:    "cycle regularity",
			patterns: compilePatterns(`\bregular`, `\birregular`, `\bconsistent\b`),
			handler:  handleRegularityQuery,
		},
		{
			name:     QueryDuration,
			label:    "period duration",
			patterns: compilePatterns(`\bduration\b`, `\bperiod length\b`, `\bhow long (does|do|did|is|was) my period`, `\bhow many days (does|do|did) my period`),
			handler:  handleDurationQuery,
		},
		{
			name:     QueryLateness,
			label:    "late period check",
			patterns: compilePatterns(`\blate\b`, `\bpregnan`, `\bmissed (my )?period\b`, `\boverdue\b`),
			handler:  handleLatenessQuery,
		},
		{
			name:     QueryStatistics,
			label:    "cycle statistics",
			patterns: compilePatterns(`\bstatistics?\b`, `\bstats\b`),
			handler:  handleComprehensiveQuery,
		},
	}
}

func compilePatterns(expressions ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(expressions))
	for _, expression := range expressions {
		patterns = append(patterns, regexp.MustCompile(expression))
	}
	return patterns
}

func (route queryRoute) matches(text string) bool {
	for _, pattern := range route.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// MatchingCategories lists the routes a query matches, in table order.
func (router *QueryRouter) MatchingCategories(text string) []string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	matched := make([]string, 0)
	for _, route := range router.routes {
		if route.matches(normalized) {
			matched = append(matched, route.name)
		}
	}
	return matched
}

// Route answers a free-text question from the patient's records. Handler
// failures and panics become unsuccessful results.
func (router *QueryRouter) Route(text string, records []models.PeriodRecord, today time.Time) (result QueryResult) {
	route, ok := router.selectRoute(text)
	if !ok {
		return router.helpResult()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result = QueryResult{
				Success:  false,
				Message:  fmt.Sprintf("%s%v", queryErrorPrefix, recovered),
				Category: route.name,
			}
		}
	}()

	result, err := route.handler(queryInput{
		records:            SortPeriodRecords(records),
		today:              today,
		defaultCycleLength: router.defaultCycleLength,
	})
	if err != nil {
		return QueryResult{
			Success:  false,
			Message:  queryErrorPrefix + err.Error(),
			Category: route.name,
		}
	}
	result.Category = route.name
	return result
}

func (router *QueryRouter) selectRoute(text string) (queryRoute, bool) {
	matched := router.MatchingCategories(text)
	if len(matched) == 0 {
		return queryRoute{}, false
	}

	selected := matched[0]
	if len(matched) > broadQueryMatchThreshold {
		selected = QueryComprehensive
	}
	for _, route := range router.routes {
		if route.name == selected {
			return route, true
		}
	}
	return queryRoute{}, false
}

func (router *QueryRouter) helpResult() QueryResult {
	labels := make([]string, 0, len(router.routes))
	for _, route := range router.routes {
		labels = append(labels, route.label)
	}
	return QueryResult{
		Success:  true,
		Message:  "I can answer questions about: " + strings.Join(labels, ", ") + ".",
		Data:     map[string]any{"categories": labels},
		Category: QueryHelp,
	}
}

func QueryFailure(err error) QueryResult {
	return QueryResult{Success: false, Message: queryErrorPrefix + DisplayMessage(err)}
}

func notEnoughCyclesMessage(recordCount int, topic string) string {
	return fmt.Sprintf("I need at least 2 recorded periods to calculate your %s. You have %d recorded.", topic, recordCount)
}

func handleAverageCycleQuery(input queryInput) (QueryResult, error) {
	average, ok := StatisticalAverageCycleLength(input.records)
	if !ok {
		return QueryResult{Success: true, Message: notEnoughCyclesMessage(len(input.records), "average cycle length")}, nil
	}
	integerAverage, _ := IntegerAverageCycleLength(input.records)
	totalCycles := len(input.records) - 1

	return QueryResult{
		Success: true,
		Message: fmt.Sprintf("Your average cycle length is %.1f days based on %d cycles.", roundTo(average, 1), totalCycles),
		Data: map[string]any{
			"average_cycle_length":         roundTo(average, 1),
			"integer_average_cycle_length": integerAverage,
			"total_cycles":                 totalCycles,
		},
	}, nil
}

func handleSymptomsQuery(input queryInput) (QueryResult, error) {
	profile := AnalyzeSymptoms(input.records)
	if profile.TotalSymptomReports == 0 {
		return QueryResult{Success: true, Message: "No symptoms have been recorded yet.", Data: profile}, nil
	}

	parts := make([]string, 0, len(profile.MostCommon))
	for _, entry := range profile.MostCommon {
		parts = append(parts, fmt.Sprintf("%s (%d)", entry.Symptom, entry.Count))
	}
	return QueryResult{
		Success: true,
		Message: fmt.Sprintf("Your most common symptoms are: %s. Total symptom reports: %d.", strings.Join(parts, ", "), profile.TotalSymptomReports),
		Data:    profile,
	}, nil
}

func handlePredictionQuery(input queryInput) (QueryResult, error) {
	prediction, ok := BuildPrediction(input.records, input.defaultCycleLength, input.today)
	if !ok {
		return QueryResult{Success: true, Message: "No period data available to predict your next period."}, nil
	}
	return QueryResult{
		Success: true,
		Message: DescribePrediction(prediction),
		Data:    prediction,
	}, nil
}

// DescribePrediction phrases a prediction relative to today.
func DescribePrediction(prediction *Prediction) string {
	date := prediction.NextPeriodDate.String()
	switch {
	case prediction.DaysUntil > 0:
		return fmt.Sprintf("Your next period is predicted to start on %s, in %d days.", date, prediction.DaysUntil)
	case prediction.DaysUntil == 0:
		return fmt.Sprintf("Your next period is predicted to start today, %s.", date)
	default:
		return fmt.Sprintf("Your next period was predicted for %s, %d days ago.", date, -prediction.DaysUntil)
	}
}

type historyEntry struct {
	StartDate     ISODate  `json:"start_date"`
	EndDate       *ISODate `json:"end_date,omitempty"`
	FlowIntensity string   `json:"flow_intensity"`
}

func handleHistoryQuery(input queryInput) (QueryResult, error) {
	if len(input.records) == 0 {
		return QueryResult{Success: true, Message: "You have no recorded periods yet."}, nil
	}

	entries := make([]historyEntry, 0, historyPreviewLimit)
	for i := len(input.records) - 1; i >= 0 && len(entries) < historyPreviewLimit; i-- {
		record := input.records[i]
		entry := historyEntry{StartDate: NewISODate(record.StartDate), FlowIntensity: record.FlowIntensity}
		if record.EndDate != nil {
			end := NewISODate(*record.EndDate)
			entry.EndDate = &end
		}
		entries = append(entries, entry)
	}

	first := NewISODate(input.records[0].StartDate)
	last := NewISODate(input.records[len(input.records)-1].StartDate)
	return QueryResult{
		Success: true,
		Message: fmt.Sprintf("You have %d recorded periods from %s to %s.", len(input.records), first, last),
		Data: map[string]any{
			"total_periods": len(input.records),
			"recent":        entries,
		},
	}, nil
}

func handleFlowQuery(input queryInput) (QueryResult, error) {
	profile := AnalyzeFlow(input.records)
	if profile.MostCommon == nil {
		return QueryResult{Success: true, Message: "No flow intensity has been recorded yet.", Data: profile}, nil
	}

	message := fmt.Sprintf("Your most common flow intensity is %s (%d of %d periods).", profile.MostCommon.Flow, profile.MostCommon.Count, len(input.records))
	if profile.AverageDuration != nil {
		message += fmt.Sprintf(" Your periods last %.1f days on average.", *profile.AverageDuration)
	}
	return QueryResult{Success: true, Message: message, Data: profile}, nil
}

func handleComprehensiveQuery(input queryInput) (QueryResult, error) {
	analysis, err := BuildComprehensiveAnalysis(input.records, input.defaultCycleLength, input.today)
	if err != nil {
		return QueryResult{Success: true, Message: NoPeriodDataMessage + "."}, nil
	}

	parts := []string{fmt.Sprintf("Summary of %d recorded periods", analysis.TotalPeriods)}
	if stats := analysis.CycleAnalysis.CycleStatistics; stats != nil {
		parts = append(parts, fmt.Sprintf("average cycle %.1f days (%s)", stats.AverageCycleLength, stats.Regularity))
	}
	if top := analysis.FlowAnalysis.MostCommon; top != nil {
		parts = append(parts, "most common flow "+top.Flow)
	}
	if len(analysis.SymptomAnalysis.MostCommon) > 0 {
		parts = append(parts, "top symptom "+analysis.SymptomAnalysis.MostCommon[0].Symptom)
	}
	if analysis.Prediction != nil {
		parts = append(parts, "next period expected "+analysis.Prediction.NextPeriodDate.String())
	}

	return QueryResult{
		Success: true,
		Message: strings.Join(parts, "; ") + ".",
		Data:    analysis,
	}, nil
}

func handleRegularityQuery(input queryInput) (QueryResult, error) {
	stats, err := ComputeCycleStatistics(input.records)
	if err != nil {
		return QueryResult{Success: true, Message: notEnoughCyclesMessage(len(input.records), "cycle regularity")}, nil
	}
	return QueryResult{
		Success: true,
		Message: fmt.Sprintf("Your cycles are %s, with a standard deviation of %.2f days across %d cycles.", stats.Regularity, stats.StandardDeviation, stats.TotalCycles),
		Data:    stats,
	}, nil
}

func handleDurationQuery(input queryInput) (QueryResult, error) {
	profile := AnalyzeFlow(input.records)
	if profile.AverageDuration == nil {
		return QueryResult{Success: true, Message: "No period end dates have been recorded yet, so duration cannot be calculated."}, nil
	}
	return QueryResult{
		Success: true,
		Message: fmt.Sprintf("Your periods last %.1f days on average (shortest %d, longest %d).", *profile.AverageDuration, *profile.ShortestDuration, *profile.LongestDuration),
		Data: map[string]any{
			"average_duration":      *profile.AverageDuration,
			"shortest_duration":     *profile.ShortestDuration,
			"longest_duration":      *profile.LongestDuration,
			"records_with_duration": profile.RecordsWithDuration,
		},
	}, nil
}

func handleLatenessQuery(input queryInput) (QueryResult, error) {
	check, ok := CheckLateness(input.records, input.defaultCycleLength, input.today)
	if !ok {
		return QueryResult{Success: true, Message: "No period data available to check whether your period is late."}, nil
	}

	var message string
	switch check.Status {
	case LatenessLate:
		message = fmt.Sprintf("Your period is %d days late based on your %d-day average cycle. Consider taking a pregnancy test or talking to a doctor.", check.DaysLate, check.AverageCycleLength)
	case LatenessSlightlyLate:
		message = fmt.Sprintf("Your period is %d days later than your %d-day average cycle. This is within normal variation; keep monitoring.", check.DaysLate, check.AverageCycleLength)
	default:
		message = fmt.Sprintf("It has been %d days since your last period, within your %d-day average cycle.", check.DaysSinceLastPeriod, check.AverageCycleLength)
	}
	message += " This is not a medical determination."

	return QueryResult{Success: true, Message: message, Data: check}, nil
}
