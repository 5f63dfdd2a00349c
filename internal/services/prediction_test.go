package services

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

func TestPredictNextPeriod(t *testing.T) {
	tests := []struct {
		name     string
		starts   []string
		want     string
		wantOK   bool
		fallback int
	}{
		{name: "no records", wantOK: false, fallback: 28},
		{name: "single record uses default", starts: []string{"2024-01-01"}, want: "2024-01-29", wantOK: true, fallback: 28},
		{name: "single record uses configured default", starts: []string{"2024-01-01"}, want: "2024-01-31", wantOK: true, fallback: 30},
		{name: "integer average", starts: []string{"2024-02-25", "2024-01-01", "2024-01-29"}, want: "2024-03-23", wantOK: true, fallback: 28},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			next, ok := PredictNextPeriod(startsOnly(t, testCase.starts...), testCase.fallback)
			if ok != testCase.wantOK {
				t.Fatalf("expected ok=%v, got %v", testCase.wantOK, ok)
			}
			if !ok {
				if !next.IsZero() {
					t.Fatalf("expected zero time, got %v", next)
				}
				return
			}
			if got := FormatISODate(next); got != testCase.want {
				t.Fatalf("expected %s, got %s", testCase.want, got)
			}
		})
	}
}

func TestBuildPredictionDaysUntil(t *testing.T) {
	records := startsOnly(t, "2024-01-01", "2024-01-29", "2024-02-25")

	tests := []struct {
		today string
		want  int
	}{
		{today: "2024-03-20", want: 3},
		{today: "2024-03-23", want: 0},
		{today: "2024-04-01", want: -9},
	}
	for _, testCase := range tests {
		prediction, ok := BuildPrediction(records, models.DefaultCycleLength, mustDate(t, testCase.today))
		if !ok {
			t.Fatalf("expected prediction")
		}
		if prediction.DaysUntil != testCase.want {
			t.Fatalf("today=%s: expected %d days, got %d", testCase.today, testCase.want, prediction.DaysUntil)
		}
		if prediction.CycleLengthUsed != 27 || prediction.LastPeriodStart.String() != "2024-02-25" {
			t.Fatalf("unexpected prediction %#v", prediction)
		}
	}

	if prediction, ok := BuildPrediction(nil, 28, mustDate(t, "2024-01-01")); ok || prediction != nil {
		t.Fatalf("expected no prediction without records")
	}
}

func TestBuildPredictionJSONShape(t *testing.T) {
	prediction, _ := BuildPrediction(startsOnly(t, "2024-01-01"), 28, mustDate(t, "2024-01-10"))

	encoded, err := json.Marshal(prediction)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"next_period_date":  "2024-01-29",
		"days_until":        float64(19),
		"cycle_length_used": float64(28),
		"last_period_start": "2024-01-01",
	}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("unexpected payload %#v", decoded)
	}
}

func TestCheckLateness(t *testing.T) {
	records := startsOnly(t, "2024-01-01", "2024-01-29")

	tests := []struct {
		name         string
		today        string
		wantStatus   string
		wantDaysLate int
	}{
		{name: "within cycle", today: "2024-02-20", wantStatus: LatenessNormal},
		{name: "on expected day", today: "2024-02-26", wantStatus: LatenessNormal},
		{name: "one day over", today: "2024-02-27", wantStatus: LatenessSlightlyLate, wantDaysLate: 1},
		{name: "grace boundary", today: "2024-03-04", wantStatus: LatenessSlightlyLate, wantDaysLate: 7},
		{name: "past grace", today: "2024-03-05", wantStatus: LatenessLate, wantDaysLate: 8},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			check, ok := CheckLateness(records, models.DefaultCycleLength, mustDate(t, testCase.today))
			if !ok {
				t.Fatalf("expected a lateness check")
			}
			if check.Status != testCase.wantStatus || check.DaysLate != testCase.wantDaysLate {
				t.Fatalf("expected %s/%d, got %s/%d", testCase.wantStatus, testCase.wantDaysLate, check.Status, check.DaysLate)
			}
			if check.AverageCycleLength != 28 {
				t.Fatalf("expected 28 day average, got %d", check.AverageCycleLength)
			}
		})
	}

	if _, ok := CheckLateness(nil, 28, mustDate(t, "2024-01-01")); ok {
		t.Fatalf("expected no check without records")
	}
}

func TestBuildComprehensiveAnalysis(t *testing.T) {
	records := []models.PeriodRecord{
		periodFixture(t, "2024-02-25", "2024-02-29", models.FlowHeavy, "cramps"),
		periodFixture(t, "2024-01-01", "2024-01-05", models.FlowMedium, "cramps", "fatigue"),
		periodFixture(t, "2024-01-29", "", models.FlowMedium),
	}
	// Snapshots must not leak into the analysis.
	records[0].CycleLengthAtInsert = 99

	analysis, err := BuildComprehensiveAnalysis(records, models.DefaultCycleLength, mustDate(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.TotalPeriods != 3 {
		t.Fatalf("expected 3 periods, got %d", analysis.TotalPeriods)
	}
	if analysis.DateRange.Start.String() != "2024-01-01" || analysis.DateRange.End.String() != "2024-02-25" {
		t.Fatalf("unexpected range %s..%s", analysis.DateRange.Start, analysis.DateRange.End)
	}
	if analysis.CycleAnalysis.CycleStatistics == nil || analysis.CycleAnalysis.AverageCycleLength != 27.5 {
		t.Fatalf("unexpected cycle analysis %#v", analysis.CycleAnalysis)
	}
	if analysis.Prediction == nil || analysis.Prediction.NextPeriodDate.String() != "2024-03-23" || analysis.Prediction.DaysUntil != 22 {
		t.Fatalf("unexpected prediction %#v", analysis.Prediction)
	}
	if analysis.FlowAnalysis.MostCommon.Flow != models.FlowMedium || *analysis.FlowAnalysis.AverageDuration != 5 {
		t.Fatalf("unexpected flow analysis %#v", analysis.FlowAnalysis)
	}
	if analysis.SymptomAnalysis.MostCommon[0] != (SymptomCount{Symptom: "cramps", Count: 2}) {
		t.Fatalf("unexpected symptom analysis %#v", analysis.SymptomAnalysis)
	}

	again, _ := BuildComprehensiveAnalysis(records, models.DefaultCycleLength, mustDate(t, "2024-03-01"))
	if !reflect.DeepEqual(analysis, again) {
		t.Fatalf("expected identical analyses")
	}
}

func TestBuildComprehensiveAnalysisEdgeCases(t *testing.T) {
	if _, err := BuildComprehensiveAnalysis(nil, 28, mustDate(t, "2024-01-01")); err != ErrNoPeriodData {
		t.Fatalf("expected ErrNoPeriodData, got %v", err)
	}

	analysis, err := BuildComprehensiveAnalysis(startsOnly(t, "2024-01-01"), 28, mustDate(t, "2024-01-10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.CycleAnalysis.CycleStatistics != nil || analysis.CycleAnalysis.Error == "" {
		t.Fatalf("expected embedded cycle error, got %#v", analysis.CycleAnalysis)
	}

	encoded, err := json.Marshal(analysis.CycleAnalysis)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"error":"need at least 2 periods to calculate cycle statistics"}` {
		t.Fatalf("unexpected cycle analysis payload %s", encoded)
	}
	if analysis.Prediction == nil || analysis.Prediction.NextPeriodDate.String() != "2024-01-29" {
		t.Fatalf("expected default-cycle prediction, got %#v", analysis.Prediction)
	}
}
