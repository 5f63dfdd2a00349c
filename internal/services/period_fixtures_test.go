package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
	"gorm.io/datatypes"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := ParseISODate(raw, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return parsed
}

func periodFixture(t *testing.T, start string, end string, flow string, symptoms ...string) models.PeriodRecord {
	t.Helper()

	record := models.PeriodRecord{
		ID:            start + ":" + flow,
		PatientID:     "patient-1",
		StartDate:     mustDate(t, start),
		FlowIntensity: flow,
	}
	if end != "" {
		endDate := mustDate(t, end)
		record.EndDate = &endDate
	}
	if symptoms != nil {
		payload, err := json.Marshal(symptoms)
		if err != nil {
			t.Fatalf("marshal symptoms: %v", err)
		}
		record.Symptoms = datatypes.JSON(payload)
	}
	return record
}

func startsOnly(t *testing.T, starts ...string) []models.PeriodRecord {
	t.Helper()
	records := make([]models.PeriodRecord, 0, len(starts))
	for _, start := range starts {
		records = append(records, periodFixture(t, start, "", models.FlowMedium))
	}
	return records
}
