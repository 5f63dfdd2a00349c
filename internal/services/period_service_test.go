package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/terraincognita07/cycleinsight/internal/config"
	"github.com/terraincognita07/cycleinsight/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubPeriodStore struct {
	records          []models.PeriodRecord
	listErr          error
	createErr        error
	updateErr        error
	updatedPatientID string
	updatedRecordID  string
	updatedPayload   datatypes.JSON
}

func (stub *stubPeriodStore) ListByPatient(_ context.Context, patientID string) ([]models.PeriodRecord, error) {
	if stub.listErr != nil {
		return nil, stub.listErr
	}
	result := make([]models.PeriodRecord, 0, len(stub.records))
	for _, record := range stub.records {
		if record.PatientID == patientID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (stub *stubPeriodStore) Create(_ context.Context, record *models.PeriodRecord) error {
	if stub.createErr != nil {
		return stub.createErr
	}
	stub.records = append(stub.records, *record)
	return nil
}

func (stub *stubPeriodStore) UpdatePredictions(_ context.Context, patientID string, recordID string, payload datatypes.JSON) error {
	if stub.updateErr != nil {
		return stub.updateErr
	}
	stub.updatedPatientID = patientID
	stub.updatedRecordID = recordID
	stub.updatedPayload = payload
	return nil
}

func newTestPeriodService(store PeriodStore, policy string) *PeriodService {
	service := NewPeriodService(store, models.DefaultCycleLength, policy)
	counter := 0
	service.newID = func() string {
		counter++
		return "period-" + string(rune('0'+counter))
	}
	return service
}

func TestAddPeriodStoresNormalizedRecord(t *testing.T) {
	store := &stubPeriodStore{}
	service := newTestPeriodService(store, config.FlowPolicyReject)

	id, err := service.AddPeriod(context.Background(), AddPeriodInput{
		PatientID:     " patient-1 ",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-05",
		FlowIntensity: " Heavy ",
		Symptoms:      []string{" cramps", "", "fatigue ", "cramps"},
		Description:   "  first entry  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "period-1" || len(store.records) != 1 {
		t.Fatalf("expected one stored record with id period-1, got %q (%d records)", id, len(store.records))
	}

	stored := store.records[0]
	if stored.PatientID != "patient-1" || stored.FlowIntensity != models.FlowHeavy {
		t.Fatalf("unexpected stored record %#v", stored)
	}
	if FormatISODate(stored.StartDate) != "2024-01-01" || stored.EndDate == nil || FormatISODate(*stored.EndDate) != "2024-01-05" {
		t.Fatalf("unexpected stored dates %v %v", stored.StartDate, stored.EndDate)
	}
	tags, err := DecodeSymptoms(stored)
	if err != nil || !reflect.DeepEqual(tags, []string{" cramps", "", "fatigue ", "cramps"}) {
		t.Fatalf("unexpected stored symptoms %#v err=%v", tags, err)
	}
	if stored.Description == nil || *stored.Description != "first entry" {
		t.Fatalf("unexpected description %v", stored.Description)
	}
	if stored.CycleLengthAtInsert != 28 || FormatISODate(stored.EstimatedNextDate) != "2024-01-29" {
		t.Fatalf("unexpected snapshots %d %v", stored.CycleLengthAtInsert, stored.EstimatedNextDate)
	}
}

func TestAddPeriodSnapshotsUseIntegerAverageButEstimateUsesDefault(t *testing.T) {
	store := &stubPeriodStore{}
	service := newTestPeriodService(store, config.FlowPolicyReject)
	ctx := context.Background()

	for _, start := range []string{"2024-01-01", "2024-01-29", "2024-02-25"} {
		if _, err := service.AddPeriod(ctx, AddPeriodInput{PatientID: "p", StartDate: start}); err != nil {
			t.Fatalf("add %s: %v", start, err)
		}
	}
	if _, err := service.AddPeriod(ctx, AddPeriodInput{PatientID: "p", StartDate: "2024-03-24"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	last := store.records[3]
	if last.CycleLengthAtInsert != 27 {
		t.Fatalf("expected floor-divided snapshot 27, got %d", last.CycleLengthAtInsert)
	}
	if FormatISODate(last.EstimatedNextDate) != "2024-04-21" {
		t.Fatalf("expected start + 28 default, got %s", FormatISODate(last.EstimatedNextDate))
	}
	if store.records[1].CycleLengthAtInsert != 28 {
		t.Fatalf("expected default snapshot with one prior record, got %d", store.records[1].CycleLengthAtInsert)
	}
}

func TestAddPeriodKeepsSymptomTagsVerbatim(t *testing.T) {
	store := &stubPeriodStore{}
	service := newTestPeriodService(store, config.FlowPolicyReject)

	tags := []string{" Cramps ", "", "fatigue"}
	if _, err := service.AddPeriod(context.Background(), AddPeriodInput{PatientID: "p", StartDate: "2024-01-01", Symptoms: tags}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(store.records[0].Symptoms) != `[" Cramps ","","fatigue"]` {
		t.Fatalf("expected tags stored verbatim, got %s", store.records[0].Symptoms)
	}

	listed, err := service.ListPeriods(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := DecodeSymptoms(listed[0])
	if err != nil || !reflect.DeepEqual(decoded, tags) {
		t.Fatalf("expected %#v back, got %#v err=%v", tags, decoded, err)
	}
}

func TestAddPeriodRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		input   AddPeriodInput
		wantErr error
	}{
		{name: "missing patient", input: AddPeriodInput{StartDate: "2024-01-01"}, wantErr: ErrInvalidPatientID},
		{name: "bad start", input: AddPeriodInput{PatientID: "p", StartDate: "01/02/2024"}, wantErr: ErrInvalidDate},
		{name: "padded start", input: AddPeriodInput{PatientID: "p", StartDate: " 2024-01-01"}, wantErr: ErrInvalidDate},
		{name: "blank end", input: AddPeriodInput{PatientID: "p", StartDate: "2024-01-01", EndDate: " "}, wantErr: ErrInvalidDate},
		{name: "bad end", input: AddPeriodInput{PatientID: "p", StartDate: "2024-01-01", EndDate: "soon"}, wantErr: ErrInvalidDate},
		{name: "end before start", input: AddPeriodInput{PatientID: "p", StartDate: "2024-01-05", EndDate: "2024-01-01"}, wantErr: ErrEndBeforeStart},
		{name: "unknown flow", input: AddPeriodInput{PatientID: "p", StartDate: "2024-01-01", FlowIntensity: "extreme"}, wantErr: ErrInvalidFlowIntensity},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			store := &stubPeriodStore{}
			service := newTestPeriodService(store, config.FlowPolicyReject)

			id, err := service.AddPeriod(context.Background(), testCase.input)
			if id != "" {
				t.Fatalf("expected empty id on failure, got %q", id)
			}
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
			if len(store.records) != 0 {
				t.Fatalf("expected nothing stored")
			}
		})
	}
}

func TestAddPeriodClampPolicy(t *testing.T) {
	store := &stubPeriodStore{}
	service := newTestPeriodService(store, config.FlowPolicyClampToMedium)

	if _, err := service.AddPeriod(context.Background(), AddPeriodInput{PatientID: "p", StartDate: "2024-01-01", FlowIntensity: "extreme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.records[0].FlowIntensity != models.FlowMedium {
		t.Fatalf("expected clamped medium flow, got %q", store.records[0].FlowIntensity)
	}
	if string(store.records[0].Symptoms) != "[]" {
		t.Fatalf("expected empty symptom list, got %s", store.records[0].Symptoms)
	}
}

func TestAddPeriodStoreFailures(t *testing.T) {
	listFailure := &stubPeriodStore{listErr: errors.New("connection refused")}
	id, err := newTestPeriodService(listFailure, "").AddPeriod(context.Background(), AddPeriodInput{PatientID: "p", StartDate: "2024-01-01"})
	if id != "" || !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store failure, got %q %v", id, err)
	}

	createFailure := &stubPeriodStore{createErr: errors.New("disk full")}
	id, err = newTestPeriodService(createFailure, "").AddPeriod(context.Background(), AddPeriodInput{PatientID: "p", StartDate: "2024-01-01"})
	if id != "" || !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store failure, got %q %v", id, err)
	}
	if strings.Contains(DisplayMessage(err), "disk full") {
		t.Fatalf("display message leaks internal error: %q", DisplayMessage(err))
	}
}

func TestAddPeriodTruncatesLongDescription(t *testing.T) {
	store := &stubPeriodStore{}
	service := newTestPeriodService(store, "")

	long := strings.Repeat("é", maxDescriptionLength+10)
	if _, err := service.AddPeriod(context.Background(), AddPeriodInput{PatientID: "p", StartDate: "2024-01-01", Description: long}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := []rune(*store.records[0].Description); len(got) != maxDescriptionLength {
		t.Fatalf("expected %d runes, got %d", maxDescriptionLength, len(got))
	}
}

func TestNormalizeFlowIntensity(t *testing.T) {
	tests := []struct {
		raw     string
		policy  string
		want    string
		wantErr bool
	}{
		{raw: "", policy: config.FlowPolicyReject, want: models.FlowMedium},
		{raw: "LIGHT", policy: config.FlowPolicyReject, want: models.FlowLight},
		{raw: "spotting", policy: config.FlowPolicyReject, wantErr: true},
		{raw: "spotting", policy: config.FlowPolicyClampToMedium, want: models.FlowMedium},
	}
	for _, testCase := range tests {
		got, err := NormalizeFlowIntensity(testCase.raw, testCase.policy)
		if testCase.wantErr != (err != nil) {
			t.Fatalf("NormalizeFlowIntensity(%q, %q) error = %v", testCase.raw, testCase.policy, err)
		}
		if got != testCase.want {
			t.Fatalf("NormalizeFlowIntensity(%q, %q) = %q, want %q", testCase.raw, testCase.policy, got, testCase.want)
		}
	}
}

func TestListPeriodsSortsByStartDate(t *testing.T) {
	store := &stubPeriodStore{records: []models.PeriodRecord{
		periodFixture(t, "2024-02-25", "", models.FlowMedium),
		periodFixture(t, "2024-01-01", "", models.FlowMedium),
	}}
	service := newTestPeriodService(store, "")

	records, err := service.ListPeriods(context.Background(), "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || FormatISODate(records[0].StartDate) != "2024-01-01" {
		t.Fatalf("unexpected records %#v", records)
	}

	if _, err := service.ListPeriods(context.Background(), "  "); !errors.Is(err, ErrInvalidPatientID) {
		t.Fatalf("expected ErrInvalidPatientID, got %v", err)
	}
}

func TestUpdatePredictions(t *testing.T) {
	store := &stubPeriodStore{}
	service := newTestPeriodService(store, "")

	err := service.UpdatePredictions(context.Background(), "patient-1", "period-1", map[string]any{"next_period_date": "2024-03-24"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(store.updatedPayload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["next_period_date"] != "2024-03-24" || store.updatedRecordID != "period-1" || store.updatedPatientID != "patient-1" {
		t.Fatalf("unexpected update %#v", store)
	}

	store.updateErr = gorm.ErrRecordNotFound
	if err := service.UpdatePredictions(context.Background(), "patient-1", "missing", map[string]any{}); !errors.Is(err, ErrPeriodNotFound) {
		t.Fatalf("expected ErrPeriodNotFound, got %v", err)
	}

	store.updateErr = errors.New("timeout")
	if err := service.UpdatePredictions(context.Background(), "patient-1", "period-1", map[string]any{}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	if err := service.UpdatePredictions(context.Background(), "patient-1", "period-1", map[string]any{"bad": make(chan int)}); !errors.Is(err, ErrInvalidPredictions) {
		t.Fatalf("expected ErrInvalidPredictions, got %v", err)
	}
}
