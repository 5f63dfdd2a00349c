package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/terraincognita07/cycleinsight/internal/config"
	"github.com/terraincognita07/cycleinsight/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxPatientIDLength   = 128
	maxDescriptionLength = 2000
)

var (
	ErrInvalidPatientID     = errors.New("invalid patient id")
	ErrEndBeforeStart       = errors.New("end date is before start date")
	ErrInvalidFlowIntensity = errors.New("invalid flow intensity")
	ErrStoreUnavailable     = errors.New("period store unavailable")
	ErrPeriodNotFound       = errors.New("period not found")
	ErrInvalidPredictions   = errors.New("invalid predictions payload")
)

type PeriodReader interface {
	ListByPatient(ctx context.Context, patientID string) ([]models.PeriodRecord, error)
}

type PeriodStore interface {
	PeriodReader
	Create(ctx context.Context, record *models.PeriodRecord) error
	UpdatePredictions(ctx context.Context, patientID string, recordID string, payload datatypes.JSON) error
}

type AddPeriodInput struct {
	PatientID     string
	StartDate     string
	EndDate       string
	FlowIntensity string
	Symptoms      []string
	Description   string
}

type PeriodService struct {
	store              PeriodStore
	defaultCycleLength int
	flowPolicy         string
	newID              func() string
}

func NewPeriodService(store PeriodStore, defaultCycleLength int, flowPolicy string) *PeriodService {
	if defaultCycleLength <= 0 {
		defaultCycleLength = models.DefaultCycleLength
	}
	if flowPolicy != config.FlowPolicyClampToMedium {
		flowPolicy = config.FlowPolicyReject
	}
	return &PeriodService{
		store:              store,
		defaultCycleLength: defaultCycleLength,
		flowPolicy:         flowPolicy,
		newID:              uuid.NewString,
	}
}

// NormalizeFlowIntensity lowercases the value and maps empty input to medium.
// Unknown values are clamped or rejected according to policy.
func NormalizeFlowIntensity(raw string, policy string) (string, error) {
	flow := strings.ToLower(strings.TrimSpace(raw))
	if flow == "" {
		return models.FlowMedium, nil
	}
	if models.IsValidFlowIntensity(flow) {
		return flow, nil
	}
	if policy == config.FlowPolicyClampToMedium {
		return models.FlowMedium, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFlowIntensity, raw)
}

func NormalizePatientID(raw string) (string, error) {
	patientID := strings.TrimSpace(raw)
	if patientID == "" || len(patientID) > maxPatientIDLength {
		return "", ErrInvalidPatientID
	}
	return patientID, nil
}

func normalizeDescription(raw string) *string {
	description := strings.TrimSpace(raw)
	if description == "" {
		return nil
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		description = string([]rune(description)[:maxDescriptionLength])
	}
	return &description
}

// AddPeriod validates and stores a period. On failure the returned id is
// empty and the error wraps one of the package sentinels.
func (service *PeriodService) AddPeriod(ctx context.Context, input AddPeriodInput) (string, error) {
	patientID, err := NormalizePatientID(input.PatientID)
	if err != nil {
		return "", err
	}

	startDate, err := ParseISODate(input.StartDate, time.UTC)
	if err != nil {
		return "", err
	}

	var endDate *time.Time
	if input.EndDate != "" {
		parsedEnd, err := ParseISODate(input.EndDate, time.UTC)
		if err != nil {
			return "", err
		}
		if parsedEnd.Before(startDate) {
			return "", ErrEndBeforeStart
		}
		endDate = &parsedEnd
	}

	flow, err := NormalizeFlowIntensity(input.FlowIntensity, service.flowPolicy)
	if err != nil {
		return "", err
	}

	// Tags are stored exactly as given.
	tags := input.Symptoms
	if tags == nil {
		tags = []string{}
	}
	symptoms, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode symptoms: %w", err)
	}

	existing, err := service.store.ListByPatient(ctx, patientID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	record := models.PeriodRecord{
		ID:                  service.newID(),
		PatientID:           patientID,
		StartDate:           startDate,
		EndDate:             endDate,
		FlowIntensity:       flow,
		Symptoms:            datatypes.JSON(symptoms),
		Description:         normalizeDescription(input.Description),
		CycleLengthAtInsert: PredictionCycleLength(existing, service.defaultCycleLength),
		EstimatedNextDate:   startDate.AddDate(0, 0, service.defaultCycleLength),
	}
	if err := service.store.Create(ctx, &record); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return record.ID, nil
}

func (service *PeriodService) ListPeriods(ctx context.Context, patientID string) ([]models.PeriodRecord, error) {
	normalized, err := NormalizePatientID(patientID)
	if err != nil {
		return nil, err
	}
	records, err := service.store.ListByPatient(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return SortPeriodRecords(records), nil
}

func (service *PeriodService) UpdatePredictions(ctx context.Context, patientID string, recordID string, predictions map[string]any) error {
	normalized, err := NormalizePatientID(patientID)
	if err != nil {
		return err
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return ErrPeriodNotFound
	}

	payload, err := json.Marshal(predictions)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPredictions, err)
	}

	if err := service.store.UpdatePredictions(ctx, normalized, recordID, datatypes.JSON(payload)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPeriodNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DisplayMessage turns a service error into text that is safe to show to a
// patient.
func DisplayMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPatientID):
		return "A valid patient id is required."
	case errors.Is(err, ErrInvalidDate):
		return "Dates must use the YYYY-MM-DD format."
	case errors.Is(err, ErrEndBeforeStart):
		return "The end date cannot be before the start date."
	case errors.Is(err, ErrInvalidFlowIntensity):
		return "Flow intensity must be light, medium, or heavy."
	case errors.Is(err, ErrInvalidPredictions):
		return "Predictions must be a JSON object."
	case errors.Is(err, ErrPeriodNotFound):
		return "Period not found."
	case errors.Is(err, ErrNoPeriodData):
		return NoPeriodDataMessage
	case errors.Is(err, ErrInsufficientData):
		return "At least 2 recorded periods are needed."
	case errors.Is(err, ErrStoreUnavailable):
		return "Period data is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong. Please try again later."
	}
}
