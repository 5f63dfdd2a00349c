package services

import (
	"context"
	"fmt"
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
)

type AnalyticsService struct {
	periods            PeriodReader
	router             *QueryRouter
	defaultCycleLength int
	location           *time.Location
	now                func() time.Time
}

func NewAnalyticsService(periods PeriodReader, defaultCycleLength int, location *time.Location) *AnalyticsService {
	if defaultCycleLength <= 0 {
		defaultCycleLength = models.DefaultCycleLength
	}
	if location == nil {
		location = time.UTC
	}
	return &AnalyticsService{
		periods:            periods,
		router:             NewQueryRouter(defaultCycleLength),
		defaultCycleLength: defaultCycleLength,
		location:           location,
		now:                time.Now,
	}
}

// SetClock replaces the time source used to compute "today".
func (service *AnalyticsService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	service.now = now
}

func (service *AnalyticsService) Today() time.Time {
	return DateAtLocation(service.now(), service.location)
}

func (service *AnalyticsService) loadRecords(ctx context.Context, patientID string) ([]models.PeriodRecord, error) {
	normalized, err := NormalizePatientID(patientID)
	if err != nil {
		return nil, err
	}
	records, err := service.periods.ListByPatient(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (service *AnalyticsService) GetComprehensiveAnalysis(ctx context.Context, patientID string) (ComprehensiveAnalysis, error) {
	records, err := service.loadRecords(ctx, patientID)
	if err != nil {
		return ComprehensiveAnalysis{}, err
	}
	return BuildComprehensiveAnalysis(records, service.defaultCycleLength, service.Today())
}

// GetAverageCycleLength reports the floor-divided average used for
// predictions. The bool is false when fewer than 2 periods exist.
func (service *AnalyticsService) GetAverageCycleLength(ctx context.Context, patientID string) (int, bool, error) {
	records, err := service.loadRecords(ctx, patientID)
	if err != nil {
		return 0, false, err
	}
	average, ok := IntegerAverageCycleLength(records)
	return average, ok, nil
}

func (service *AnalyticsService) PredictNextPeriod(ctx context.Context, patientID string) (*Prediction, error) {
	records, err := service.loadRecords(ctx, patientID)
	if err != nil {
		return nil, err
	}
	prediction, ok := BuildPrediction(records, service.defaultCycleLength, service.Today())
	if !ok {
		return nil, nil
	}
	return prediction, nil
}

func (service *AnalyticsService) RouteNaturalLanguageQuery(ctx context.Context, patientID string, text string) QueryResult {
	records, err := service.loadRecords(ctx, patientID)
	if err != nil {
		return QueryFailure(err)
	}
	return service.router.Route(text, records, service.Today())
}
