package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/terraincognita07/cycleinsight/internal/db"
	"github.com/terraincognita07/cycleinsight/internal/models"
	"github.com/terraincognita07/cycleinsight/internal/services"
	"go.uber.org/zap"
)

type PeriodManager interface {
	AddPeriod(ctx context.Context, input services.AddPeriodInput) (string, error)
	ListPeriods(ctx context.Context, patientID string) ([]models.PeriodRecord, error)
	UpdatePredictions(ctx context.Context, patientID string, recordID string, predictions map[string]any) error
}

type AnalyticsReader interface {
	GetComprehensiveAnalysis(ctx context.Context, patientID string) (services.ComprehensiveAnalysis, error)
	GetAverageCycleLength(ctx context.Context, patientID string) (int, bool, error)
	PredictNextPeriod(ctx context.Context, patientID string) (*services.Prediction, error)
	RouteNaturalLanguageQuery(ctx context.Context, patientID string, text string) services.QueryResult
}

type Handler struct {
	location           *time.Location
	defaultCycleLength int
	logger             *zap.Logger
	validate           *validator.Validate
	readiness          *Readiness
	queryLimiter       *queryLimiter
	now                func() time.Time

	repositories     *db.Repositories
	periodService    PeriodManager
	analyticsService AnalyticsReader
}

type periodEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type addPeriodRequest struct {
	PatientID     string   `json:"patient_id" validate:"required,max=128"`
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	FlowIntensity string   `json:"flow_intensity" validate:"max=32"`
	Symptoms      []string `json:"symptoms" validate:"max=50,dive,max=100"`
	Description   string   `json:"description"`
}

type listPeriodsQuery struct {
	Order string `query:"order" validate:"omitempty,oneof=asc desc"`
}

type naturalLanguageQueryRequest struct {
	PatientID string `json:"patient_id" validate:"required,max=128"`
	Query     string `json:"query" validate:"required,max=500"`
}

type periodView struct {
	ID                  string            `json:"id"`
	PatientID           string            `json:"patient_id"`
	StartDate           services.ISODate  `json:"start_date"`
	EndDate             *services.ISODate `json:"end_date,omitempty"`
	FlowIntensity       string            `json:"flow_intensity"`
	Symptoms            []string          `json:"symptoms"`
	Description         string            `json:"description,omitempty"`
	CycleLengthAtInsert int               `json:"cycle_length_at_insert"`
	EstimatedNextDate   services.ISODate  `json:"estimated_next_date"`
	Predictions         map[string]any    `json:"predictions,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}
