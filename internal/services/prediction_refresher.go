package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
	"go.uber.org/zap"
)

const maxRefreshMarks = 500

type PatientLister interface {
	ListPatientIDs(ctx context.Context) ([]string, error)
}

type PredictionWriter interface {
	UpdatePredictions(ctx context.Context, patientID string, recordID string, predictions map[string]any) error
}

// PredictionRefresher periodically stores the latest prediction on each
// patient's most recent period record.
type PredictionRefresher struct {
	patients           PatientLister
	periods            PeriodReader
	writer             PredictionWriter
	defaultCycleLength int
	location           *time.Location
	interval           time.Duration
	logger             *zap.Logger
	now                func() time.Time

	mu            sync.Mutex
	refreshedOnce map[string]time.Time
}

type PredictionRefresherOptions struct {
	DefaultCycleLength int
	Location           *time.Location
	Interval           time.Duration
	Logger             *zap.Logger
}

func NewPredictionRefresher(patients PatientLister, periods PeriodReader, writer PredictionWriter, options PredictionRefresherOptions) *PredictionRefresher {
	if options.DefaultCycleLength <= 0 {
		options.DefaultCycleLength = models.DefaultCycleLength
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.Interval <= 0 {
		options.Interval = 6 * time.Hour
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	return &PredictionRefresher{
		patients:           patients,
		periods:            periods,
		writer:             writer,
		defaultCycleLength: options.DefaultCycleLength,
		location:           options.Location,
		interval:           options.Interval,
		logger:             options.Logger.Named("refresher"),
		now:                time.Now,
		refreshedOnce:      make(map[string]time.Time),
	}
}

func (refresher *PredictionRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(refresher.interval)
	go func() {
		defer ticker.Stop()

		refresher.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refresher.run(ctx)
			}
		}
	}()
}

func (refresher *PredictionRefresher) run(ctx context.Context) {
	refreshed, err := refresher.RefreshAll(ctx)
	if err != nil {
		refresher.logger.Warn("prediction refresh failed", zap.Error(err))
		return
	}
	refresher.logger.Debug("prediction refresh finished", zap.Int("updated", refreshed))
}

// RefreshAll writes a prediction for every patient that has not already been
// refreshed today. Per-patient failures are logged and skipped.
func (refresher *PredictionRefresher) RefreshAll(ctx context.Context) (int, error) {
	patientIDs, err := refresher.patients.ListPatientIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list patients: %w", err)
	}

	today := DateAtLocation(refresher.now(), refresher.location)
	updated := 0
	for _, patientID := range patientIDs {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		records, err := refresher.periods.ListByPatient(ctx, patientID)
		if err != nil {
			refresher.logger.Warn("fetch periods failed", zap.String("patient_id", patientID), zap.Error(err))
			continue
		}

		latest, ok := lastPeriodRecord(records)
		if !ok {
			continue
		}
		prediction, _ := BuildPrediction(records, refresher.defaultCycleLength, today)

		key := patientID + ":" + latest.ID
		if !refresher.shouldRefresh(key, today) {
			continue
		}

		payload := map[string]any{
			"next_period_date":  prediction.NextPeriodDate.String(),
			"days_until":        prediction.DaysUntil,
			"cycle_length_used": prediction.CycleLengthUsed,
			"generated_on":      FormatISODate(today),
		}
		if err := refresher.writer.UpdatePredictions(ctx, patientID, latest.ID, payload); err != nil {
			refresher.forget(key)
			refresher.logger.Warn("store prediction failed", zap.String("patient_id", patientID), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

func (refresher *PredictionRefresher) shouldRefresh(key string, today time.Time) bool {
	refresher.mu.Lock()
	defer refresher.mu.Unlock()

	if refreshedOn, ok := refresher.refreshedOnce[key]; ok && refreshedOn.Equal(today) {
		return false
	}

	refresher.refreshedOnce[key] = today
	if len(refresher.refreshedOnce) > maxRefreshMarks {
		refresher.refreshedOnce = map[string]time.Time{key: today}
	}
	return true
}

func (refresher *PredictionRefresher) forget(key string) {
	refresher.mu.Lock()
	defer refresher.mu.Unlock()
	delete(refresher.refreshedOnce, key)
}
