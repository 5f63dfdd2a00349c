package db

import (
	"context"
	"time"

	"github.com/terraincognita07/cycleinsight/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PeriodRepository struct {
	database *gorm.DB
}

func NewPeriodRepository(database *gorm.DB) *PeriodRepository {
	return &PeriodRepository{database: database}
}

// ListByPatient returns a patient's records in insertion order. Callers that
// need chronological order sort by StartDate themselves.
func (repo *PeriodRepository) ListByPatient(ctx context.Context, patientID string) ([]models.PeriodRecord, error) {
	records := make([]models.PeriodRecord, 0)
	if err := repo.database.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *PeriodRepository) ListPatientIDs(ctx context.Context) ([]string, error) {
	patientIDs := make([]string, 0)
	if err := repo.database.WithContext(ctx).
		Model(&models.PeriodRecord{}).
		Distinct("patient_id").
		Order("patient_id ASC").
		Pluck("patient_id", &patientIDs).Error; err != nil {
		return nil, err
	}
	return patientIDs, nil
}

func (repo *PeriodRepository) Create(ctx context.Context, record *models.PeriodRecord) error {
	return repo.database.WithContext(ctx).Create(record).Error
}

// UpdatePredictions writes the predictions side channel of one record. It
// returns gorm.ErrRecordNotFound when the record does not belong to patientID.
func (repo *PeriodRepository) UpdatePredictions(ctx context.Context, patientID string, recordID string, payload datatypes.JSON) error {
	result := repo.database.WithContext(ctx).
		Model(&models.PeriodRecord{}).
		Where("id = ? AND patient_id = ?", recordID, patientID).
		Updates(map[string]any{
			"predictions": payload,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
