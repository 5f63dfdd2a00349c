package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FlowLight  = "light"
	FlowMedium = "medium"
	FlowHeavy  = "heavy"
)

const DefaultCycleLength = 28

// PeriodRecord is one menstrual period occurrence. CycleLengthAtInsert and
// EstimatedNextDate are snapshots taken on insert and never recomputed.
// Predictions is the only field updated after creation.
type PeriodRecord struct {
	ID                  string     `gorm:"primaryKey;type:varchar(36)"`
	PatientID           string     `gorm:"not null;index:idx_period_records_patient_start"`
	StartDate           time.Time  `gorm:"type:date;not null;index:idx_period_records_patient_start"`
	EndDate             *time.Time `gorm:"type:date"`
	FlowIntensity       string     `gorm:"not null;default:medium"`
	Symptoms            datatypes.JSON
	Description         *string
	CycleLengthAtInsert int       `gorm:"not null"`
	EstimatedNextDate   time.Time `gorm:"type:date;not null"`
	Predictions         datatypes.JSON
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (PeriodRecord) TableName() string {
	return "period_records"
}

func IsValidFlowIntensity(flow string) bool {
	switch flow {
	case FlowLight, FlowMedium, FlowHeavy:
		return true
	default:
		return false
	}
}
