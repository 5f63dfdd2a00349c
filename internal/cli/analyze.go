package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/terraincognita07/cycleinsight/internal/config"
	"github.com/terraincognita07/cycleinsight/internal/db"
	"github.com/terraincognita07/cycleinsight/internal/services"
	"go.uber.org/zap"
)

// RunAnalyzeCommand prints the comprehensive analysis for one patient as
// indented JSON.
func RunAnalyzeCommand(ctx context.Context, cfg config.Config, patientID string, out io.Writer, logger *zap.Logger) error {
	if strings.TrimSpace(patientID) == "" {
		return errors.New("patient id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	database, err := db.OpenDatabase(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	location, err := cfg.Server.Location()
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.Server.Timezone))
	}

	repositories := db.NewRepositories(database)
	analytics := services.NewAnalyticsService(repositories.Periods, cfg.Tracking.DefaultCycleLength, location)
	return writeAnalysis(ctx, analytics, patientID, out)
}

type comprehensiveAnalyzer interface {
	GetComprehensiveAnalysis(ctx context.Context, patientID string) (services.ComprehensiveAnalysis, error)
}

func writeAnalysis(ctx context.Context, analytics comprehensiveAnalyzer, patientID string, out io.Writer) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	analysis, err := analytics.GetComprehensiveAnalysis(ctx, patientID)
	if errors.Is(err, services.ErrNoPeriodData) {
		return encoder.Encode(map[string]string{"error": services.NoPeriodDataMessage})
	}
	if err != nil {
		return fmt.Errorf("analyze patient %s: %w", patientID, err)
	}
	return encoder.Encode(analysis)
}
