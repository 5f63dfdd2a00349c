package api

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/terraincognita07/cycleinsight/internal/config"
	"github.com/terraincognita07/cycleinsight/internal/db"
	"github.com/terraincognita07/cycleinsight/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewHandler(database *gorm.DB, cfg config.Config, logger *zap.Logger) (*Handler, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := cfg.Server.Location()
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.Server.Timezone), zap.Error(err))
	}

	handler := &Handler{
		location:           location,
		defaultCycleLength: cfg.Tracking.DefaultCycleLength,
		logger:             logger.Named("api"),
		validate:           validator.New(),
		readiness:          NewReadiness(),
		queryLimiter:       newQueryLimiter(cfg.Query.RatePerMinute, cfg.Query.Burst),
		now:                time.Now,
	}
	return handler.withDependencies(database, cfg), nil
}

func (handler *Handler) withDependencies(database *gorm.DB, cfg config.Config) *Handler {
	handler.repositories = db.NewRepositories(database)
	handler.periodService = services.NewPeriodService(handler.repositories.Periods, cfg.Tracking.DefaultCycleLength, cfg.Tracking.OnInvalidFlow)
	handler.analyticsService = services.NewAnalyticsService(handler.repositories.Periods, cfg.Tracking.DefaultCycleLength, handler.location)
	return handler
}

func (handler *Handler) Readiness() *Readiness {
	return handler.readiness
}

// PredictionRefresher builds a refresher that shares the handler's store and
// period service.
func (handler *Handler) PredictionRefresher(interval time.Duration) *services.PredictionRefresher {
	return services.NewPredictionRefresher(
		handler.repositories.Periods,
		handler.repositories.Periods,
		handler.periodService,
		services.PredictionRefresherOptions{
			DefaultCycleLength: handler.defaultCycleLength,
			Location:           handler.location,
			Interval:           interval,
			Logger:             handler.logger,
		},
	)
}
