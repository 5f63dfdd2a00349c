package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleinsight/internal/services"
)

func (handler *Handler) PredictNextPeriod(c *fiber.Ctx) error {
	patientID, err := handler.patientIDParam(c)
	if err != nil {
		return periodFailure(c, fiber.StatusBadRequest, services.DisplayMessage(err))
	}

	prediction, err := handler.analyticsService.PredictNextPeriod(c.UserContext(), patientID)
	if err != nil {
		status, message := handler.serviceFailure(c, err)
		return periodFailure(c, status, message)
	}
	if prediction == nil {
		return periodFailure(c, fiber.StatusOK, "No period data available to predict your next period.")
	}
	return periodSuccess(c, fiber.StatusOK, services.DescribePrediction(prediction), prediction)
}

func (handler *Handler) GetAverageCycleLength(c *fiber.Ctx) error {
	patientID, err := handler.patientIDParam(c)
	if err != nil {
		return periodFailure(c, fiber.StatusBadRequest, services.DisplayMessage(err))
	}

	average, ok, err := handler.analyticsService.GetAverageCycleLength(c.UserContext(), patientID)
	if err != nil {
		status, message := handler.serviceFailure(c, err)
		return periodFailure(c, status, message)
	}
	if !ok {
		return periodFailure(c, fiber.StatusOK, "At least 2 recorded periods are needed to calculate an average cycle length.")
	}
	return periodSuccess(c, fiber.StatusOK, fmt.Sprintf("Average cycle length is %d days.", average), fiber.Map{"average_cycle_length": average})
}

func (handler *Handler) GetComprehensiveAnalysis(c *fiber.Ctx) error {
	patientID, err := handler.patientIDParam(c)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, services.DisplayMessage(err))
	}

	analysis, err := handler.analyticsService.GetComprehensiveAnalysis(c.UserContext(), patientID)
	if errors.Is(err, services.ErrNoPeriodData) {
		return apiError(c, fiber.StatusNotFound, services.NoPeriodDataMessage)
	}
	if err != nil {
		status, message := handler.serviceFailure(c, err)
		return apiError(c, status, message)
	}
	return c.JSON(analysis)
}

func (handler *Handler) Query(c *fiber.Ctx) error {
	request, ok := c.Locals(queryRequestLocalKey).(naturalLanguageQueryRequest)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "Invalid request body.")
	}

	result := handler.analyticsService.RouteNaturalLanguageQuery(c.UserContext(), request.PatientID, request.Query)
	return c.JSON(result)
}
