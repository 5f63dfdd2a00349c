package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleinsight/internal/services"
	"go.uber.org/zap"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func periodSuccess(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(periodEnvelope{Success: true, Message: message, Data: data})
}

func periodFailure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(periodEnvelope{Success: false, Message: message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidPatientID),
		errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrEndBeforeStart),
		errors.Is(err, services.ErrInvalidFlowIntensity),
		errors.Is(err, services.ErrInvalidPredictions):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrPeriodNotFound), errors.Is(err, services.ErrNoPeriodData):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// serviceFailure logs server-side failures and returns the status and the
// display-safe message for err.
func (handler *Handler) serviceFailure(c *fiber.Ctx, err error) (int, string) {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		handler.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return status, services.DisplayMessage(err)
}

// validationMessage maps the first failed field to the same display text the
// services use for that field.
func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "Invalid request."
	}

	switch field := fieldErrors[0]; field.Field() {
	case "PatientID":
		return services.DisplayMessage(services.ErrInvalidPatientID)
	case "StartDate", "EndDate":
		return services.DisplayMessage(services.ErrInvalidDate)
	case "FlowIntensity":
		return services.DisplayMessage(services.ErrInvalidFlowIntensity)
	default:
		return "Invalid " + strings.ToLower(field.Field()) + " value."
	}
}

func (handler *Handler) patientIDParam(c *fiber.Ctx) (string, error) {
	return services.NormalizePatientID(c.Params("patientID"))
}
