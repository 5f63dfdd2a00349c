package api

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleinsight/internal/models"
	"github.com/terraincognita07/cycleinsight/internal/services"
)

func (handler *Handler) AddPeriod(c *fiber.Ctx) error {
	request := addPeriodRequest{}
	if err := c.BodyParser(&request); err != nil {
		return periodFailure(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := handler.validate.Struct(request); err != nil {
		return periodFailure(c, fiber.StatusBadRequest, validationMessage(err))
	}

	periodID, err := handler.periodService.AddPeriod(c.UserContext(), services.AddPeriodInput{
		PatientID:     request.PatientID,
		StartDate:     request.StartDate,
		EndDate:       request.EndDate,
		FlowIntensity: request.FlowIntensity,
		Symptoms:      request.Symptoms,
		Description:   request.Description,
	})
	if err != nil {
		status, message := handler.serviceFailure(c, err)
		return periodFailure(c, status, message)
	}

	return periodSuccess(c, fiber.StatusCreated, "Period added successfully.", fiber.Map{"period_id": periodID})
}

func (handler *Handler) ListPeriods(c *fiber.Ctx) error {
	patientID, err := handler.patientIDParam(c)
	if err != nil {
		return periodFailure(c, fiber.StatusBadRequest, services.DisplayMessage(err))
	}
	query := listPeriodsQuery{}
	if err := c.QueryParser(&query); err != nil {
		return periodFailure(c, fiber.StatusBadRequest, "Invalid query parameters.")
	}
	if err := handler.validate.Struct(query); err != nil {
		return periodFailure(c, fiber.StatusBadRequest, "Order must be asc or desc.")
	}

	records, err := handler.periodService.ListPeriods(c.UserContext(), patientID)
	if err != nil {
		status, message := handler.serviceFailure(c, err)
		return periodFailure(c, status, message)
	}

	views := make([]periodView, 0, len(records))
	for _, record := range records {
		views = append(views, buildPeriodView(record))
	}
	if query.Order == "desc" {
		for left, right := 0, len(views)-1; left < right; left, right = left+1, right-1 {
			views[left], views[right] = views[right], views[left]
		}
	}

	return periodSuccess(c, fiber.StatusOK, fmt.Sprintf("Found %d periods.", len(views)), fiber.Map{"periods": views})
}

func (handler *Handler) UpdatePredictions(c *fiber.Ctx) error {
	patientID, err := handler.patientIDParam(c)
	if err != nil {
		return periodFailure(c, fiber.StatusBadRequest, services.DisplayMessage(err))
	}

	predictions := map[string]any{}
	if err := json.Unmarshal(c.Body(), &predictions); err != nil || predictions == nil {
		return periodFailure(c, fiber.StatusBadRequest, services.DisplayMessage(services.ErrInvalidPredictions))
	}

	if err := handler.periodService.UpdatePredictions(c.UserContext(), patientID, c.Params("periodID"), predictions); err != nil {
		status, message := handler.serviceFailure(c, err)
		return periodFailure(c, status, message)
	}
	return periodSuccess(c, fiber.StatusOK, "Predictions updated.", nil)
}

func buildPeriodView(record models.PeriodRecord) periodView {
	view := periodView{
		ID:                  record.ID,
		PatientID:           record.PatientID,
		StartDate:           services.NewISODate(record.StartDate),
		FlowIntensity:       record.FlowIntensity,
		Symptoms:            []string{},
		CycleLengthAtInsert: record.CycleLengthAtInsert,
		EstimatedNextDate:   services.NewISODate(record.EstimatedNextDate),
		CreatedAt:           record.CreatedAt,
	}
	if record.EndDate != nil {
		end := services.NewISODate(*record.EndDate)
		view.EndDate = &end
	}
	if tags, err := services.DecodeSymptoms(record); err == nil && tags != nil {
		view.Symptoms = tags
	}
	if record.Description != nil {
		view.Description = *record.Description
	}
	if len(record.Predictions) > 0 {
		predictions := map[string]any{}
		if err := json.Unmarshal(record.Predictions, &predictions); err == nil && len(predictions) > 0 {
			view.Predictions = predictions
		}
	}
	return view
}
