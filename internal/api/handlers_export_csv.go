package api

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleinsight/internal/models"
	"github.com/terraincognita07/cycleinsight/internal/services"
)

var exportCSVHeaders = []string{
	"Start Date",
	"End Date",
	"Duration Days",
	"Flow",
	"Symptoms",
	"Description",
	"Cycle Length At Insert",
	"Estimated Next Date",
}

func (handler *Handler) ExportPeriodsCSV(c *fiber.Ctx) error {
	patientID, err := handler.patientIDParam(c)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, services.DisplayMessage(err))
	}

	records, err := handler.periodService.ListPeriods(c.UserContext(), patientID)
	if err != nil {
		status, message := handler.serviceFailure(c, err)
		return apiError(c, status, message)
	}
	now := handler.now().In(handler.location)

	var output bytes.Buffer
	writer := csv.NewWriter(&output)
	if err := writer.Write(exportCSVHeaders); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to build export")
	}

	for _, record := range records {
		if err := writer.Write(exportCSVRow(record)); err != nil {
			return apiError(c, fiber.StatusInternalServerError, "failed to build export")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to build export")
	}

	setExportAttachmentHeaders(c, "text/csv", buildExportFilename(patientID, now, "csv"))
	return c.Send(output.Bytes())
}

func exportCSVRow(record models.PeriodRecord) []string {
	endDate := ""
	duration := ""
	if record.EndDate != nil {
		endDate = services.FormatISODate(*record.EndDate)
	}
	if days, ok := services.PeriodDuration(record); ok {
		duration = strconv.Itoa(days)
	}

	description := ""
	if record.Description != nil {
		description = *record.Description
	}

	// Undecodable symptom payloads export as an empty cell.
	symptoms, _ := services.DecodeSymptoms(record)

	return []string{
		services.FormatISODate(record.StartDate),
		endDate,
		duration,
		csvFlowLabel(record.FlowIntensity),
		strings.Join(symptoms, "; "),
		description,
		strconv.Itoa(record.CycleLengthAtInsert),
		services.FormatISODate(record.EstimatedNextDate),
	}
}

func csvFlowLabel(flow string) string {
	switch strings.ToLower(strings.TrimSpace(flow)) {
	case models.FlowLight:
		return "Light"
	case models.FlowMedium:
		return "Medium"
	case models.FlowHeavy:
		return "Heavy"
	default:
		return "Unknown"
	}
}
