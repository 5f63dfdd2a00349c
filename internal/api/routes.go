package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/favicon.ico", sendNoContent)
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	api.Post("/periods", handler.AddPeriod)
	api.Post("/query", handler.QueryRateLimit, handler.Query)

	patients := api.Group("/patients/:patientID")
	patients.Get("/periods", handler.ListPeriods)
	patients.Get("/periods/export", handler.ExportPeriodsCSV)
	patients.Put("/periods/:periodID/predictions", handler.UpdatePredictions)
	patients.Get("/predict", handler.PredictNextPeriod)
	patients.Get("/cycle-length", handler.GetAverageCycleLength)
	patients.Get("/analysis", handler.GetComprehensiveAnalysis)
}

func sendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
