package api

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
)

var exportFilenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func buildExportFilename(patientID string, now time.Time, extension string) string {
	safePatient := exportFilenameUnsafe.ReplaceAllString(patientID, "_")
	if safePatient == "" {
		safePatient = "patient"
	}
	return fmt.Sprintf("cycleinsight-%s-%s.%s", safePatient, now.Format("2006-01-02"), extension)
}

func setExportAttachmentHeaders(c *fiber.Ctx, contentType string, filename string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
}
