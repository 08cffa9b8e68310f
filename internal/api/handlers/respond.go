// Package handlers holds the fiber HTTP handlers of the consultation API.
// Handlers parse and hand off; every authorization and business rule lives in
// the services, and every failure is rendered through the uniform error
// envelope.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"telehealth-consultation-service/internal/domain/apperrors"
)

// renderError writes the uniform {error: {code, message, details}} envelope
// with the fixed code -> status mapping. Errors without a code render as
// INTERNAL_ERROR with a generic message so internals never leak to clients.
func renderError(c *fiber.Ctx, err error) error {
	appErr := apperrors.AsError(err)
	body := fiber.Map{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Code == apperrors.CodeInternal {
		body["message"] = "internal error"
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	return c.Status(apperrors.HTTPStatus(appErr.Code)).JSON(fiber.Map{"error": body})
}

// badRequest renders a VALIDATION_ERROR envelope for malformed input caught
// before the service layer.
func badRequest(c *fiber.Ctx, message string) error {
	return renderError(c, apperrors.New(apperrors.CodeValidation, message))
}
