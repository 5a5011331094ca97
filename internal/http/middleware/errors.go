package middleware

import (
	"backend-pameran/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as {success:false, code, message,
// details?}. Causes are logged, never sent.
func ErrorHandler(log *zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := apperror.From(err)

		if appErr.Status >= fiber.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("code", string(appErr.Code)).
				Msg("request failed")
		}

		body := fiber.Map{
			"success": false,
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		return c.Status(appErr.Status).JSON(body)
	}
}
