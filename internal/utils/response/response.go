package response

import (
	apperrors "happyinvest/internal/errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"error":   message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, apperrors.CodeInvalidRequest, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
}

func Forbidden(c *fiber.Ctx) error {
	return Error(c, fiber.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
}

func ValidationError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, apperrors.CodeInvalidRequest, message)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case apperrors.CodeNotFound:
		return fiber.StatusNotFound
	case apperrors.CodeInsufficientBalance:
		return fiber.StatusUnprocessableEntity
	case apperrors.CodeInvalidAmount, apperrors.CodeInvalidRequest:
		return fiber.StatusBadRequest
	case apperrors.CodeAlreadyProcessed, apperrors.CodeVersionConflict:
		return fiber.StatusConflict
	case apperrors.CodeRateLimited:
		return fiber.StatusTooManyRequests
	case apperrors.CodeTimeDriftDetected:
		return fiber.StatusConflict
	case apperrors.CodeBanned:
		return fiber.StatusForbidden
	default:
		return fiber.StatusServiceUnavailable
	}
}

// FromError writes err as a coded error body. Errors outside the domain
// taxonomy are logged and reported as STORE_UNAVAILABLE.
func FromError(c *fiber.Ctx, err error) error {
	code := apperrors.CodeOf(err)
	status := StatusFor(code)
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
	}
	return Error(c, status, code, apperrors.MessageOf(err))
}
