// Package handlers adapts HTTP requests to the ledger services.
package handlers

import (
	"happyinvest/internal/models"
	"happyinvest/internal/utils/response"
	"happyinvest/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

// bind parses the JSON body into dst and validates it. On failure the error
// response has already been written and the returned error is the one to
// hand back to fiber.
func bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, response.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(dst); err != nil {
		return false, response.ValidationError(c, err.Error())
	}
	return true, nil
}
