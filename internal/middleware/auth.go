// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"strings"

	"happyinvest/internal/models"
	"happyinvest/internal/utils"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// AuthMiddleware validates bearer tokens and puts the claims on the request context.
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	if secret == "" {
		panic("jwt secret is required")
	}
	return &AuthMiddleware{secret: secret}
}

// Handler checks for:
// - Presence of Authorization header with Bearer token
// - Valid JWT signature
// - Token expiration
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return response.Unauthorized(c)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Unauthorized(c)
	}

	claims, err := utils.ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		log.WithError(err).WithField("path", c.Path()).Debug("token rejected")
		return response.Unauthorized(c)
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// OperatorOnly admits only tokens carrying the operator role.
func OperatorOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return response.Unauthorized(c)
	}
	if !claims.IsOperator() {
		log.WithFields(log.Fields{
			"user_id": claims.UserID,
			"role":    claims.Role,
			"path":    c.Path(),
		}).Warn("operator route denied")
		return response.Forbidden(c)
	}
	return c.Next()
}
