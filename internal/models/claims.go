package models

import "github.com/golang-jwt/jwt/v5"

// Roles
const (
	RoleUser     = "user"
	RoleOperator = "admin"
)

// UserClaims are the bearer token claims. Tokens are issued by the
// authentication service; this service only verifies them.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsOperator reports whether the token belongs to a back-office operator.
func (c *UserClaims) IsOperator() bool {
	return c.Role == RoleOperator
}
