// Package identity reads the caller's identity from verified JWT claims.
package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"

	userIDKey = "user_id"
	roleKey   = "role"
)

var ErrNoIdentity = errors.New("no identity in request")

func claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return mc, nil
}

// Resolve parses the "sub" and "role" claims and stores them on the request.
func Resolve(c *fiber.Ctx) (uuid.UUID, error) {
	mc, err := claims(c)
	if err != nil {
		return uuid.Nil, err
	}

	sub, ok := mc["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, err
	}

	role, _ := mc["role"].(string)
	c.Locals(userIDKey, userID)
	c.Locals(roleKey, role)
	return userID, nil
}

// GetUserID returns the caller's user id.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	if id, ok := c.Locals(userIDKey).(uuid.UUID); ok {
		return id, nil
	}
	if _, ok := c.Locals("user").(*jwt.Token); !ok {
		return uuid.Nil, ErrNoIdentity
	}
	return Resolve(c)
}

func GetRole(c *fiber.Ctx) string {
	if role, ok := c.Locals(roleKey).(string); ok {
		return role
	}
	mc, err := claims(c)
	if err != nil {
		return ""
	}
	role, _ := mc["role"].(string)
	return role
}

// IsAdmin reports whether the caller carries the admin role claim or was
// let through by the admin middleware.
func IsAdmin(c *fiber.Ctx) bool {
	if admin, ok := c.Locals("is_admin").(bool); ok && admin {
		return true
	}
	return GetRole(c) == RoleAdmin
}

// MarkAdmin records that the admin middleware accepted the request.
func MarkAdmin(c *fiber.Ctx) {
	c.Locals("is_admin", true)
}
