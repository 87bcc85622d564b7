package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/identity"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits a request when any of these holds:
// 1. X-Admin-Token matches ADMIN_TOKEN
// 2. the caller's id is listed in ADMIN_USER_IDS
// 3. the token carries role=admin
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			identity.MarkAdmin(c)
			return c.Next()
		}

		userID, err := identity.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if contains(adminUserIDs, userID.String()) || identity.GetRole(c) == identity.RoleAdmin {
			identity.MarkAdmin(c)
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, strings.ToLower(trimmed))
		}
	}
	return result
}

func contains(list []string, val string) bool {
	val = strings.ToLower(val)
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
