package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type LocationHandler struct {
	locations *services.LocationService
}

func NewLocationHandler(locations *services.LocationService) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// Ping records the caller's position and returns a warning when they are
// entering a risk zone.
func (h *LocationHandler) Ping(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.LocationPingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return badRequest(c, "latitude and longitude are required")
	}

	var at time.Time
	if req.RecordedAt != nil {
		at = *req.RecordedAt
	}

	result, err := h.locations.Ping(c.UserContext(), userID, *req.Latitude, *req.Longitude, at)
	if err != nil {
		return serviceError(c, err, "Failed to record location")
	}
	return c.JSON(result)
}
