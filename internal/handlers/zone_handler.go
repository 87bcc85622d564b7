package handlers

import (
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ZoneHandler struct {
	zones     *services.ZoneService
	clusterer *services.ClusterService
}

func NewZoneHandler(zones *services.ZoneService, clusterer *services.ClusterService) *ZoneHandler {
	return &ZoneHandler{zones: zones, clusterer: clusterer}
}

func (h *ZoneHandler) ListActive(c *fiber.Ctx) error {
	zones, err := h.zones.ListActive(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Failed to fetch zones")
	}
	return c.JSON(fiber.Map{"zones": zones, "total": len(zones)})
}

func (h *ZoneHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	zone, err := h.zones.Create(c.UserContext(), &models.GeofenceZone{
		Name:         req.Name,
		District:     req.District,
		CenterLat:    req.CenterLat,
		CenterLon:    req.CenterLon,
		RadiusMeters: req.RadiusMeters,
		RiskLevel:    models.RiskLevel(req.RiskLevel),
		Source:       models.ZoneSourceOperator,
	})
	if err != nil {
		return serviceError(c, err, "Failed to create zone")
	}
	return c.Status(fiber.StatusCreated).JSON(zone)
}

func (h *ZoneHandler) Deactivate(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid zone ID")
	}
	if err := h.zones.Deactivate(c.UserContext(), id); err != nil {
		return serviceError(c, err, "Failed to deactivate zone")
	}
	return c.JSON(fiber.Map{"message": "Zone deactivated"})
}

func (h *ZoneHandler) RefreshStats(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid zone ID")
	}
	zone, err := h.zones.UpdateStats(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err, "Failed to refresh zone stats")
	}
	return c.JSON(zone)
}

func (h *ZoneHandler) RefreshAllStats(c *fiber.Ctx) error {
	summary, err := h.zones.RefreshAllStats(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Failed to refresh zone stats")
	}
	return c.JSON(summary)
}

// RunClusterer triggers one clustering pass and returns its summary.
func (h *ZoneHandler) RunClusterer(c *fiber.Ctx) error {
	summary, err := h.clusterer.Run(c.UserContext())
	if err != nil {
		if summary != nil {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"summary": summary,
				"partial": true,
			})
		}
		return serviceError(c, err, "Failed to run zone clustering")
	}
	return c.JSON(summary)
}
