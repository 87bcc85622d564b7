package handlers

import (
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type EngagementHandler struct {
	engagement *services.EngagementService
}

func NewEngagementHandler(engagement *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement}
}

func (h *EngagementHandler) VoteReport(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	reportID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.engagement.VoteReport(c.UserContext(), userID, reportID, models.VoteDirection(req.Direction))
	if err != nil {
		return serviceError(c, err, "Failed to record vote")
	}
	return c.JSON(result)
}

func (h *EngagementHandler) VoteComment(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	commentID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid comment ID")
	}

	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.engagement.VoteComment(c.UserContext(), userID, commentID, models.VoteDirection(req.Direction))
	if err != nil {
		return serviceError(c, err, "Failed to record vote")
	}
	return c.JSON(result)
}

func (h *EngagementHandler) AddComment(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	reportID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, score, err := h.engagement.AddComment(c.UserContext(), userID, reportID, req.Content)
	if err != nil {
		return serviceError(c, err, "Failed to add comment")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"comment": comment,
		"score":   score,
	})
}

func (h *EngagementHandler) ListComments(c *fiber.Ctx) error {
	reportID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}
	limit, offset := pagination(c)

	comments, err := h.engagement.ListComments(c.UserContext(), reportID, limit, offset)
	if err != nil {
		return serviceError(c, err, "Failed to fetch comments")
	}
	return c.JSON(fiber.Map{
		"comments": comments,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *EngagementHandler) DeleteComment(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	commentID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid comment ID")
	}

	score, err := h.engagement.DeleteComment(c.UserContext(), userID, commentID, identity.IsAdmin(c))
	if err != nil {
		return serviceError(c, err, "Failed to delete comment")
	}
	return c.JSON(fiber.Map{"message": "Comment deleted", "score": score})
}

func (h *EngagementHandler) FileAbuseReport(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	reportID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.AbuseReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	abuse, err := h.engagement.FileAbuseReport(c.UserContext(), userID, reportID, req.Reason)
	if err != nil {
		return serviceError(c, err, "Failed to file abuse report")
	}
	return c.Status(fiber.StatusCreated).JSON(abuse)
}

func (h *EngagementHandler) ListAbuseReports(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	status := models.ReviewStatus(c.Query("status", ""))
	if status != "" && !status.Valid() {
		return badRequest(c, "Invalid status filter")
	}

	reports, total, err := h.engagement.ListAbuseReports(c.UserContext(), status, limit, offset)
	if err != nil {
		return serviceError(c, err, "Failed to fetch abuse reports")
	}
	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *EngagementHandler) ReviewAbuseReport(c *fiber.Ctx) error {
	reviewerID, _ := caller(c)
	abuseID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid abuse report ID")
	}

	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	abuse, score, err := h.engagement.ReviewAbuseReport(c.UserContext(), reviewerID, abuseID, models.ReviewStatus(req.Status), req.Note)
	if err != nil {
		return serviceError(c, err, "Failed to review abuse report")
	}
	return c.JSON(fiber.Map{"abuse_report": abuse, "score": score})
}
