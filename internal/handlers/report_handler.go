package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reports *services.ReportService
	scores  *services.ScoreService
}

func NewReportHandler(reports *services.ReportService, scores *services.ScoreService) *ReportHandler {
	return &ReportHandler{reports: reports, scores: scores}
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	userID, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reports.CreateReport(c.UserContext(), userID, services.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		CrimeType:   req.CrimeType,
		District:    req.District,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		return serviceError(c, err, "Failed to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := pagination(c)

	reports, total, err := h.reports.ListReports(c.UserContext(), c.Query("district"), page, limit)
	if err != nil {
		return serviceError(c, err, "Failed to fetch reports")
	}
	return c.JSON(dto.PageResponse{Items: reports, Total: total, Limit: limit, Page: page})
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	report, err := h.reports.GetReport(c.UserContext(), id, false)
	if err != nil {
		return serviceError(c, err, "Failed to fetch report")
	}
	return c.JSON(report)
}

// Review approves or rejects a pending submission.
func (h *ReportHandler) Review(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.reports.ReviewSubmission(c.UserContext(), id, models.ReviewStatus(req.Status))
	if err != nil {
		return serviceError(c, err, "Failed to review report")
	}
	return c.JSON(report)
}

func (h *ReportHandler) Restore(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	report, err := h.reports.RestoreReport(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err, "Failed to restore report")
	}
	return c.JSON(report)
}

// ApplyClassifier records an automated classifier result for a report.
func (h *ReportHandler) ApplyClassifier(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.ClassifierRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.scores.ApplyClassifier(c.UserContext(), id, services.ClassifierInput{
		Source:     req.Source,
		Label:      req.Label,
		Confidence: req.Confidence,
		Adjustment: req.Adjustment,
		Payload:    req.Payload,
	})
	if err != nil {
		return serviceError(c, err, "Failed to apply classifier result")
	}
	return c.JSON(report)
}

// Rescore recomputes a report's score from its stored signals.
func (h *ReportHandler) Rescore(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	result, err := h.scores.Refresh(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err, "Failed to recompute score")
	}
	return c.JSON(result)
}
