package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Health     *handlers.HealthHandler
	Reports    *handlers.ReportHandler
	Engagement *handlers.EngagementHandler
	Zones      *handlers.ZoneHandler
	Location   *handlers.LocationHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP. Location pings carry
	// their own per-user budget below.
	api.Use(limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodPost && c.Path() == "/api/location"
		},
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Public reads
	api.Get("/reports", h.Reports.List)
	api.Get("/reports/:id", h.Reports.Get)
	api.Get("/reports/:id/comments", h.Engagement.ListComments)

	// Community signals (JWT required)
	auth := middleware.JWTProtected(cfg)
	api.Post("/reports", auth, h.Reports.Create)
	api.Post("/reports/:id/vote", auth, h.Engagement.VoteReport)
	api.Post("/reports/:id/comments", auth, h.Engagement.AddComment)
	api.Post("/reports/:id/abuse", auth, h.Engagement.FileAbuseReport)
	api.Delete("/comments/:id", auth, h.Engagement.DeleteComment)
	api.Post("/comments/:id/vote", auth, h.Engagement.VoteComment)

	// Location pings run every few seconds per device, so they are limited
	// per user instead of per IP.
	api.Post("/location", auth, limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, err := identity.GetUserID(c); err == nil {
				return id.String()
			}
			return c.IP()
		},
	}), h.Location.Ping)
	api.Get("/zones", auth, h.Zones.ListActive)

	// Operator panel (JWT + admin)
	admin := api.Group("/admin", auth, middleware.AdminRequired(cfg))
	admin.Put("/reports/:id/review", h.Reports.Review)
	admin.Put("/reports/:id/restore", h.Reports.Restore)
	admin.Post("/reports/:id/classifier", h.Reports.ApplyClassifier)
	admin.Post("/reports/:id/rescore", h.Reports.Rescore)
	admin.Get("/abuse-reports", h.Engagement.ListAbuseReports)
	admin.Put("/abuse-reports/:id", h.Engagement.ReviewAbuseReport)
	admin.Post("/zones", h.Zones.Create)
	admin.Delete("/zones/:id", h.Zones.Deactivate)
	admin.Post("/zones/refresh", h.Zones.RefreshAllStats)
	admin.Post("/zones/cluster", h.Zones.RunClusterer)
	admin.Post("/zones/:id/refresh", h.Zones.RefreshStats)
}
