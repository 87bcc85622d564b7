package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db  *gorm.DB
	rdb goredis.UniversalClient
}

// NewHealthHandler builds the health check. rdb may be nil when zones are
// cached in memory.
func NewHealthHandler(db *gorm.DB, rdb goredis.UniversalClient) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	cacheStatus := "memory"
	if h.rdb != nil {
		cacheStatus = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			cacheStatus = "unhealthy: " + err.Error()
		}
	}

	status := "ok"
	if dbStatus != "ok" {
		status = "degraded"
	}
	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Cache:     cacheStatus,
	})
}
