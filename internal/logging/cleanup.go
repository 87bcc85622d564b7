package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"gorm.io/gorm"
)

// Retention says how long each append-only table keeps rows.
type Retention struct {
	SystemLogs      time.Duration
	LocationHistory time.Duration
}

func DefaultRetention() Retention {
	return Retention{
		SystemLogs:      30 * 24 * time.Hour,
		LocationHistory: 90 * 24 * time.Hour,
	}
}

// Prune deletes rows older than the retention as of now.
func Prune(db *gorm.DB, now time.Time, r Retention) {
	if r.SystemLogs > 0 {
		result := db.Where("timestamp < ?", now.Add(-r.SystemLogs)).Delete(&models.SystemLog{})
		if result.Error != nil {
			slog.Error("log cleanup failed", "error", result.Error)
		} else if result.RowsAffected > 0 {
			slog.Info("log cleanup completed", "deleted", result.RowsAffected)
		}
	}

	if r.LocationHistory > 0 {
		result := db.Where("recorded_at < ?", now.Add(-r.LocationHistory)).Delete(&models.UserLocationSample{})
		if result.Error != nil {
			slog.Error("location history cleanup failed", "error", result.Error)
		} else if result.RowsAffected > 0 {
			slog.Info("location history cleanup completed", "deleted", result.RowsAffected)
		}
	}
}

// StartCleanup runs a daily goroutine that prunes system logs and location
// history.
func StartCleanup(db *gorm.DB, r Retention, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				Prune(db, time.Now().UTC(), r)
			case <-done:
				return
			}
		}
	}()
}
