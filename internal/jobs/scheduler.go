// Package jobs runs periodic zone maintenance inside the server process.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
)

// Clusterer is satisfied by services.ClusterService.
type Clusterer interface {
	Run(ctx context.Context) (*services.ClusterSummary, error)
}

// StatsRefresher is satisfied by services.ZoneService.
type StatsRefresher interface {
	RefreshAllStats(ctx context.Context) (*services.RefreshSummary, error)
}

// Every calls fn on each tick until done is closed. A non-positive interval
// disables the job.
func Every(name string, interval time.Duration, done chan struct{}, fn func(ctx context.Context) error) {
	if interval <= 0 {
		slog.Info("periodic job disabled", "job", name)
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runOnce(name, done, fn)
			case <-done:
				return
			}
		}
	}()
}

func runOnce(name string, done chan struct{}, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	if err := fn(ctx); err != nil {
		slog.Error("periodic job failed", "job", name, "error", err)
		return
	}
	slog.Info("periodic job completed", "job", name, "duration_ms", time.Since(start).Milliseconds())
}

// StartClustering runs the clusterer on interval.
func StartClustering(c Clusterer, interval time.Duration, done chan struct{}) {
	Every("zone_clustering", interval, done, func(ctx context.Context) error {
		_, err := c.Run(ctx)
		return err
	})
}

// StartStatsRefresh recomputes every active zone's stats on interval.
func StartStatsRefresh(r StatsRefresher, interval time.Duration, done chan struct{}) {
	Every("zone_stats_refresh", interval, done, func(ctx context.Context) error {
		_, err := r.RefreshAllStats(ctx)
		return err
	})
}
