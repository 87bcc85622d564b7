package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("zonectl failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "zonectl",
		Usage: "Operate geofence risk zones",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Minute,
				Usage: "Overall deadline for the command",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "cluster",
				Usage: "Create zones from recent report hotspots",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withZones(ctx, c, func(ctx context.Context, env *env) error {
						summary, err := env.clusterer.Run(ctx)
						if summary != nil {
							printJSON(summary)
						}
						return err
					})
				},
			},
			{
				Name:  "refresh-stats",
				Usage: "Recompute crime count and risk level of active zones",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "zone",
						Usage: "Only refresh this zone id",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withZones(ctx, c, func(ctx context.Context, env *env) error {
						if raw := c.String("zone"); raw != "" {
							id, err := uuid.Parse(raw)
							if err != nil {
								return fmt.Errorf("invalid zone id %q: %w", raw, err)
							}
							zone, err := env.zones.UpdateStats(ctx, id)
							if err != nil {
								return err
							}
							printJSON(zone)
							return nil
						}
						summary, err := env.zones.RefreshAllStats(ctx)
						if summary != nil {
							printJSON(summary)
						}
						return err
					})
				},
			},
			{
				Name:  "list",
				Usage: "Print active zones in match priority order",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withZones(ctx, c, func(ctx context.Context, env *env) error {
						zones, err := env.zones.ListActive(ctx)
						if err != nil {
							return err
						}
						printJSON(zones)
						return nil
					})
				},
			},
			{
				Name:      "deactivate",
				Usage:     "Stop a zone from matching location pings",
				ArgsUsage: "<zone-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := uuid.Parse(c.Args().First())
					if err != nil {
						return fmt.Errorf("invalid zone id %q: %w", c.Args().First(), err)
					}
					return withZones(ctx, c, func(ctx context.Context, env *env) error {
						return env.zones.Deactivate(ctx, id)
					})
				},
			},
		},
	}

	return app.Run(ctx, os.Args)
}

type env struct {
	zones     *services.ZoneService
	clusterer *services.ClusterService
}

// withZones connects to the database and the shared zone cache, so writes
// from the CLI invalidate what running servers have cached.
func withZones(ctx context.Context, c *cli.Command, fn func(ctx context.Context, env *env) error) error {
	cfg := config.Load()
	logging.Setup(cfg.AppEnv)

	if err := database.Connect(cfg); err != nil {
		return err
	}
	defer database.Close()

	var cache services.ZoneCache = services.NewMemoryZoneCache(cfg.ZoneCacheTTL)
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		cache = services.NewRedisZoneCache(rdb, cfg.ZoneCacheTTL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	zones := services.NewZoneService(database.DB, cache)
	return fn(ctx, &env{
		zones:     zones,
		clusterer: services.NewClusterService(database.DB, zones, cfg.ClusterTimeout),
	})
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
