package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SamePlaceMeters is the distance under which two zone centers describe the
// same place.
const SamePlaceMeters = 500.0

// riskOrder sorts zones most severe first. Ranking by name would put "low"
// above "high", so the rank is spelled out.
const riskOrder = "CASE risk_level WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC"

// ZoneStats is the aggregate of approved reports inside a zone.
type ZoneStats struct {
	CrimeCount   int
	AverageScore float64
}

// RiskLevel tiers a zone, most severe tier first. A zone without reports has
// no average score, so only the count thresholds apply to it.
func (s ZoneStats) RiskLevel() models.RiskLevel {
	hasScore := s.CrimeCount > 0
	switch {
	case s.CrimeCount >= 20 || (hasScore && s.AverageScore < 40):
		return models.RiskCritical
	case s.CrimeCount >= 10 || (hasScore && s.AverageScore < 50):
		return models.RiskHigh
	case s.CrimeCount >= 5 || (hasScore && s.AverageScore < 60):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// ZoneService is the registry of geofence zones.
type ZoneService struct {
	db           *gorm.DB
	cache        ZoneCache
	group        singleflight.Group
	generation   atomic.Uint64
	statsWorkers int
	now          func() time.Time
}

func NewZoneService(db *gorm.DB, cache ZoneCache) *ZoneService {
	if cache == nil {
		cache = NewMemoryZoneCache(time.Minute)
	}
	return &ZoneService{db: db, cache: cache, statsWorkers: 4, now: time.Now}
}

// Create inserts an active zone.
func (s *ZoneService) Create(ctx context.Context, zone *models.GeofenceZone) (*models.GeofenceZone, error) {
	if !geo.ValidCoordinate(zone.CenterLat, zone.CenterLon) {
		return nil, ErrInvalidCoordinates
	}
	if zone.RadiusMeters <= 0 || math.IsInf(zone.RadiusMeters, 0) || math.IsNaN(zone.RadiusMeters) {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidInput)
	}
	if zone.RiskLevel == "" {
		zone.RiskLevel = models.RiskMedium
	}
	if !zone.RiskLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown risk level %q", ErrInvalidInput, zone.RiskLevel)
	}
	zone.Name = strings.TrimSpace(zone.Name)
	if zone.Name == "" {
		zone.Name = fmt.Sprintf("Zone (%.4f, %.4f)", zone.CenterLat, zone.CenterLon)
	}
	if zone.Source == "" {
		zone.Source = models.ZoneSourceOperator
	}
	zone.IsActive = true

	if err := s.db.WithContext(ctx).Create(zone).Error; err != nil {
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}
	s.invalidate(ctx)

	slog.Info("zone created",
		"zone_id", zone.ID.String(),
		"risk_level", string(zone.RiskLevel),
		"source", zone.Source,
	)
	return zone, nil
}

// ListActive returns active zones ordered by risk level, then crime count,
// both descending. The order decides which zone wins when zones overlap.
func (s *ZoneService) ListActive(ctx context.Context) ([]models.GeofenceZone, error) {
	zones, ok, err := s.cache.Get(ctx)
	if err != nil {
		slog.Warn("zone cache read failed", "error", err)
	} else if ok {
		return zones, nil
	}

	v, err, _ := s.group.Do("active", func() (interface{}, error) {
		gen := s.generation.Load()
		zones, err := s.loadActive(ctx)
		if err != nil {
			return nil, err
		}
		// A write that landed while loading makes this list stale; leave
		// the cache empty for the next reader.
		if s.generation.Load() != gen {
			return zones, nil
		}
		if err := s.cache.Set(ctx, zones); err != nil {
			slog.Warn("zone cache write failed", "error", err)
		}
		return zones, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]models.GeofenceZone)), nil
}

func (s *ZoneService) loadActive(ctx context.Context) ([]models.GeofenceZone, error) {
	var zones []models.GeofenceZone
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order(riskOrder).
		Order("crime_count DESC").
		Order("created_at ASC").
		Find(&zones).Error
	if err != nil {
		return nil, fmt.Errorf("list active zones: %w", err)
	}
	return zones, nil
}

func (s *ZoneService) Get(ctx context.Context, id uuid.UUID) (*models.GeofenceZone, error) {
	var zone models.GeofenceZone
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&zone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrZoneNotFound
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// UpdateStats recomputes a zone's crime count, average score and risk level
// from the approved reports inside its radius.
func (s *ZoneService) UpdateStats(ctx context.Context, id uuid.UUID) (*models.GeofenceZone, error) {
	var zone models.GeofenceZone
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&zone).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrZoneNotFound
		}
		if err != nil {
			return err
		}

		reports, err := approvedReportsWithin(tx, zone.CenterLat, zone.CenterLon, zone.RadiusMeters)
		if err != nil {
			return err
		}
		stats := summarize(reports)
		updatedAt := s.now().UTC()

		zone.CrimeCount = stats.CrimeCount
		zone.AverageScore = stats.AverageScore
		zone.RiskLevel = stats.RiskLevel()
		zone.StatsUpdatedAt = &updatedAt
		return tx.Model(&zone).Updates(map[string]interface{}{
			"crime_count":      zone.CrimeCount,
			"average_score":    zone.AverageScore,
			"risk_level":       zone.RiskLevel,
			"stats_updated_at": updatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &zone, nil
}

// RefreshSummary reports the outcome of a bulk stats refresh.
type RefreshSummary struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// RefreshAllStats runs UpdateStats for every active zone with bounded
// concurrency. Failures are counted and logged; they do not stop the others.
func (s *ZoneService) RefreshAllStats(ctx context.Context) (*RefreshSummary, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.GeofenceZone{}).
		Where("is_active = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list zones for refresh: %w", err)
	}

	results := make([]error, len(ids))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.statsWorkers)
	for i, id := range ids {
		p.Go(func(ctx context.Context) error {
			_, err := s.UpdateStats(ctx, id)
			results[i] = err
			return nil
		})
	}
	_ = p.Wait()

	summary := &RefreshSummary{}
	for i, err := range results {
		if err != nil {
			summary.Failed++
			slog.Error("zone stats refresh failed", "zone_id", ids[i].String(), "error", err)
			continue
		}
		summary.Updated++
	}
	return summary, ctx.Err()
}

// FindNearExisting returns the zone, active or not, whose center is closest
// to the point and within thresholdMeters, or nil. Deactivated zones count so
// the clusterer does not resurrect a hotspot an operator switched off.
func (s *ZoneService) FindNearExisting(ctx context.Context, lat, lon, thresholdMeters float64) (*models.GeofenceZone, error) {
	minLat, maxLat := geo.LatitudeBand(lat, thresholdMeters)

	var candidates []models.GeofenceZone
	if err := s.db.WithContext(ctx).
		Where("center_lat BETWEEN ? AND ?", minLat, maxLat).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("find nearby zones: %w", err)
	}

	var nearest *models.GeofenceZone
	best := math.Inf(1)
	for i := range candidates {
		d := geo.DistanceMeters(lat, lon, candidates[i].CenterLat, candidates[i].CenterLon)
		if d <= thresholdMeters && d < best {
			best = d
			nearest = &candidates[i]
		}
	}
	return nearest, nil
}

// Deactivate stops a zone from matching location pings.
func (s *ZoneService) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.GeofenceZone{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrZoneNotFound
	}
	s.invalidate(ctx)
	return nil
}

func (s *ZoneService) invalidate(ctx context.Context) {
	s.generation.Add(1)
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("zone cache invalidation failed", "error", err)
	}
	s.group.Forget("active")
}

// approvedReportsWithin returns approved, active reports whose coordinates lie
// within radius of the point.
func approvedReportsWithin(tx *gorm.DB, lat, lon, radius float64) ([]models.Report, error) {
	minLat, maxLat := geo.LatitudeBand(lat, radius)

	var candidates []models.Report
	if err := tx.Model(&models.Report{}).
		Select("id", "latitude", "longitude", "verification_score").
		Where("review_status = ? AND lifecycle = ?", models.ReviewApproved, models.LifecycleActive).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("load zone reports: %w", err)
	}

	within := candidates[:0]
	for _, r := range candidates {
		if geo.DistanceMeters(lat, lon, *r.Latitude, *r.Longitude) <= radius {
			within = append(within, r)
		}
	}
	return within, nil
}

func summarize(reports []models.Report) ZoneStats {
	if len(reports) == 0 {
		return ZoneStats{}
	}
	var sum float64
	for _, r := range reports {
		sum += r.VerificationScore
	}
	return ZoneStats{CrimeCount: len(reports), AverageScore: sum / float64(len(reports))}
}
