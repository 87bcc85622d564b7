package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ClusterWindow       = 90 * 24 * time.Hour
	ClusterMinReports   = 3
	ClusterMaxPerRun    = 20
	ClusterRadiusMeters = 500.0
)

// ClusterSummary is the outcome of one clustering run.
type ClusterSummary struct {
	Created                int         `json:"created"`
	Skipped                int         `json:"skipped"`
	TotalCandidateClusters int         `json:"total_candidate_clusters"`
	CreatedZoneIDs         []uuid.UUID `json:"created_zone_ids"`
}

// Cluster is a group of nearby reports sharing a rounded grid cell and a
// district.
type Cluster struct {
	Key          string
	District     string
	CenterLat    float64
	CenterLon    float64
	Count        int
	AverageScore float64
}

// InitialClusterRisk is the risk level a new cluster zone starts with before
// its first stats refresh.
func InitialClusterRisk(count int) models.RiskLevel {
	switch {
	case count >= 10:
		return models.RiskCritical
	case count >= 7:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

func roundTo2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		// -0.00 and 0.00 are the same cell.
		return 0
	}
	return r
}

// BucketReports groups reports into clusters of at least minSize, largest
// first. Reports without coordinates are ignored.
func BucketReports(reports []models.Report, minSize int) []Cluster {
	type acc struct {
		district       string
		sumLat, sumLon float64
		sumScore       float64
		count          int
	}
	buckets := make(map[string]*acc)
	for _, r := range reports {
		if !r.HasCoordinates() {
			continue
		}
		key := fmt.Sprintf("%.2f|%.2f|%s", roundTo2(*r.Latitude), roundTo2(*r.Longitude), r.District)
		b, ok := buckets[key]
		if !ok {
			b = &acc{district: r.District}
			buckets[key] = b
		}
		b.sumLat += *r.Latitude
		b.sumLon += *r.Longitude
		b.sumScore += r.VerificationScore
		b.count++
	}

	clusters := make([]Cluster, 0, len(buckets))
	for key, b := range buckets {
		if b.count < minSize {
			continue
		}
		n := float64(b.count)
		clusters = append(clusters, Cluster{
			Key:          key,
			District:     b.district,
			CenterLat:    b.sumLat / n,
			CenterLon:    b.sumLon / n,
			Count:        b.count,
			AverageScore: b.sumScore / n,
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Key < clusters[j].Key
	})
	return clusters
}

// ClusterService turns dense groups of recent approved reports into zones.
type ClusterService struct {
	db      *gorm.DB
	zones   *ZoneService
	timeout time.Duration
	now     func() time.Time
}

func NewClusterService(db *gorm.DB, zones *ZoneService, timeout time.Duration) *ClusterService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ClusterService{db: db, zones: zones, timeout: timeout, now: time.Now}
}

// Run performs one clustering pass. Zones created before the timeout fires
// are kept; the summary then reflects the partial run alongside the error.
func (s *ClusterService) Run(ctx context.Context) (*ClusterSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	since := s.now().UTC().Add(-ClusterWindow)
	var reports []models.Report
	if err := s.db.WithContext(ctx).
		Select("id", "district", "latitude", "longitude", "verification_score").
		Where("review_status = ? AND lifecycle = ?", models.ReviewApproved, models.LifecycleActive).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("created_at >= ?", since).
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("load cluster candidates: %w", err)
	}

	clusters := BucketReports(reports, ClusterMinReports)
	summary := &ClusterSummary{TotalCandidateClusters: len(clusters), CreatedZoneIDs: []uuid.UUID{}}
	if len(clusters) > ClusterMaxPerRun {
		clusters = clusters[:ClusterMaxPerRun]
	}

	for _, c := range clusters {
		if err := ctx.Err(); err != nil {
			return summary, s.stopped(summary, err)
		}

		existing, err := s.zones.FindNearExisting(ctx, c.CenterLat, c.CenterLon, SamePlaceMeters)
		if err != nil {
			return summary, s.stopped(summary, err)
		}
		if existing != nil {
			summary.Skipped++
			continue
		}

		zone, err := s.zones.Create(ctx, &models.GeofenceZone{
			Name:         clusterZoneName(c),
			District:     c.District,
			CenterLat:    c.CenterLat,
			CenterLon:    c.CenterLon,
			RadiusMeters: ClusterRadiusMeters,
			RiskLevel:    InitialClusterRisk(c.Count),
			CrimeCount:   c.Count,
			AverageScore: c.AverageScore,
			Source:       models.ZoneSourceCluster,
		})
		if err != nil {
			return summary, s.stopped(summary, err)
		}
		summary.Created++
		summary.CreatedZoneIDs = append(summary.CreatedZoneIDs, zone.ID)
	}

	slog.Info("zone clustering finished",
		"created", summary.Created,
		"skipped", summary.Skipped,
		"total_candidate_clusters", summary.TotalCandidateClusters,
	)
	return summary, nil
}

func (s *ClusterService) stopped(summary *ClusterSummary, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		slog.Warn("zone clustering stopped early",
			"created", summary.Created,
			"skipped", summary.Skipped,
			"error", err,
		)
	}
	return fmt.Errorf("zone clustering: %w", err)
}

func clusterZoneName(c Cluster) string {
	district := strings.TrimSpace(c.District)
	if district == "" {
		return fmt.Sprintf("Hotspot (%.4f, %.4f)", c.CenterLat, c.CenterLon)
	}
	return fmt.Sprintf("%s hotspot (%.4f, %.4f)", district, c.CenterLat, c.CenterLon)
}
