package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClusterService(t *testing.T) (*ClusterService, *ZoneService, func(n int, seed reportSeed)) {
	t.Helper()
	db := newTestDB(t)
	zones := NewZoneService(db, nil)
	return NewClusterService(db, zones, time.Minute), zones, func(n int, seed reportSeed) {
		seedReports(t, db, n, seed)
	}
}

func TestInitialClusterRisk(t *testing.T) {
	assert.Equal(t, models.RiskMedium, InitialClusterRisk(3))
	assert.Equal(t, models.RiskMedium, InitialClusterRisk(6))
	assert.Equal(t, models.RiskHigh, InitialClusterRisk(7))
	assert.Equal(t, models.RiskCritical, InitialClusterRisk(10))
}

func TestBucketReportsGroupsByCellAndDistrict(t *testing.T) {
	mk := func(lat, lon float64, district string) models.Report {
		return models.Report{Latitude: &lat, Longitude: &lon, District: district, VerificationScore: 60}
	}
	reports := []models.Report{
		mk(23.8101, 90.4102, "Mirpur"),
		mk(23.8099, 90.4098, "Mirpur"),
		mk(23.8102, 90.4101, "Mirpur"),
		mk(23.8102, 90.4101, "Pallabi"),
		mk(23.9000, 90.5000, "Uttara"),
		mk(23.9001, 90.5001, "Uttara"),
		{District: "Mirpur"},
	}

	clusters := BucketReports(reports, 2)
	require.Len(t, clusters, 2)
	assert.Equal(t, 3, clusters[0].Count)
	assert.Equal(t, "Mirpur", clusters[0].District)
	assert.InDelta(t, 23.81, clusters[0].CenterLat, 0.001)
	assert.InDelta(t, 60, clusters[0].AverageScore, 1e-9)
	assert.Equal(t, 2, clusters[1].Count)

	assert.Len(t, BucketReports(reports, 3), 1)
}

func TestBucketReportsTreatsNegativeZeroAsZero(t *testing.T) {
	var reports []models.Report
	for _, lat := range []float64{-0.002, -0.001, 0.001, 0.002} {
		lat, lon := lat, 10.0
		reports = append(reports, models.Report{District: "Gulf", Latitude: &lat, Longitude: &lon, VerificationScore: 50})
	}

	clusters := BucketReports(reports, ClusterMinReports)
	require.Len(t, clusters, 1)
	assert.Equal(t, "0.00|10.00|Gulf", clusters[0].Key)
	assert.Equal(t, 4, clusters[0].Count)
}

func TestClusterRunCreatesZones(t *testing.T) {
	svc, zones, seed := newClusterService(t)
	ctx := context.Background()

	seed(10, reportSeed{lat: 23.8103, lon: 90.4125, district: "Mirpur"})
	seed(3, reportSeed{lat: 23.7461, lon: 90.3742, district: "Dhanmondi"})
	seed(2, reportSeed{lat: 23.8759, lon: 90.3795, district: "Uttara"})

	summary, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.TotalCandidateClusters)
	assert.Len(t, summary.CreatedZoneIDs, 2)

	active, err := zones.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, models.RiskCritical, active[0].RiskLevel)
	assert.Equal(t, "Mirpur", active[0].District)
	assert.Equal(t, ClusterRadiusMeters, active[0].RadiusMeters)
	assert.Equal(t, models.ZoneSourceCluster, active[0].Source)
	assert.Equal(t, models.RiskMedium, active[1].RiskLevel)
}

func TestClusterRunIsIdempotent(t *testing.T) {
	svc, _, seed := newClusterService(t)
	ctx := context.Background()
	seed(4, reportSeed{lat: 23.8103, lon: 90.4125, district: "Mirpur"})

	first, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)
}

func TestClusterRunSkipsNearExistingZone(t *testing.T) {
	svc, zones, seed := newClusterService(t)
	ctx := context.Background()
	createZone(t, zones, "Kazipara", 23.81, 90.41, models.RiskMedium, 0)

	seed(3, reportSeed{lat: 23.8105, lon: 90.4105, district: "Mirpur"})

	summary, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
}

func TestClusterRunIgnoresOldAndUnapprovedReports(t *testing.T) {
	svc, _, seed := newClusterService(t)
	old := time.Now().UTC().Add(-ClusterWindow - 24*time.Hour)

	seed(5, reportSeed{lat: 23.8103, lon: 90.4125, district: "Mirpur", createdAt: old})
	seed(5, reportSeed{lat: 23.7461, lon: 90.3742, district: "Dhanmondi", status: models.ReviewPending})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, summary.TotalCandidateClusters)
}

func TestClusterRunCapsZonesPerRun(t *testing.T) {
	svc, _, seed := newClusterService(t)
	ctx := context.Background()

	// 25 hotspots spaced 0.05 degrees apart, far beyond the dedup distance.
	for i := 0; i < 25; i++ {
		seed(3, reportSeed{
			lat:      20 + float64(i)*0.05,
			lon:      90,
			district: fmt.Sprintf("D%02d", i),
		})
	}

	summary, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ClusterMaxPerRun, summary.Created)
	assert.Equal(t, 25, summary.TotalCandidateClusters)

	// The cap applies before dedup, so a rerun re-examines the same top 20.
	summary, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, ClusterMaxPerRun, summary.Skipped)
}

func TestClusterRunStopsOnCancelledContext(t *testing.T) {
	svc, zones, seed := newClusterService(t)
	seed(3, reportSeed{lat: 23.8103, lon: 90.4125, district: "Mirpur"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx)
	require.Error(t, err)

	active, err := zones.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}
