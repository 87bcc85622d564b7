package services

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	return dbtest.New(t)
}

type reportSeed struct {
	lat, lon  float64
	district  string
	score     float64
	createdAt time.Time
	status    models.ReviewStatus
}

func seedReport(t *testing.T, db *gorm.DB, seed reportSeed) *models.Report {
	t.Helper()
	if seed.score == 0 {
		seed.score = BaseScore
	}
	if seed.status == "" {
		seed.status = models.ReviewApproved
	}
	lat, lon := seed.lat, seed.lon
	r := &models.Report{
		AuthorID:          uuid.New(),
		Title:             "Phone snatching near bus stop",
		CrimeType:         "theft",
		District:          seed.district,
		Latitude:          &lat,
		Longitude:         &lon,
		VerificationScore: seed.score,
		AdjustedScore:     ClampScore(seed.score),
		ReviewStatus:      seed.status,
		Lifecycle:         models.LifecycleActive,
		CreatedAt:         seed.createdAt,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func seedReports(t *testing.T, db *gorm.DB, n int, seed reportSeed) {
	t.Helper()
	for i := 0; i < n; i++ {
		seedReport(t, db, seed)
	}
}

func reloadReport(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Report {
	t.Helper()
	var r models.Report
	require.NoError(t, db.Where("id = ?", id).First(&r).Error)
	return &r
}

func newActiveReport(t *testing.T, db *gorm.DB) *models.Report {
	t.Helper()
	r := &models.Report{
		AuthorID:          uuid.New(),
		Title:             "Burglary on Road 11",
		VerificationScore: BaseScore,
		AdjustedScore:     BaseScore,
		ReviewStatus:      models.ReviewApproved,
		Lifecycle:         models.LifecycleActive,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}
