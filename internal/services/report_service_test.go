package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCreateReportStartsPendingAtBaseScore(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	report, err := svc.CreateReport(context.Background(), uuid.New(), CreateReportInput{
		Title:     "Mugging near Farmgate",
		CrimeType: "Robbery",
		District:  "Dhaka",
		Latitude:  ptr(23.7577),
		Longitude: ptr(90.3894),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReviewPending, report.ReviewStatus)
	assert.Equal(t, BaseScore, report.VerificationScore)
	assert.Equal(t, "robbery", report.CrimeType)
	assert.True(t, report.HasCoordinates())
}

func TestCreateReportValidation(t *testing.T) {
	svc := NewReportService(newTestDB(t))
	ctx := context.Background()

	_, err := svc.CreateReport(ctx, uuid.New(), CreateReportInput{Title: "no"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateReport(ctx, uuid.New(), CreateReportInput{Title: "Half a location", Latitude: ptr(23.7)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateReport(ctx, uuid.New(), CreateReportInput{Title: "Off the map", Latitude: ptr(123), Longitude: ptr(90)})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestReviewSubmissionIsOneShot(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewReportService(db)

	report, err := svc.CreateReport(ctx, uuid.New(), CreateReportInput{Title: "Car break-in"})
	require.NoError(t, err)

	approved, err := svc.ReviewSubmission(ctx, report.ID, models.ReviewApproved)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, approved.ReviewStatus)

	_, err = svc.ReviewSubmission(ctx, report.ID, models.ReviewRejected)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListReportsOnlyApprovedActive(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewReportService(db)

	seedReport(t, db, reportSeed{lat: 23.8, lon: 90.4, district: "Dhaka"})
	seedReport(t, db, reportSeed{lat: 23.8, lon: 90.4, district: "Gazipur"})
	seedReport(t, db, reportSeed{lat: 23.8, lon: 90.4, district: "Dhaka", status: models.ReviewPending})
	removed := seedReport(t, db, reportSeed{lat: 23.8, lon: 90.4, district: "Dhaka"})
	require.NoError(t, db.Model(removed).Update("lifecycle", models.LifecycleRemoved).Error)

	all, total, err := svc.ListReports(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	dhaka, total, err := svc.ListReports(ctx, "Dhaka", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, dhaka, 1)

	_, err = svc.GetReport(ctx, removed.ID, false)
	assert.ErrorIs(t, err, ErrReportNotFound)
	got, err := svc.GetReport(ctx, removed.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsRemoved())
}

func TestRestoreReport(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewReportService(db)
	report := newActiveReport(t, db)

	_, err := svc.RestoreReport(ctx, report.ID)
	assert.ErrorIs(t, err, ErrNotRemoved)

	require.NoError(t, db.Model(report).Update("lifecycle", models.LifecycleRemoved).Error)
	restored, err := svc.RestoreReport(ctx, report.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsRemoved())
	assert.False(t, reloadReport(t, db, report.ID).IsRemoved())
}
