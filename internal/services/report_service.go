package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportService is the thin submission/read surface over reports. Scores are
// never written here; see ScoreService.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

type CreateReportInput struct {
	Title       string
	Description string
	CrimeType   string
	District    string
	Latitude    *float64
	Longitude   *float64
}

func (s *ReportService) CreateReport(ctx context.Context, authorID uuid.UUID, in CreateReportInput) (*models.Report, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < 3 || len(title) > 200 {
		return nil, fmt.Errorf("%w: title must be 3-200 characters", ErrInvalidInput)
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}
	if in.Latitude != nil && !geo.ValidCoordinate(*in.Latitude, *in.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	report := &models.Report{
		AuthorID:          authorID,
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		CrimeType:         strings.ToLower(strings.TrimSpace(in.CrimeType)),
		District:          strings.TrimSpace(in.District),
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		VerificationScore: BaseScore,
		AdjustedScore:     BaseScore,
		ReviewStatus:      models.ReviewPending,
		Lifecycle:         models.LifecycleActive,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// GetReport returns a report. Removed reports are only visible when
// includeRemoved is set.
func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID, includeRemoved bool) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	if report.IsRemoved() && !includeRemoved {
		return nil, ErrReportNotFound
	}
	return &report, nil
}

// ListReports returns approved, active reports, newest first.
func (s *ReportService) ListReports(ctx context.Context, district string, page, limit int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("review_status = ? AND lifecycle = ?", models.ReviewApproved, models.LifecycleActive)
	if district != "" {
		query = query.Where("district = ?", district)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reports).Error
	return reports, total, err
}

// ReviewSubmission approves or rejects a pending submission. Only approved
// reports feed zone clustering and zone statistics.
func (s *ReportService) ReviewSubmission(ctx context.Context, id uuid.UUID, status models.ReviewStatus) (*models.Report, error) {
	if status != models.ReviewApproved && status != models.ReviewRejected {
		return nil, ErrInvalidStatus
	}

	var report *models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = lockReport(tx, id)
		if err != nil {
			return err
		}
		if report.ReviewStatus != models.ReviewPending {
			return ErrNotPending
		}
		report.ReviewStatus = status
		return tx.Model(report).Update("review_status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// RestoreReport is the explicit operator action that undoes a moderation
// removal. The moderation rule never does this on its own.
func (s *ReportService) RestoreReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report *models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = lockReport(tx, id)
		if err != nil {
			return err
		}
		if !report.IsRemoved() {
			return ErrNotRemoved
		}
		report.Lifecycle = models.LifecycleActive
		report.RemovedAt = nil
		return tx.Model(report).Updates(map[string]interface{}{
			"lifecycle":  models.LifecycleActive,
			"removed_at": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("report restored by operator", "report_id", id.String())
	return report, nil
}
