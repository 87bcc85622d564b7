package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Score formula weights. Moderation thresholds downstream depend on these
// exact values.
const (
	BaseScore              = 50.0
	WeightUpvote           = 2.0
	WeightDownvote         = -1.0
	WeightComment          = 1.0
	WeightCommentUpvote    = 0.5
	WeightCommentDownvote  = -0.25
	WeightApprovedAbuse    = -5.0
	RemovalAbuseThreshold  = 10
	MinDisplayScore        = 0.0
	MaxDisplayScore        = 100.0
	MaxClassifierMagnitude = 100.0
)

// SignalCounts is the full input of the score formula for one report.
type SignalCounts struct {
	Upvotes              int64
	Downvotes            int64
	Comments             int64
	CommentUpvotes       int64
	CommentDownvotes     int64
	ApprovedAbuseReports int64
}

// Score evaluates the verification score formula. The result is not clamped.
func (c SignalCounts) Score() float64 {
	return BaseScore +
		WeightUpvote*float64(c.Upvotes) +
		WeightDownvote*float64(c.Downvotes) +
		WeightComment*float64(c.Comments) +
		WeightCommentUpvote*float64(c.CommentUpvotes) +
		WeightCommentDownvote*float64(c.CommentDownvotes) +
		WeightApprovedAbuse*float64(c.ApprovedAbuseReports)
}

// ShouldRemove is the moderation rule evaluated on every recompute.
func ShouldRemove(score float64, approvedAbuseReports int64) bool {
	return score <= 0 || approvedAbuseReports >= RemovalAbuseThreshold
}

// ClampScore bounds a display score to [0, 100].
func ClampScore(v float64) float64 {
	return math.Min(MaxDisplayScore, math.Max(MinDisplayScore, v))
}

// ScoreResult is the state written by a recompute.
type ScoreResult struct {
	ReportID      uuid.UUID    `json:"report_id"`
	Score         float64      `json:"verification_score"`
	AdjustedScore float64      `json:"adjusted_score"`
	ReportCount   int          `json:"report_count"`
	Counts        SignalCounts `json:"-"`
	Removed       bool         `json:"removed"`
	JustRemoved   bool         `json:"-"`
}

// ScoreService owns the verification score of reports.
type ScoreService struct {
	db    *gorm.DB
	retry RetryOptions
	now   func() time.Time
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{db: db, retry: DefaultRetryOptions(), now: time.Now}
}

// Recompute derives the report's score from its current signal counts and
// applies the moderation rule in the same write. tx must be the transaction
// that mutated the signal; the report row is locked for the rest of it.
func (s *ScoreService) Recompute(tx *gorm.DB, reportID uuid.UUID) (*ScoreResult, error) {
	report, err := lockReport(tx, reportID)
	if err != nil {
		return nil, err
	}

	counts, err := countSignals(tx, reportID)
	if err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}

	score := counts.Score()
	result := &ScoreResult{
		ReportID:      reportID,
		Score:         score,
		AdjustedScore: ClampScore(score + report.ClassifierAdjustment),
		ReportCount:   int(counts.ApprovedAbuseReports),
		Counts:        counts,
		Removed:       report.IsRemoved(),
	}

	updates := map[string]interface{}{
		"verification_score": result.Score,
		"adjusted_score":     result.AdjustedScore,
		"report_count":       result.ReportCount,
	}
	// Removal is one-way; a removed report keeps its state whatever the score.
	if !report.IsRemoved() && ShouldRemove(score, counts.ApprovedAbuseReports) {
		updates["lifecycle"] = models.LifecycleRemoved
		updates["removed_at"] = s.now().UTC()
		result.Removed = true
		result.JustRemoved = true
	}

	if err := tx.Model(&models.Report{}).Where("id = ?", reportID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("write score: %w", err)
	}
	return result, nil
}

// ClassifierInput is the output of an external content classifier.
type ClassifierInput struct {
	Source     string
	Label      string
	Confidence float64
	Adjustment float64
	Payload    json.RawMessage
}

// ApplyClassifier records a classifier result and rewrites the adjusted score
// as clamp(score + total adjustment, 0, 100). The verification score itself
// and the moderation state are untouched.
func (s *ScoreService) ApplyClassifier(ctx context.Context, reportID uuid.UUID, in ClassifierInput) (*models.Report, error) {
	if math.IsNaN(in.Adjustment) || math.Abs(in.Adjustment) > MaxClassifierMagnitude {
		return nil, fmt.Errorf("%w: adjustment must be within ±%.0f", ErrInvalidInput, MaxClassifierMagnitude)
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "image_classifier"
	}

	var report *models.Report
	err := runInTx(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		var err error
		report, err = lockReport(tx, reportID)
		if err != nil {
			return err
		}

		sig := &models.ClassifierSignal{
			ReportID:   reportID,
			Source:     source,
			Label:      in.Label,
			Confidence: in.Confidence,
			Adjustment: in.Adjustment,
		}
		if len(in.Payload) > 0 {
			sig.Payload = datatypes.JSON(in.Payload)
		}
		if err := tx.Create(sig).Error; err != nil {
			return fmt.Errorf("store classifier signal: %w", err)
		}

		report.ClassifierAdjustment += in.Adjustment
		report.AdjustedScore = ClampScore(report.VerificationScore + report.ClassifierAdjustment)
		return tx.Model(&models.Report{}).Where("id = ?", reportID).Updates(map[string]interface{}{
			"classifier_adjustment": report.ClassifierAdjustment,
			"adjusted_score":        report.AdjustedScore,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("signal applied", Signal{
		Kind:       SignalClassifier,
		ReportID:   reportID,
		Action:     source,
		Adjustment: in.Adjustment,
	}.logAttrs()...)
	return report, nil
}

// lockReport loads a report and holds its row lock for the rest of tx. It is
// the serialization point for every signal mutation on that report.
func lockReport(tx *gorm.DB, reportID uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", reportID).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

type directionCount struct {
	Direction models.VoteDirection
	Total     int64
}

func countSignals(tx *gorm.DB, reportID uuid.UUID) (SignalCounts, error) {
	var counts SignalCounts

	var reportVotes []directionCount
	if err := tx.Model(&models.Vote{}).
		Select("direction, COUNT(*) AS total").
		Where("target_type = ? AND target_id = ?", models.VoteTargetReport, reportID).
		Group("direction").
		Scan(&reportVotes).Error; err != nil {
		return counts, err
	}
	for _, v := range reportVotes {
		switch v.Direction {
		case models.VoteUp:
			counts.Upvotes = v.Total
		case models.VoteDown:
			counts.Downvotes = v.Total
		}
	}

	if err := tx.Model(&models.Comment{}).
		Where("report_id = ? AND lifecycle = ?", reportID, models.LifecycleActive).
		Count(&counts.Comments).Error; err != nil {
		return counts, err
	}

	var commentVotes []directionCount
	if err := tx.Table("votes AS v").
		Select("v.direction AS direction, COUNT(*) AS total").
		Joins("JOIN comments AS c ON c.id = v.target_id").
		Where("v.target_type = ? AND v.report_id = ? AND c.lifecycle = ?",
			models.VoteTargetComment, reportID, models.LifecycleActive).
		Group("v.direction").
		Scan(&commentVotes).Error; err != nil {
		return counts, err
	}
	for _, v := range commentVotes {
		switch v.Direction {
		case models.VoteUp:
			counts.CommentUpvotes = v.Total
		case models.VoteDown:
			counts.CommentDownvotes = v.Total
		}
	}

	if err := tx.Model(&models.AbuseReport{}).
		Where("report_id = ? AND status = ?", reportID, models.ReviewApproved).
		Count(&counts.ApprovedAbuseReports).Error; err != nil {
		return counts, err
	}

	return counts, nil
}

// Refresh recomputes a report's score in its own transaction. Used by
// operators after manual data repair; signal mutations call Recompute inside
// their own transaction instead.
func (s *ScoreService) Refresh(ctx context.Context, reportID uuid.UUID) (*ScoreResult, error) {
	var result *ScoreResult
	err := runInTx(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		var err error
		result, err = s.Recompute(tx, reportID)
		return err
	})
	return result, err
}
