package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngagementService handles every mutation that feeds the verification score:
// votes, comments, comment votes and abuse reports. Each mutation and the
// resulting recompute commit or roll back together.
type EngagementService struct {
	db     *gorm.DB
	scores *ScoreService
	retry  RetryOptions
	now    func() time.Time
}

func NewEngagementService(db *gorm.DB, scores *ScoreService) *EngagementService {
	return &EngagementService{db: db, scores: scores, retry: DefaultRetryOptions(), now: time.Now}
}

// VoteResult is returned by the vote operations.
type VoteResult struct {
	Vote  VoteState    `json:"vote"`
	Score *ScoreResult `json:"score"`
}

type mutation func(tx *gorm.DB, report *models.Report) (Signal, error)

// apply locks the report, runs the mutation and recomputes the score as one
// retried transaction.
func (s *EngagementService) apply(ctx context.Context, reportID uuid.UUID, allowRemoved bool, mutate mutation) (*ScoreResult, error) {
	var (
		result *ScoreResult
		sig    Signal
	)
	err := runInTx(ctx, s.db, s.retry, func(tx *gorm.DB) error {
		report, err := lockReport(tx, reportID)
		if err != nil {
			return err
		}
		if report.IsRemoved() && !allowRemoved {
			return ErrReportNotFound
		}

		sig, err = mutate(tx, report)
		if err != nil {
			return err
		}

		result, err = s.scores.Recompute(tx, reportID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("signal applied", append(sig.logAttrs(), "score", result.Score)...)
	if result.JustRemoved {
		slog.Warn("report removed by moderation",
			"report_id", reportID.String(),
			"score", result.Score,
			"report_count", result.ReportCount,
		)
	}
	return result, nil
}

// VoteReport casts, flips or cancels the user's vote on a report.
func (s *EngagementService) VoteReport(ctx context.Context, userID, reportID uuid.UUID, dir models.VoteDirection) (*VoteResult, error) {
	if !dir.Valid() {
		return nil, ErrInvalidDirection
	}

	var state VoteState
	score, err := s.apply(ctx, reportID, false, func(tx *gorm.DB, _ *models.Report) (Signal, error) {
		var adj float64
		var err error
		state, adj, err = toggleVote(tx, userID, models.VoteTargetReport, reportID, reportID, dir, WeightUpvote, WeightDownvote)
		return Signal{
			Kind:       SignalVote,
			ReportID:   reportID,
			ActorID:    userID,
			TargetID:   reportID,
			Action:     string(state),
			Adjustment: adj,
		}, err
	})
	if err != nil {
		return nil, err
	}
	return &VoteResult{Vote: state, Score: score}, nil
}

// VoteComment casts, flips or cancels the user's vote on a comment and
// recomputes the parent report.
func (s *EngagementService) VoteComment(ctx context.Context, userID, commentID uuid.UUID, dir models.VoteDirection) (*VoteResult, error) {
	if !dir.Valid() {
		return nil, ErrInvalidDirection
	}

	reportID, err := s.commentReportID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	var state VoteState
	score, err := s.apply(ctx, reportID, false, func(tx *gorm.DB, _ *models.Report) (Signal, error) {
		if _, err := activeComment(tx, commentID); err != nil {
			return Signal{}, err
		}
		var adj float64
		var err error
		state, adj, err = toggleVote(tx, userID, models.VoteTargetComment, commentID, reportID, dir, WeightCommentUpvote, WeightCommentDownvote)
		return Signal{
			Kind:       SignalCommentVote,
			ReportID:   reportID,
			ActorID:    userID,
			TargetID:   commentID,
			Action:     string(state),
			Adjustment: adj,
		}, err
	})
	if err != nil {
		return nil, err
	}
	return &VoteResult{Vote: state, Score: score}, nil
}

// toggleVote implements the one-vote-per-target rule: no vote inserts, the
// same direction cancels, the opposite direction flips.
func toggleVote(tx *gorm.DB, userID uuid.UUID, target models.VoteTarget, targetID, reportID uuid.UUID, dir models.VoteDirection, upWeight, downWeight float64) (VoteState, float64, error) {
	var existing models.Vote
	err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		vote := &models.Vote{
			UserID:     userID,
			TargetType: target,
			TargetID:   targetID,
			ReportID:   reportID,
			Direction:  dir,
		}
		if err := tx.Create(vote).Error; err != nil {
			return "", 0, err
		}
		return VoteState(dir), voteAdjustment("", dir, upWeight, downWeight), nil
	case err != nil:
		return "", 0, err
	case existing.Direction == dir:
		if err := tx.Delete(&existing).Error; err != nil {
			return "", 0, err
		}
		return VoteNone, voteAdjustment(dir, "", upWeight, downWeight), nil
	default:
		prev := existing.Direction
		if err := tx.Model(&existing).Update("direction", dir).Error; err != nil {
			return "", 0, err
		}
		return VoteState(dir), voteAdjustment(prev, dir, upWeight, downWeight), nil
	}
}

// AddComment attaches a comment to an active report.
func (s *EngagementService) AddComment(ctx context.Context, userID, reportID uuid.UUID, content string) (*models.Comment, *ScoreResult, error) {
	content = strings.TrimSpace(content)
	if len(content) < 1 || len(content) > 2000 {
		return nil, nil, fmt.Errorf("%w: comment must be 1-2000 characters", ErrInvalidInput)
	}

	var comment *models.Comment
	score, err := s.apply(ctx, reportID, false, func(tx *gorm.DB, _ *models.Report) (Signal, error) {
		comment = &models.Comment{
			ReportID:  reportID,
			AuthorID:  userID,
			Content:   content,
			Lifecycle: models.LifecycleActive,
		}
		if err := tx.Create(comment).Error; err != nil {
			return Signal{}, err
		}
		return Signal{
			Kind:       SignalComment,
			ReportID:   reportID,
			ActorID:    userID,
			TargetID:   comment.ID,
			Action:     "create",
			Adjustment: WeightComment,
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return comment, score, nil
}

// DeleteComment soft-removes a comment. Only its author or an admin may do so.
func (s *EngagementService) DeleteComment(ctx context.Context, actorID, commentID uuid.UUID, isAdmin bool) (*ScoreResult, error) {
	reportID, err := s.commentReportID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, reportID, true, func(tx *gorm.DB, _ *models.Report) (Signal, error) {
		comment, err := activeComment(tx, commentID)
		if err != nil {
			return Signal{}, err
		}
		if comment.AuthorID != actorID && !isAdmin {
			return Signal{}, ErrNotCommentAuthor
		}
		if err := tx.Model(comment).Update("lifecycle", models.LifecycleRemoved).Error; err != nil {
			return Signal{}, err
		}
		return Signal{
			Kind:       SignalComment,
			ReportID:   reportID,
			ActorID:    actorID,
			TargetID:   commentID,
			Action:     "delete",
			Adjustment: -WeightComment,
		}, nil
	})
}

// ListComments returns the active comments of a report, newest first.
func (s *EngagementService) ListComments(ctx context.Context, reportID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("report_id = ? AND lifecycle = ?", reportID, models.LifecycleActive).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

// FileAbuseReport flags a report for review. A user may flag a report once.
func (s *EngagementService) FileAbuseReport(ctx context.Context, reporterID, reportID uuid.UUID, reason string) (*models.AbuseReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 500 {
		return nil, fmt.Errorf("%w: reason must be 1-500 characters", ErrInvalidInput)
	}

	var abuse *models.AbuseReport
	_, err := s.apply(ctx, reportID, false, func(tx *gorm.DB, _ *models.Report) (Signal, error) {
		var count int64
		if err := tx.Model(&models.AbuseReport{}).
			Where("reporter_id = ? AND report_id = ?", reporterID, reportID).
			Count(&count).Error; err != nil {
			return Signal{}, err
		}
		if count > 0 {
			return Signal{}, ErrAlreadyReported
		}

		abuse = &models.AbuseReport{
			ReporterID: reporterID,
			ReportID:   reportID,
			Reason:     reason,
			Status:     models.ReviewPending,
		}
		if err := tx.Create(abuse).Error; err != nil {
			return Signal{}, err
		}
		return Signal{
			Kind:     SignalAbuseReport,
			ReportID: reportID,
			ActorID:  reporterID,
			TargetID: abuse.ID,
			Action:   string(models.ReviewPending),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return abuse, nil
}

// ReviewAbuseReport moves a pending abuse report to approved or rejected.
// Approval counts toward the report's score and may trigger removal.
func (s *EngagementService) ReviewAbuseReport(ctx context.Context, reviewerID, abuseID uuid.UUID, status models.ReviewStatus, note string) (*models.AbuseReport, *ScoreResult, error) {
	if status != models.ReviewApproved && status != models.ReviewRejected {
		return nil, nil, ErrInvalidStatus
	}

	var abuse models.AbuseReport
	if err := s.db.WithContext(ctx).Where("id = ?", abuseID).First(&abuse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAbuseReportNotFound
		}
		return nil, nil, err
	}

	score, err := s.apply(ctx, abuse.ReportID, true, func(tx *gorm.DB, _ *models.Report) (Signal, error) {
		// Re-read under the report lock so two reviewers cannot both act.
		if err := tx.Where("id = ?", abuseID).First(&abuse).Error; err != nil {
			return Signal{}, err
		}
		if abuse.Status != models.ReviewPending {
			return Signal{}, ErrNotPending
		}

		reviewedAt := s.now().UTC()
		abuse.Status = status
		abuse.ReviewerID = &reviewerID
		abuse.ReviewNote = note
		abuse.ReviewedAt = &reviewedAt
		if err := tx.Model(&abuse).Updates(map[string]interface{}{
			"status":      status,
			"reviewer_id": reviewerID,
			"review_note": note,
			"reviewed_at": reviewedAt,
		}).Error; err != nil {
			return Signal{}, err
		}

		sig := Signal{
			Kind:     SignalAbuseReport,
			ReportID: abuse.ReportID,
			ActorID:  reviewerID,
			TargetID: abuse.ID,
			Action:   string(status),
		}
		if status == models.ReviewApproved {
			sig.Adjustment = WeightApprovedAbuse
		}
		return sig, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &abuse, score, nil
}

// ListAbuseReports returns abuse reports for the moderation queue.
func (s *EngagementService) ListAbuseReports(ctx context.Context, status models.ReviewStatus, limit, offset int) ([]models.AbuseReport, int64, error) {
	var reports []models.AbuseReport
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AbuseReport{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *EngagementService) commentReportID(ctx context.Context, commentID uuid.UUID) (uuid.UUID, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Select("id", "report_id").Where("id = ?", commentID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrCommentNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return comment.ReportID, nil
}

func activeComment(tx *gorm.DB, commentID uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	err := tx.Where("id = ? AND lifecycle = ?", commentID, models.LifecycleActive).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
