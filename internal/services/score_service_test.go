package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSignalCountsScore(t *testing.T) {
	tests := []struct {
		name   string
		counts SignalCounts
		want   float64
	}{
		{"base", SignalCounts{}, 50},
		{"votes", SignalCounts{Upvotes: 3, Downvotes: 1}, 55},
		{"comments", SignalCounts{Comments: 2, CommentUpvotes: 4, CommentDownvotes: 4}, 53},
		{"abuse", SignalCounts{Upvotes: 3, ApprovedAbuseReports: 1}, 51},
		{"negative stays unclamped", SignalCounts{ApprovedAbuseReports: 12}, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.counts.Score(), 1e-9)
			assert.Equal(t, tt.counts.Score(), tt.counts.Score())
		})
	}
}

func TestShouldRemoveBoundary(t *testing.T) {
	assert.True(t, ShouldRemove(0, 0))
	assert.False(t, ShouldRemove(0.01, 0))
	assert.False(t, ShouldRemove(80, 9))
	assert.True(t, ShouldRemove(80, 10))
	assert.True(t, ShouldRemove(-3, 0))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-12))
	assert.Equal(t, 100.0, ClampScore(130))
	assert.Equal(t, 42.5, ClampScore(42.5))
}

func TestRecomputeIsPure(t *testing.T) {
	db := newTestDB(t)
	scores := NewScoreService(db)
	engagement := NewEngagementService(db, scores)
	report := newActiveReport(t, db)

	_, err := engagement.VoteReport(context.Background(), uuid.New(), report.ID, models.VoteUp)
	require.NoError(t, err)

	first, err := scores.Refresh(context.Background(), report.ID)
	require.NoError(t, err)
	second, err := scores.Refresh(context.Background(), report.ID)
	require.NoError(t, err)

	assert.Equal(t, 52.0, first.Score)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.AdjustedScore, second.AdjustedScore)
}

func TestRecomputeRemovesAtZero(t *testing.T) {
	db := newTestDB(t)
	scores := NewScoreService(db)
	report := newActiveReport(t, db)

	// 50 downvotes on a fresh report bring the score to exactly 0.
	for i := 0; i < 50; i++ {
		require.NoError(t, db.Create(&models.Vote{
			UserID:     uuid.New(),
			TargetType: models.VoteTargetReport,
			TargetID:   report.ID,
			ReportID:   report.ID,
			Direction:  models.VoteDown,
		}).Error)
	}

	result, err := scores.Refresh(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	assert.True(t, result.Removed)
	assert.True(t, result.JustRemoved)
	assert.True(t, reloadReport(t, db, report.ID).IsRemoved())
}

func TestRemovalIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	scores := NewScoreService(db)
	report := newActiveReport(t, db)
	require.NoError(t, db.Model(report).Update("lifecycle", models.LifecycleRemoved).Error)

	result, err := scores.Refresh(context.Background(), report.ID)
	require.NoError(t, err)

	assert.Equal(t, BaseScore, result.Score)
	assert.True(t, result.Removed)
	assert.False(t, result.JustRemoved)
	assert.True(t, reloadReport(t, db, report.ID).IsRemoved())
}

func TestScoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scores := NewScoreService(db)
	engagement := NewEngagementService(db, scores)
	reviewer := uuid.New()

	report := newActiveReport(t, db)
	assert.Equal(t, BaseScore, report.VerificationScore)

	var last *VoteResult
	for i := 0; i < 3; i++ {
		var err error
		last, err = engagement.VoteReport(ctx, uuid.New(), report.ID, models.VoteUp)
		require.NoError(t, err)
	}
	assert.Equal(t, 56.0, last.Score.Score)

	abuse := make([]*models.AbuseReport, 0, 21)
	for i := 0; i < 21; i++ {
		a, err := engagement.FileAbuseReport(ctx, uuid.New(), report.ID, "misleading location")
		require.NoError(t, err)
		abuse = append(abuse, a)
	}
	// Pending abuse reports do not move the score.
	assert.Equal(t, 56.0, reloadReport(t, db, report.ID).VerificationScore)

	_, result, err := engagement.ReviewAbuseReport(ctx, reviewer, abuse[0].ID, models.ReviewApproved, "")
	require.NoError(t, err)
	assert.Equal(t, 51.0, result.Score)
	assert.False(t, result.Removed)

	for i, a := range abuse[1:] {
		_, result, err = engagement.ReviewAbuseReport(ctx, reviewer, a.ID, models.ReviewApproved, "")
		require.NoError(t, err)
		approved := i + 2
		if approved < RemovalAbuseThreshold {
			assert.False(t, result.Removed, "approved=%d", approved)
		} else {
			assert.True(t, result.Removed, "approved=%d", approved)
		}
	}

	final := reloadReport(t, db, report.ID)
	assert.True(t, final.IsRemoved())
	assert.Equal(t, 21, final.ReportCount)
	assert.Equal(t, 56.0-5*21, final.VerificationScore)
	assert.Equal(t, 0.0, final.AdjustedScore)
	assert.NotNil(t, final.RemovedAt)
}

func TestApplyClassifierClampsAdjustedScore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scores := NewScoreService(db)
	report := newActiveReport(t, db)

	updated, err := scores.ApplyClassifier(ctx, report.ID, ClassifierInput{
		Source:     "image_classifier",
		Label:      "weapon",
		Confidence: 0.93,
		Adjustment: 30,
		Payload:    json.RawMessage(`{"label":"weapon","score":0.93}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, updated.AdjustedScore)

	updated, err = scores.ApplyClassifier(ctx, report.ID, ClassifierInput{Adjustment: 40})
	require.NoError(t, err)
	assert.Equal(t, 70.0, updated.ClassifierAdjustment)
	assert.Equal(t, 100.0, updated.AdjustedScore)

	stored := reloadReport(t, db, report.ID)
	assert.Equal(t, BaseScore, stored.VerificationScore)
	assert.Equal(t, 100.0, stored.AdjustedScore)

	var signals int64
	db.Model(&models.ClassifierSignal{}).Where("report_id = ?", report.ID).Count(&signals)
	assert.EqualValues(t, 2, signals)

	// Recompute keeps the accumulated classifier adjustment.
	result, err := scores.Refresh(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.AdjustedScore)
}

func TestApplyClassifierRejectsOutOfRange(t *testing.T) {
	db := newTestDB(t)
	scores := NewScoreService(db)
	report := newActiveReport(t, db)

	_, err := scores.ApplyClassifier(context.Background(), report.ID, ClassifierInput{Adjustment: 150})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = scores.ApplyClassifier(context.Background(), uuid.New(), ClassifierInput{Adjustment: 5})
	assert.ErrorIs(t, err, ErrNotFound)
}

// The SQLite test database runs on a single connection, so transactions here
// are serialized by the pool. This covers retry and signal counting; the
// FOR UPDATE row lock itself only takes effect on Postgres.
func TestConcurrentVotesProduceExactScore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engagement := NewEngagementService(db, NewScoreService(db))
	report := newActiveReport(t, db)

	const voters = 12
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engagement.VoteReport(ctx, uuid.New(), report.ID, models.VoteUp)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, BaseScore+2*voters, reloadReport(t, db, report.ID).VerificationScore)
}

func TestRunInTxClassifiesConflicts(t *testing.T) {
	db := newTestDB(t)
	opts := DefaultRetryOptions()
	opts.InitialInterval = 0
	opts.MaxInterval = 0

	attempts := 0
	err := runInTx(context.Background(), db, opts, func(*gorm.DB) error {
		attempts++
		return gorm.ErrDuplicatedKey
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int(opts.MaxRetries)+1, attempts)

	attempts = 0
	boom := errors.New("boom")
	err = runInTx(context.Background(), db, opts, func(*gorm.DB) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}
