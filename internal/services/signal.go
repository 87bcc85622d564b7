package services

import (
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
)

// SignalKind identifies which community or automated source changed a
// report's trust inputs.
type SignalKind string

const (
	SignalVote        SignalKind = "vote"
	SignalComment     SignalKind = "comment"
	SignalCommentVote SignalKind = "comment_vote"
	SignalAbuseReport SignalKind = "abuse_report"
	SignalClassifier  SignalKind = "classifier"
)

// Signal describes one mutation of a report's trust inputs. Adjustment is the
// change the mutation contributes to the score formula.
type Signal struct {
	Kind       SignalKind
	ReportID   uuid.UUID
	ActorID    uuid.UUID
	TargetID   uuid.UUID
	Action     string
	Adjustment float64
}

func (s Signal) logAttrs() []any {
	return []any{
		"signal", string(s.Kind),
		"action", s.Action,
		"report_id", s.ReportID.String(),
		"user_id", s.ActorID.String(),
		"target_id", s.TargetID.String(),
		"adjustment", s.Adjustment,
	}
}

// VoteState is the caller's vote after a vote request: "up", "down" or "none".
type VoteState string

const VoteNone VoteState = "none"

// voteAdjustment returns the score change of moving a vote from prev to next
// (either may be empty for "no vote") under the given weights.
func voteAdjustment(prev, next models.VoteDirection, upWeight, downWeight float64) float64 {
	weight := func(d models.VoteDirection) float64 {
		switch d {
		case models.VoteUp:
			return upWeight
		case models.VoteDown:
			return downWeight
		}
		return 0
	}
	return weight(next) - weight(prev)
}
