package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VoteTarget string

const (
	VoteTargetReport  VoteTarget = "report"
	VoteTargetComment VoteTarget = "comment"
)

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Vote is at most one per (user, target). ReportID is the parent report for
// comment votes so score recomputation stays a single-report query.
type Vote struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_target" json:"user_id"`
	TargetType VoteTarget    `gorm:"size:20;not null;uniqueIndex:idx_votes_user_target" json:"target_type"`
	TargetID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_target;index" json:"target_id"`
	ReportID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"report_id"`
	Direction  VoteDirection `gorm:"size:10;not null" json:"direction"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (v *Vote) BeforeCreate(_ *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID  uuid.UUID `gorm:"type:uuid;not null;index" json:"report_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Lifecycle Lifecycle `gorm:"size:20;not null;default:'active';index" json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// AbuseReport is a user flag against a report. Only approved flags count
// toward the report's ReportCount.
type AbuseReport struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_abuse_reporter_report" json:"reporter_id"`
	ReportID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_abuse_reporter_report;index" json:"report_id"`
	Reason     string       `gorm:"size:500;not null" json:"reason"`
	Status     ReviewStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ReviewerID *uuid.UUID   `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewNote string       `gorm:"size:1000" json:"review_note,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (a *AbuseReport) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// ClassifierSignal is one automated classification result applied to a
// report's adjusted score.
type ClassifierSignal struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"report_id"`
	Source     string         `gorm:"size:50;not null" json:"source"`
	Label      string         `gorm:"size:100" json:"label"`
	Confidence float64        `json:"confidence"`
	Adjustment float64        `gorm:"not null" json:"adjustment"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (s *ClassifierSignal) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
