package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report is a community-submitted crime report.
type Report struct {
	ID                   uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID             uuid.UUID    `gorm:"type:uuid;not null;index" json:"author_id"`
	Title                string       `gorm:"size:200;not null" json:"title"`
	Description          string       `gorm:"type:text" json:"description"`
	CrimeType            string       `gorm:"size:50;index" json:"crime_type"`
	District             string       `gorm:"size:100;index" json:"district"`
	Latitude             *float64     `gorm:"index:idx_reports_coords" json:"latitude,omitempty"`
	Longitude            *float64     `gorm:"index:idx_reports_coords" json:"longitude,omitempty"`
	VerificationScore    float64      `gorm:"not null;default:50" json:"verification_score"`
	ClassifierAdjustment float64      `gorm:"not null;default:0" json:"classifier_adjustment"`
	AdjustedScore        float64      `gorm:"not null;default:50" json:"adjusted_score"`
	ReportCount          int          `gorm:"not null;default:0" json:"report_count"`
	ReviewStatus         ReviewStatus `gorm:"size:20;not null;default:'pending';index" json:"review_status"`
	Lifecycle            Lifecycle    `gorm:"size:20;not null;default:'active';index" json:"lifecycle"`
	RemovedAt            *time.Time   `json:"removed_at,omitempty"`
	CreatedAt            time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

func (r *Report) BeforeCreate(_ *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (r *Report) IsRemoved() bool {
	return r.Lifecycle == LifecycleRemoved
}

func (r *Report) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
