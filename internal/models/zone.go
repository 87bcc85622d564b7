package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels from least to most severe.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

func (r RiskLevel) Valid() bool {
	return r.Rank() > 0
}

const (
	ZoneSourceCluster  = "cluster"
	ZoneSourceOperator = "operator"
)

// GeofenceZone is a circular risk area.
type GeofenceZone struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string     `gorm:"size:200;not null" json:"name"`
	District       string     `gorm:"size:100" json:"district,omitempty"`
	CenterLat      float64    `gorm:"not null;index" json:"center_lat"`
	CenterLon      float64    `gorm:"not null" json:"center_lon"`
	RadiusMeters   float64    `gorm:"not null" json:"radius_meters"`
	RiskLevel      RiskLevel  `gorm:"size:20;not null;index" json:"risk_level"`
	CrimeCount     int        `gorm:"not null;default:0" json:"crime_count"`
	AverageScore   float64    `gorm:"not null;default:0" json:"average_score"`
	IsActive       bool       `gorm:"not null;default:true;index" json:"is_active"`
	Source         string     `gorm:"size:20;not null" json:"source"`
	StatsUpdatedAt *time.Time `json:"stats_updated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (z *GeofenceZone) BeforeCreate(_ *gorm.DB) error {
	assignID(&z.ID)
	return nil
}

// UserLocationSample is the append-only location audit trail, also used as
// notification throttle state.
type UserLocationSample struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_location_user_zone" json:"user_id"`
	Latitude         float64    `gorm:"not null" json:"latitude"`
	Longitude        float64    `gorm:"not null" json:"longitude"`
	RecordedAt       time.Time  `gorm:"not null;index;index:idx_location_user_zone" json:"recorded_at"`
	MatchedZoneID    *uuid.UUID `gorm:"type:uuid;index:idx_location_user_zone" json:"matched_zone_id,omitempty"`
	NotificationSent bool       `gorm:"not null;default:false" json:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (UserLocationSample) TableName() string {
	return "user_location_history"
}

func (s *UserLocationSample) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
