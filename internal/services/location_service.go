package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ZoneLister supplies active zones in match priority order.
type ZoneLister interface {
	ListActive(ctx context.Context) ([]models.GeofenceZone, error)
}

// LocationMatcher finds the zone a point falls in.
type LocationMatcher struct {
	zones ZoneLister
}

func NewLocationMatcher(zones ZoneLister) *LocationMatcher {
	return &LocationMatcher{zones: zones}
}

// Match returns the first active zone, in risk order, whose radius contains
// the point, or nil when the point is outside every zone.
func (m *LocationMatcher) Match(ctx context.Context, lat, lon float64) (*models.GeofenceZone, error) {
	zones, err := m.zones.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range zones {
		if geo.DistanceMeters(lat, lon, zones[i].CenterLat, zones[i].CenterLon) <= zones[i].RadiusMeters {
			return &zones[i], nil
		}
	}
	return nil, nil
}

// NotificationThrottle limits warnings to one per user and zone per window.
type NotificationThrottle struct {
	db     *gorm.DB
	window time.Duration
	locks  *keyedMutex
	now    func() time.Time
}

func NewNotificationThrottle(db *gorm.DB, window time.Duration) *NotificationThrottle {
	if window <= 0 {
		window = time.Hour
	}
	return &NotificationThrottle{db: db, window: window, locks: newKeyedMutex(), now: time.Now}
}

// ShouldNotify decides whether the user gets a warning for zone and records
// sample with that decision in the same transaction. A nil zone records an
// unmatched sample and returns false. Device timestamps ahead of the server
// clock are pulled back to it, so the window always runs on server time.
func (t *NotificationThrottle) ShouldNotify(ctx context.Context, sample *models.UserLocationSample, zone *models.GeofenceZone) (bool, error) {
	if now := t.now().UTC(); sample.RecordedAt.IsZero() || sample.RecordedAt.After(now) {
		sample.RecordedAt = now
	}

	if zone == nil {
		sample.MatchedZoneID = nil
		sample.NotificationSent = false
		if err := t.db.WithContext(ctx).Create(sample).Error; err != nil {
			return false, fmt.Errorf("record location sample: %w", err)
		}
		return false, nil
	}

	unlock := t.locks.Lock(sample.UserID.String() + ":" + zone.ID.String())
	defer unlock()

	zoneID := zone.ID
	sample.MatchedZoneID = &zoneID
	since := sample.RecordedAt.Add(-t.window)

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recent int64
		if err := tx.Model(&models.UserLocationSample{}).
			Where("user_id = ? AND matched_zone_id = ?", sample.UserID, zoneID).
			Where("notification_sent = ? AND recorded_at > ?", true, since).
			Count(&recent).Error; err != nil {
			return err
		}
		sample.NotificationSent = recent == 0
		return tx.Create(sample).Error
	})
	if err != nil {
		return false, fmt.Errorf("throttle decision: %w", err)
	}
	return sample.NotificationSent, nil
}

// Dispatcher hands a notification to the delivery pipeline.
type Dispatcher interface {
	Dispatch(n notify.Notification) bool
}

// PingResult is returned to the device after a location update.
type PingResult struct {
	SampleID uuid.UUID            `json:"sample_id"`
	Zone     *models.GeofenceZone `json:"zone,omitempty"`
	Warning  *Warning             `json:"warning,omitempty"`
}

type Warning struct {
	ZoneID    uuid.UUID        `json:"zone_id"`
	ZoneName  string           `json:"zone_name"`
	RiskLevel models.RiskLevel `json:"risk_level"`
	Message   string           `json:"message"`
}

// WarningMessage is the text shown when a user approaches a zone.
func WarningMessage(zone *models.GeofenceZone) string {
	return fmt.Sprintf("You are approaching %s, a %s-risk zone.", zone.Name, strings.ToLower(string(zone.RiskLevel)))
}

// LocationService ties matching, throttling and dispatch together for a
// single location update.
type LocationService struct {
	matcher    *LocationMatcher
	throttle   *NotificationThrottle
	dispatcher Dispatcher
	now        func() time.Time
}

func NewLocationService(matcher *LocationMatcher, throttle *NotificationThrottle, dispatcher Dispatcher) *LocationService {
	return &LocationService{matcher: matcher, throttle: throttle, dispatcher: dispatcher, now: time.Now}
}

// Ping records a location update. Failures past coordinate validation are
// logged and produce a result without a warning.
func (s *LocationService) Ping(ctx context.Context, userID uuid.UUID, lat, lon float64, at time.Time) (*PingResult, error) {
	if !geo.ValidCoordinate(lat, lon) {
		return nil, ErrInvalidCoordinates
	}
	if at.IsZero() {
		at = s.now()
	}

	sample := &models.UserLocationSample{
		UserID:     userID,
		Latitude:   lat,
		Longitude:  lon,
		RecordedAt: at.UTC(),
	}

	zone, err := s.matcher.Match(ctx, lat, lon)
	if err != nil {
		slog.Error("zone match failed", "user_id", userID.String(), "error", err)
	}

	notifyUser, err := s.throttle.ShouldNotify(ctx, sample, zone)
	if err != nil {
		slog.Error("location sample not recorded", "user_id", userID.String(), "error", err)
		return &PingResult{}, nil
	}

	result := &PingResult{SampleID: sample.ID, Zone: zone}
	if !notifyUser {
		return result, nil
	}

	warning := &Warning{
		ZoneID:    zone.ID,
		ZoneName:  zone.Name,
		RiskLevel: zone.RiskLevel,
		Message:   WarningMessage(zone),
	}
	result.Warning = warning

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(notify.Notification{
			UserID: userID.String(),
			Title:  "Risk zone nearby",
			Body:   warning.Message,
			Metadata: map[string]string{
				"zone_id":    zone.ID.String(),
				"risk_level": string(zone.RiskLevel),
			},
		})
	}

	slog.Info("zone warning issued",
		"user_id", userID.String(),
		"zone_id", zone.ID.String(),
		"risk_level", string(zone.RiskLevel),
	)
	return result, nil
}
