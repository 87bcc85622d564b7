package dto

import "time"

type CreateZoneRequest struct {
	Name         string  `json:"name"`
	District     string  `json:"district"`
	CenterLat    float64 `json:"center_lat"`
	CenterLon    float64 `json:"center_lon"`
	RadiusMeters float64 `json:"radius_meters"`
	RiskLevel    string  `json:"risk_level"`
}

type LocationPingRequest struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	RecordedAt *time.Time `json:"recorded_at"`
}
