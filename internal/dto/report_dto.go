package dto

import "encoding/json"

type CreateReportRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CrimeType   string   `json:"crime_type"`
	District    string   `json:"district"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type VoteRequest struct {
	Direction string `json:"direction"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type AbuseReportRequest struct {
	Reason string `json:"reason"`
}

type ReviewRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type ClassifierRequest struct {
	Source     string          `json:"source"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Adjustment float64         `json:"adjustment"`
	Payload    json.RawMessage `json:"payload"`
}
