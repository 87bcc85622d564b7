package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Cache     string `json:"cache"`
}

type PageResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Limit int         `json:"limit"`
	Page  int         `json:"page,omitempty"`
}
