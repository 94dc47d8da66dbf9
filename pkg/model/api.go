package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
}

// LegacyResponse is the action-dispatch envelope used by /api/priority_scheduler.
type LegacyResponse struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Result values for LegacyResponse.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)
