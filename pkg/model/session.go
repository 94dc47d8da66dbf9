package model

import "time"

// Session owns one process set and its schedule history.
type Session struct {
	ID        string    `json:"id"`
	Policy    Policy    `json:"policy"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run is a persisted schedule computation.
type Run struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Schedule  *Schedule `json:"schedule"`
	CreatedAt time.Time `json:"created_at"`
}
