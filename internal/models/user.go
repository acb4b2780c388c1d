package models

import "time"

// APISession backs one issued API token.
type APISession struct {
	SessionID    string    `json:"session_id"`
	Account      string    `json:"account"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}
