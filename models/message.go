package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the author of a conversation turn
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// Message represents a single conversation turn
type Message struct {
	ID        uuid.UUID   `json:"id"`
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Streaming bool        `json:"streaming"`
	Timestamp time.Time   `json:"timestamp"`
}

// Mode selects how the law library is attached to a query
type Mode string

const (
	// ModeManual sends exactly the documents the user has activated
	ModeManual Mode = "manual"
	// ModeAutomatic asks the router to pick relevant law documents per query
	ModeAutomatic Mode = "automatic"
)

// Valid reports whether the mode is one of the known values
func (m Mode) Valid() bool {
	return m == ModeManual || m == ModeAutomatic
}
