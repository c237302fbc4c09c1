package memory

import (
	"context"
	"time"
)

// Roles a turn can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn stores a single user or assistant conversational turn.
type Turn struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the rolling conversation context, scoped per user.
//
// Append is a no-op for text that is empty after trimming and evicts the
// oldest turns beyond the retention cap atomically with the insert. Recent
// returns up to limit most recent turns in chronological order. Clear drops
// all turns for the user.
type Store interface {
	Append(ctx context.Context, userID int64, role, text string) error
	Recent(ctx context.Context, userID int64, limit int) ([]Turn, error)
	Clear(ctx context.Context, userID int64) error
	Close() error
}
