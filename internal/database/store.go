// Package database defines the durable session and message store
package database

import (
	"context"
	"time"
)

type Message struct {
	SessionID  string
	RequestID  string
	Role       string
	Content    string
	ModelID    string
	Truncated  bool
	Incomplete bool
	CreatedAt  time.Time
}

// Store is the only component shared across gateway processes. Appends are
// at-least-once: retried commits of the same (RequestID, Role) pair must not
// duplicate rows.
type Store interface {
	AppendMessage(ctx context.Context, msg Message) error
	VerifyOwnership(ctx context.Context, sessionID string, userID uint64) (bool, error)
	CreateSession(ctx context.Context, sessionID string, userID uint64) error
}
