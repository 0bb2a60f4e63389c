// Package engine defines the completion upstream the gateway forwards to.
package engine

import (
	"context"

	"solace-api/internal/shared"
)

type EventType int

const (
	// EventDelta carries one text chunk of the response.
	EventDelta EventType = iota
	// EventMetadata carries the model id that actually served the request.
	// It may arrive at any point in the stream once routing has settled.
	EventMetadata
	// EventError means the upstream failed mid-stream. Terminal.
	EventError
	// EventDone marks a clean end of stream. Terminal.
	EventDone
)

type Event struct {
	Type    EventType
	Delta   string
	ModelID string
	Err     error
}

type Request struct {
	Messages     []shared.ChatMessage
	Model        string
	Capabilities []string
	MaxTokens    int
	Temperature  float32
}

// Engine streams a completion. The returned channel is closed after a
// terminal event. Implementations may silently ignore unsupported options;
// a hard capability conflict is reported as shared.ErrCapabilityConflict
// from Complete itself, before any event is emitted.
type Engine interface {
	Complete(ctx context.Context, req Request) (<-chan Event, error)
}
