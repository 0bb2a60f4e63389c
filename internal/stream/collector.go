// Package stream holds the response-side plumbing for one streamed
// completion: fan-out of the upstream events, transcript accumulation, and
// model-id reconciliation. Everything here is scoped to a single request.
package stream

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"solace-api/internal/database"
	"solace-api/internal/metrics"
)

// Collector accumulates the transcript of one stream and is the single place
// that decides what gets durably saved, regardless of how the client-facing
// stream ended. The transcript is bounded: past the cap chunks are truncated,
// never rejected, and the truncation is flagged exactly once.
type Collector struct {
	mu sync.Mutex

	store     database.Store
	sessionID string
	requestID string
	modelID   string
	cap       int

	buf        strings.Builder
	truncated  bool
	incomplete bool
	reason     string
}

func NewCollector(store database.Store, sessionID, requestID, requestedModel string, charCap int) *Collector {
	return &Collector{
		store:     store,
		sessionID: sessionID,
		requestID: requestID,
		modelID:   requestedModel,
		cap:       charCap,
	}
}

func (c *Collector) Append(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap > 0 && (c.truncated || c.buf.Len() >= c.cap) {
		if !c.truncated {
			c.truncated = true
			metrics.TranscriptTruncations.Inc()
		}
		return
	}
	if c.cap > 0 && c.buf.Len()+len(chunk) > c.cap {
		// Back the cut up to a rune boundary so the stored transcript stays
		// valid UTF-8.
		n := c.cap - c.buf.Len()
		for n > 0 && !utf8.RuneStart(chunk[n]) {
			n--
		}
		chunk = chunk[:n]
		c.truncated = true
		metrics.TranscriptTruncations.Inc()
	}
	c.buf.WriteString(chunk)
}

// SetModelID records the resolved model for the persisted record.
func (c *Collector) SetModelID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelID = id
}

// ModelID reports the model bound for the persisted record.
func (c *Collector) ModelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID
}

// MarkIncomplete tags the eventual commit as a partial transcript. Aborted
// streams still persist whatever was generated.
func (c *Collector) MarkIncomplete(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incomplete = true
	c.reason = reason
}

func (c *Collector) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *Collector) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}

func (c *Collector) Incomplete() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.incomplete, c.reason
}

// Commit writes the accumulated transcript through the store. The caller
// retries at most once on failure; the store's idempotent append makes the
// retry safe.
func (c *Collector) Commit(ctx context.Context) error {
	c.mu.Lock()
	msg := database.Message{
		SessionID:  c.sessionID,
		RequestID:  c.requestID,
		Role:       "assistant",
		Content:    c.buf.String(),
		ModelID:    c.modelID,
		Truncated:  c.truncated,
		Incomplete: c.incomplete,
		CreatedAt:  time.Now(),
	}
	c.mu.Unlock()
	return c.store.AppendMessage(ctx, msg)
}
