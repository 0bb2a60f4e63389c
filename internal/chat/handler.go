package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"solace-api/internal/engine"
	"solace-api/internal/metrics"
	"solace-api/internal/ratelimit"
	"solace-api/internal/setup"
	"solace-api/internal/shared"
	"solace-api/internal/stream"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
)

const endpointChat = "chat"

// HandleChat runs the full gateway pipeline for one completion request:
// rate limit, admission, validation, session ownership, upstream call,
// stream fan-out and durable commit.
func (m *Manager) HandleChat(cc echo.Context) error {
	c := cc.(*setup.Context)
	start := time.Now()
	clientKey := c.RealIP()

	res := m.Limiter.Check(clientKey, ratelimit.BucketChat)
	if !res.Allowed {
		metrics.RateLimitedCount.WithLabelValues(string(ratelimit.BucketChat)).Inc()
		return m.sendError(c, fmt.Errorf("%w: client %s", shared.ErrRateLimited, clientKey), res.RetryAfter)
	}

	// Acquired before any expensive work; the deferred release runs on every
	// exit path, including panics unwound by the recover middleware.
	ticket, ok := m.Admission.TryAcquire(clientKey, m.Cfg.MaxConcurrent)
	if !ok {
		metrics.AdmissionDeniedCount.WithLabelValues(endpointChat).Inc()
		return m.sendError(c, fmt.Errorf("%w: client %s", shared.ErrStreamInProgress, clientKey), 0)
	}
	defer ticket.Release()

	req, err := m.decode(c)
	if err != nil {
		return m.sendError(c, err, 0)
	}

	sessionID, err := m.prepareSession(c, req)
	if err != nil {
		return m.sendError(c, err, 0)
	}
	c.Log = c.Log.With("session_id", sessionID)

	if err := m.persistUserMessage(c, sessionID, req); err != nil {
		return m.sendError(c, err, 0)
	}

	model := req.Model
	if model == "" {
		model = shared.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = shared.DefaultMaxTokens
	}

	// Generation runs on its own deadline, detached from the client's
	// context: a disconnect cancels delivery, not generation or persistence.
	engCtx, cancel := context.WithTimeout(context.Background(), shared.DefaultStreamRequestTimeout)
	defer cancel()

	capabilityApplied := len(req.Capabilities) > 0
	events, err := m.Engine.Complete(engCtx, engine.Request{
		Messages:     req.Messages,
		Model:        model,
		Capabilities: req.Capabilities,
		MaxTokens:    maxTokens,
		Temperature:  req.Temperature,
	})
	if errors.Is(err, shared.ErrCapabilityConflict) && capabilityApplied {
		c.Log.Warnw("Capability conflict, retrying without optional capabilities", "error", err)
		capabilityApplied = false
		events, err = m.Engine.Complete(engCtx, engine.Request{
			Messages:    req.Messages,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
		})
	}
	if err != nil {
		metrics.ErrorCount.WithLabelValues(model, endpointChat, "upstream").Inc()
		return m.sendError(c, err, 0)
	}

	collector := stream.NewCollector(m.Store, sessionID, c.Reqid, model, m.Cfg.TranscriptCharCap)

	var commitErr error
	if req.streaming() {
		commitErr = m.streamResponse(c, events, collector, model, sessionID, capabilityApplied, start)
	} else {
		if err := m.bufferedResponse(c, events, collector, model, sessionID, capabilityApplied); err != nil {
			return err
		}
	}

	status := "success"
	if incomplete, _ := collector.Incomplete(); incomplete {
		status = "incomplete"
	} else if commitErr != nil {
		status = "commit_failed"
	}
	metrics.RequestDuration.WithLabelValues(model, endpointChat).Observe(time.Since(start).Seconds())
	metrics.RequestCount.WithLabelValues(model, endpointChat, status).Inc()
	return nil
}

func (m *Manager) decode(c *setup.Context) (*Request, error) {
	// Oversized payloads are rejected before any processing.
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, m.Cfg.BodyByteCap)
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: cap %d bytes", shared.ErrPayloadTooBig, m.Cfg.BodyByteCap)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidRequest, err)
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidRequest, err)
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages required", shared.ErrInvalidRequest)
	}
	for _, msg := range req.Messages {
		if msg.Role == "" || msg.Content == "" {
			return nil, fmt.Errorf("%w: message role and content required", shared.ErrInvalidRequest)
		}
	}
	return &req, nil
}

func (m *Manager) prepareSession(c *setup.Context, req *Request) (string, error) {
	ctx := c.Request().Context()
	if req.SessionID == "" {
		sid, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 28)
		sessionID := "ses_" + sid
		if err := m.Store.CreateSession(ctx, sessionID, c.User.UserID); err != nil {
			return "", fmt.Errorf("failed creating session: %w", err)
		}
		return sessionID, nil
	}

	owned, err := m.Store.VerifyOwnership(ctx, req.SessionID, c.User.UserID)
	if err != nil {
		return "", fmt.Errorf("failed verifying session ownership: %w", err)
	}
	if !owned {
		return "", fmt.Errorf("%w: session %s", shared.ErrSessionDenied, req.SessionID)
	}
	return req.SessionID, nil
}

// persistUserMessage saves the caller's latest message before the stream
// starts, retrying the store once.
func (m *Manager) persistUserMessage(c *setup.Context, sessionID string, req *Request) error {
	last := req.Messages[len(req.Messages)-1]
	return m.commitWithRetry(c, func(ctx context.Context) error {
		return m.Store.AppendMessage(ctx, userMessage(sessionID, c.Reqid, last))
	})
}

// streamResponse delivers SSE to the caller while the collector branch
// drains the same events to durability. Headers are written once, before the
// first chunk; a model resolved later in the stream is surfaced through
// metadata events and governs the persisted record.
func (m *Manager) streamResponse(c *setup.Context, events <-chan engine.Event, collector *stream.Collector, model, sessionID string, capabilityApplied bool, start time.Time) error {
	clientCtx := c.Request().Context()

	h := c.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Request-Id", "req_"+c.Reqid)
	h.Set("X-Session-Id", sessionID)
	h.Set("X-Model-Id", model)
	h.Set("X-Capabilities-Applied", strconv.FormatBool(capabilityApplied))
	c.Response().WriteHeader(http.StatusOK)

	clientCh, collectorCh := stream.Fork(clientCtx.Done(), events)

	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		m.collect(collectorCh, collector, model)
	}()

	// Each branch runs its own resolver over the same ordered events, so
	// client-visible metadata and the persisted record agree without sharing
	// state across goroutines.
	resolver := stream.NewResolver(model)
	ttftRecorded := false
	disconnected := false
	noteDisconnect := func() {
		if disconnected {
			return
		}
		disconnected = true
		c.Log.Warnw("Client disconnected during streaming, continuing to drain upstream")
		metrics.CanceledRequests.WithLabelValues(model, endpointChat).Inc()
	}

	for ev := range clientCh {
		if clientCtx.Err() != nil {
			noteDisconnect()
			continue
		}
		switch ev.Type {
		case engine.EventDelta:
			if !ttftRecorded {
				ttftRecorded = true
				metrics.TimeToFirstToken.WithLabelValues(model, endpointChat).Observe(time.Since(start).Seconds())
			}
			m.writeSSE(c, "", chunkBody(c.Reqid, resolver.ModelID(), ev.Delta))
		case engine.EventMetadata:
			if resolver.Observe(ev.ModelID) {
				m.writeSSE(c, "metadata", map[string]string{"model": resolver.ModelID()})
			}
		case engine.EventError:
			tr := Translate(ev.Err)
			c.Log.Errorw("Upstream error mid-stream", "error", ev.Err)
			m.writeSSE(c, "error", map[string]any{"message": tr.UserMessage, "retryable": tr.Retryable})
		case engine.EventDone:
			m.writeRaw(c, "data: [DONE]\n\n")
		}
	}

	// A disconnect the fork observed before it could deliver another event
	// never surfaces inside the loop above.
	if clientCtx.Err() != nil {
		noteDisconnect()
	}

	<-collectDone

	commitErr := m.commitWithRetry(c, collector.Commit)
	if commitErr != nil {
		// Headers are long gone; all we can do is keep the full cause in the
		// logs for the request id the caller already holds.
		c.Log.Errorw("Failed persisting transcript", "error", commitErr)
		metrics.ErrorCount.WithLabelValues(model, endpointChat, "store_commit").Inc()
	}

	incomplete, reason := collector.Incomplete()
	c.Log.Infow("Request completed",
		"completed", !incomplete,
		"incomplete_reason", reason,
		"canceled", disconnected,
		"truncated", collector.Truncated(),
		"total_ms", time.Since(start).Milliseconds())
	return commitErr
}

// bufferedResponse is the degraded path for callers that cannot consume SSE:
// the whole response is accumulated server-side, persisted, then delivered in
// one JSON body. Slower, still correct.
func (m *Manager) bufferedResponse(c *setup.Context, events <-chan engine.Event, collector *stream.Collector, model, sessionID string, capabilityApplied bool) error {
	m.collect(events, collector, model)

	if err := m.commitWithRetry(c, collector.Commit); err != nil {
		metrics.ErrorCount.WithLabelValues(model, endpointChat, "store_commit").Inc()
		return m.sendError(c, fmt.Errorf("failed persisting transcript: %w", err), 0)
	}

	if incomplete, reason := collector.Incomplete(); incomplete {
		return m.sendError(c, fmt.Errorf("%w: %s", shared.ErrUpstreamUnavailable, reason), 0)
	}

	h := c.Response().Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Request-Id", "req_"+c.Reqid)
	h.Set("X-Session-Id", sessionID)
	h.Set("X-Model-Id", collector.ModelID())
	h.Set("X-Capabilities-Applied", strconv.FormatBool(capabilityApplied))
	return c.JSON(http.StatusOK, completionBody(c.Reqid, collector))
}

// collect drains one event feed into the collector. Runs to the end of the
// feed no matter what the client branch is doing.
func (m *Manager) collect(events <-chan engine.Event, collector *stream.Collector, model string) {
	resolver := stream.NewResolver(model)
	for ev := range events {
		switch ev.Type {
		case engine.EventDelta:
			collector.Append(ev.Delta)
		case engine.EventMetadata:
			if resolver.Observe(ev.ModelID) {
				collector.SetModelID(resolver.ModelID())
			}
		case engine.EventError:
			collector.MarkIncomplete(ev.Err.Error())
		case engine.EventDone:
		}
	}
}

// commitWithRetry runs one store commit, retrying at most once. The store's
// idempotent append makes the retry safe; a second failure is surfaced, not
// swallowed.
func (m *Manager) commitWithRetry(c *setup.Context, commit func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := commit(ctx)
	if err == nil {
		return nil
	}
	metrics.StoreCommitRetries.Inc()
	c.Log.Warnw("Store commit failed, retrying once", "error", err)
	if err = commit(ctx); err != nil {
		return fmt.Errorf("store commit failed after retry: %w", err)
	}
	return nil
}

func (m *Manager) writeSSE(c *setup.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.Log.Errorw("Failed marshaling stream payload", "error", err)
		return
	}
	if event != "" {
		m.writeRaw(c, fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
		return
	}
	m.writeRaw(c, fmt.Sprintf("data: %s\n\n", data))
}

func (m *Manager) writeRaw(c *setup.Context, line string) {
	if _, err := fmt.Fprint(c.Response(), line); err != nil {
		return
	}
	c.Response().Flush()
}

func chunkBody(reqid, model, delta string) shared.Response {
	return shared.Response{
		ID:      "req_" + reqid,
		Object:  "chat.completion.chunk",
		Model:   model,
		Choices: []shared.Choice{{Delta: shared.Delta{Content: delta}}},
	}
}
