// Package chat is the streaming gateway in front of the completion upstream.
// It admits a request under two independent throttles, forwards it, streams
// the answer back token by token and, concurrently, accumulates and persists
// the same answer even when the caller goes away mid-stream.
package chat

import (
	"strconv"

	"solace-api/internal/database"
	"solace-api/internal/engine"
	"solace-api/internal/ratelimit"
	"solace-api/internal/setup"
	"solace-api/internal/shared"

	"go.uber.org/zap"
)

type Config struct {
	MaxConcurrent     int
	TranscriptCharCap int
	BodyByteCap       int64
}

func DefaultGatewayConfig() Config {
	return Config{
		MaxConcurrent:     shared.DefaultMaxConcurrent,
		TranscriptCharCap: shared.DefaultTranscriptCharCap,
		BodyByteCap:       shared.DefaultBodyByteCap,
	}
}

type Manager struct {
	Store     database.Store
	Engine    engine.Engine
	Limiter   *ratelimit.Limiter
	Admission *ratelimit.Admission
	Log       *zap.SugaredLogger
	Cfg       Config
}

func NewManager(store database.Store, eng engine.Engine, limiter *ratelimit.Limiter, admission *ratelimit.Admission, log *zap.SugaredLogger, cfg Config) *Manager {
	return &Manager{
		Store:     store,
		Engine:    eng,
		Limiter:   limiter,
		Admission: admission,
		Log:       log,
		Cfg:       cfg,
	}
}

// Request is the inbound chat payload.
type Request struct {
	SessionID    string               `json:"session_id,omitempty"`
	Messages     []shared.ChatMessage `json:"messages"`
	Model        string               `json:"model,omitempty"`
	Capabilities []string             `json:"capabilities,omitempty"`
	Stream       *bool                `json:"stream,omitempty"`
	MaxTokens    int                  `json:"max_tokens,omitempty"`
	Temperature  float32              `json:"temperature,omitempty"`
}

func (r *Request) streaming() bool {
	return r.Stream == nil || *r.Stream
}

// sendError is the single surfaced-error path: translate, log the real cause
// server-side, return the bounded message plus the request id to the caller.
func (m *Manager) sendError(c *setup.Context, err error, retryAfter int) error {
	tr := Translate(err)
	if tr.StatusCode >= 500 {
		c.Log.Errorw("request failed", "error", err)
	} else {
		c.Log.Warnw("request rejected", "error", err)
	}
	if retryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	return c.JSON(tr.StatusCode, shared.APIError{
		Message:   tr.UserMessage,
		Object:    "error",
		Type:      tr.Kind,
		Code:      tr.StatusCode,
		RequestID: "req_" + c.Reqid,
		Retryable: tr.Retryable,
	})
}
