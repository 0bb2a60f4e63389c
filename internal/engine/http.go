package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"solace-api/internal/shared"

	"go.uber.org/zap"
)

// HTTPEngine talks SSE to an OpenAI-compatible completion backend. One
// pooled http.Client per upstream host.
type HTTPEngine struct {
	BaseURL string
	APIKey  string
	Log     *zap.SugaredLogger

	httpClients  map[string]*http.Client
	clientsMutex sync.RWMutex
}

func NewHTTPEngine(baseURL, apiKey string, log *zap.SugaredLogger) *HTTPEngine {
	return &HTTPEngine{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Log:         log,
		httpClients: make(map[string]*http.Client),
	}
}

func (e *HTTPEngine) getHTTPClient(modelURL string) *http.Client {
	parsedURL, err := url.Parse(modelURL)
	if err != nil {
		e.Log.Warnw("Failed to parse upstream URL, using full URL as key", "url", modelURL, "error", err)
		parsedURL = &url.URL{Host: modelURL}
	}
	host := parsedURL.Host

	e.clientsMutex.RLock()
	if client, exists := e.httpClients[host]; exists {
		e.clientsMutex.RUnlock()
		return client
	}
	e.clientsMutex.RUnlock()

	e.clientsMutex.Lock()
	defer e.clientsMutex.Unlock()

	if client, exists := e.httpClients[host]; exists {
		return client
	}

	tr := &http.Transport{
		Dial: (&net.Dialer{
			Timeout: 2 * time.Second,
		}).Dial,
		TLSHandshakeTimeout: 2 * time.Second,
		DisableKeepAlives:   false,
	}
	client := &http.Client{Transport: tr, Timeout: 10 * time.Minute}

	e.httpClients[host] = client
	e.Log.Infow("Created new HTTP client for host", "host", host)

	return client
}

type completionBody struct {
	Model       string               `json:"model"`
	Messages    []shared.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float32              `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream"`
	Tools       []string             `json:"tools,omitempty"`
}

func (e *HTTPEngine) Complete(ctx context.Context, req Request) (<-chan Event, error) {
	body, err := json.Marshal(completionBody{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
		Tools:       req.Capabilities,
	})
	if err != nil {
		return nil, fmt.Errorf("failed building upstream body: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, "POST", e.BaseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed building upstream request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Connection", "keep-alive")
	if e.APIKey != "" {
		r.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	res, err := e.getHTTPClient(e.BaseURL).Do(r)
	if err != nil {
		e.Log.Warnw("Upstream request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)
	}
	if res.StatusCode == http.StatusConflict {
		_ = res.Body.Close()
		return nil, shared.ErrCapabilityConflict
	}
	if res.StatusCode != http.StatusOK {
		_ = res.Body.Close()
		e.Log.Warnw("Upstream responded with non-200", "status_code", res.StatusCode)
		return nil, fmt.Errorf("%w: upstream status %d", shared.ErrUpstreamUnavailable, res.StatusCode)
	}

	events := make(chan Event)
	go e.scan(ctx, res, events)
	return events, nil
}

// scan reads the SSE body line by line and converts it into gateway events.
// Model ids observed in the payload are surfaced as metadata events whenever
// the value changes; backends that route dynamically settle on the real
// model only after the stream begins.
func (e *HTTPEngine) scan(ctx context.Context, res *http.Response, events chan<- Event) {
	defer close(events)
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			e.Log.Warnw("Failed to close upstream body", "error", closeErr)
		}
	}()

	reader := bufio.NewScanner(res.Body)
	lastModel := ""
	hasDone := false

scanner:
	for reader.Scan() {
		token := reader.Text()
		if token == "" {
			continue
		}
		if !strings.HasPrefix(token, "data: ") {
			continue
		}
		if token == "data: [DONE]" {
			hasDone = true
			break scanner
		}

		var chunk shared.Response
		if err := json.Unmarshal([]byte(strings.TrimPrefix(token, "data: ")), &chunk); err != nil {
			e.Log.Warnw("failed unmarshaling streamed data", "error", err, "token", token)
			continue
		}
		if chunk.Model != "" && chunk.Model != lastModel {
			lastModel = chunk.Model
			events <- Event{Type: EventMetadata, ModelID: chunk.Model}
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				events <- Event{Type: EventDelta, Delta: choice.Delta.Content}
			}
		}
	}

	if err := reader.Err(); err != nil && !errors.Is(err, context.Canceled) {
		e.Log.Errorw("encountered streaming error", "error", err)
		events <- Event{Type: EventError, Err: fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err)}
		return
	}
	if ctx.Err() != nil {
		events <- Event{Type: EventError, Err: ctx.Err()}
		return
	}
	if !hasDone {
		e.Log.Errorw("encountered streaming error - no [DONE] marker")
		events <- Event{Type: EventError, Err: errors.New("stream ended without [DONE] marker")}
		return
	}
	events <- Event{Type: EventDone}
}
