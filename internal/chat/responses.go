package chat

import (
	"time"

	"solace-api/internal/database"
	"solace-api/internal/shared"
	"solace-api/internal/stream"
)

func userMessage(sessionID, reqid string, msg shared.ChatMessage) database.Message {
	return database.Message{
		SessionID: sessionID,
		RequestID: reqid,
		Role:      "user",
		Content:   msg.Content,
		CreatedAt: time.Now(),
	}
}

// Completion is the buffered (non-SSE) response body.
type Completion struct {
	ID        string             `json:"id"`
	Object    string             `json:"object"`
	Model     string             `json:"model"`
	Choices   []CompletionChoice `json:"choices"`
	Truncated bool               `json:"truncated,omitempty"`
}

type CompletionChoice struct {
	Message shared.ChatMessage `json:"message"`
}

func completionBody(reqid string, collector *stream.Collector) Completion {
	return Completion{
		ID:     "req_" + reqid,
		Object: "chat.completion",
		Model:  collector.ModelID(),
		Choices: []CompletionChoice{{
			Message: shared.ChatMessage{Role: "assistant", Content: collector.Transcript()},
		}},
		Truncated: collector.Truncated(),
	}
}
