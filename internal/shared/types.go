package shared

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Delta Delta `json:"delta"`
}

type Delta struct {
	Content string `json:"content"`
}

// APIError is the OpenAI-style error envelope returned for every surfaced
// failure. Message must never contain internal detail; the request id lets
// callers correlate with server-side logs.
type APIError struct {
	Message   string `json:"message"`
	Object    string `json:"object"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	Retryable bool   `json:"retryable"`
}

type UserMetadata struct {
	Email     string `json:"email,omitempty"`
	UserID    uint64 `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	StoreData bool   `json:"store_data,omitempty"`
	APIKey    string
}
