package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"solace-api/internal/shared"

	"github.com/stretchr/testify/assert"
)

func TestTranslate_ClosedTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		message   string
		retryable bool
		status    int
	}{
		{
			name:      "rate limited",
			err:       shared.ErrRateLimited,
			message:   "too many requests, slow down",
			retryable: true,
			status:    429,
		},
		{
			name:      "admission denied",
			err:       shared.ErrStreamInProgress,
			message:   "please wait, you have another response in progress",
			retryable: true,
			status:    429,
		},
		{
			name:      "capability conflict",
			err:       shared.ErrCapabilityConflict,
			message:   "retrying without that feature",
			retryable: true,
			status:    409,
		},
		{
			name:      "upstream unavailable",
			err:       shared.ErrUpstreamUnavailable,
			message:   "service temporarily unavailable",
			retryable: true,
			status:    503,
		},
		{
			name:      "upstream timeout",
			err:       context.DeadlineExceeded,
			message:   "service temporarily unavailable",
			retryable: true,
			status:    503,
		},
		{
			name:      "validation failure",
			err:       shared.ErrInvalidRequest,
			message:   "invalid request body",
			retryable: false,
			status:    400,
		},
		{
			name:      "oversized payload",
			err:       shared.ErrPayloadTooBig,
			message:   "request body too large",
			retryable: false,
			status:    413,
		},
		{
			name:      "auth failure",
			err:       shared.ErrUnauthorized,
			message:   "unauthorized",
			retryable: false,
			status:    401,
		},
		{
			name:      "unclassified",
			err:       errors.New("sql: driver bad connection at 10.1.2.3"),
			message:   "internal server error",
			retryable: false,
			status:    500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Translate(tt.err)
			assert.Equal(t, tt.message, tr.UserMessage)
			assert.Equal(t, tt.retryable, tr.Retryable)
			assert.Equal(t, tt.status, tr.StatusCode)
		})
	}
}

func TestTranslate_SeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("upstream call: %w", fmt.Errorf("%w: client 10.0.0.1", shared.ErrRateLimited))
	tr := Translate(err)
	assert.Equal(t, 429, tr.StatusCode)
	assert.True(t, tr.Retryable)
}

func TestTranslate_NeverLeaksInternalDetail(t *testing.T) {
	err := fmt.Errorf("dial tcp 10.9.8.7:3306: connection refused")
	tr := Translate(err)
	assert.Equal(t, "internal server error", tr.UserMessage)
	assert.NotContains(t, tr.UserMessage, "10.9.8.7")
}
