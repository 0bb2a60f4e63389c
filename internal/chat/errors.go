package chat

import (
	"context"
	"errors"

	"solace-api/internal/shared"
)

// Translation is what a failure looks like from the caller's side: a bounded
// user-safe message, whether retrying can help, and the HTTP status. The real
// cause stays in the logs.
type Translation struct {
	UserMessage string
	Retryable   bool
	StatusCode  int
	Kind        string
}

// Translate maps an internal failure onto the closed user-facing taxonomy.
// Checks run in priority order; anything unclassified becomes a generic
// non-retryable failure with no internal detail attached.
func Translate(err error) Translation {
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		return Translation{
			UserMessage: "too many requests, slow down",
			Retryable:   true,
			StatusCode:  429,
			Kind:        "RateLimited",
		}
	case errors.Is(err, shared.ErrStreamInProgress):
		return Translation{
			UserMessage: "please wait, you have another response in progress",
			Retryable:   true,
			StatusCode:  429,
			Kind:        "TooManyStreams",
		}
	case errors.Is(err, shared.ErrCapabilityConflict):
		return Translation{
			UserMessage: "retrying without that feature",
			Retryable:   true,
			StatusCode:  409,
			Kind:        "CapabilityConflict",
		}
	case errors.Is(err, shared.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return Translation{
			UserMessage: "service temporarily unavailable",
			Retryable:   true,
			StatusCode:  503,
			Kind:        "UpstreamUnavailable",
		}
	case errors.Is(err, shared.ErrPayloadTooBig):
		return Translation{
			UserMessage: "request body too large",
			Retryable:   false,
			StatusCode:  413,
			Kind:        "BadRequest",
		}
	case errors.Is(err, shared.ErrInvalidRequest):
		return Translation{
			UserMessage: "invalid request body",
			Retryable:   false,
			StatusCode:  400,
			Kind:        "BadRequest",
		}
	case errors.Is(err, shared.ErrSessionDenied):
		return Translation{
			UserMessage: "session does not belong to caller",
			Retryable:   false,
			StatusCode:  403,
			Kind:        "Forbidden",
		}
	case errors.Is(err, shared.ErrUnauthorized),
		errors.Is(err, shared.ErrMissingAuth),
		errors.Is(err, shared.ErrInvalidFormat),
		errors.Is(err, shared.ErrInvalidKeyLen):
		return Translation{
			UserMessage: "unauthorized",
			Retryable:   false,
			StatusCode:  401,
			Kind:        "Unauthorized",
		}
	default:
		return Translation{
			UserMessage: "internal server error",
			Retryable:   false,
			StatusCode:  500,
			Kind:        "InternalError",
		}
	}
}
