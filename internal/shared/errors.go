package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// Sane defaults are listed below. Error codes should be bubbled where the
// RequestError msg is expected to be returned to the user. If the user should
// see a generic error message but the error chain should include more detail
// for logging purposes, then a generic error should be added that provides
// context.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

var (
	ErrMissingAuth   = &RequestError{Err: errors.New("missing authorization header"), StatusCode: 401}
	ErrInvalidFormat = &RequestError{Err: errors.New("invalid authentication format"), StatusCode: 401}
	ErrInvalidKeyLen = &RequestError{Err: errors.New("invalid API key length"), StatusCode: 401}
	ErrUnauthorized  = &RequestError{Err: errors.New("unauthorized"), StatusCode: 401}

	ErrInvalidRequest = &RequestError{Err: errors.New("invalid request body"), StatusCode: 400}
	ErrPayloadTooBig  = &RequestError{Err: errors.New("request body too large"), StatusCode: 413}
	ErrSessionDenied  = &RequestError{Err: errors.New("session does not belong to caller"), StatusCode: 403}

	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500}

	// Throttle errors. Both are retryable from the caller's point of view.
	ErrRateLimited      = &RequestError{Err: errors.New("too many requests, slow down"), StatusCode: 429}
	ErrStreamInProgress = &RequestError{Err: errors.New("please wait, you have another response in progress"), StatusCode: 429}

	// Upstream errors.
	ErrCapabilityConflict  = &RequestError{Err: errors.New("requested capability unavailable"), StatusCode: 409}
	ErrUpstreamUnavailable = &RequestError{Err: errors.New("service temporarily unavailable"), StatusCode: 503}
)
