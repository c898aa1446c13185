package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAnalyticsDisabled = errors.New("analytics disabled")
)

// ErrorKind classifies a failed generation for the HTTP boundary.
type ErrorKind string

const (
	KindBadRequest      ErrorKind = "bad_request"
	KindUpstreamTimeout ErrorKind = "upstream_timeout"
	KindUpstreamLoading ErrorKind = "upstream_loading"
	KindUpstreamFailure ErrorKind = "upstream_failure"
	KindInternalFailure ErrorKind = "internal_failure"
)

// HTTPStatus returns the status code the kind is reported with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUpstreamLoading:
		return http.StatusServiceUnavailable
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GenerationError is the classified error surfaced by the pipeline.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	// Details holds the upstream error body, decoded JSON when possible.
	Details    any
	RetryAfter time.Duration
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewError builds an unwrapped GenerationError.
func NewError(kind ErrorKind, msg string) *GenerationError {
	return &GenerationError{Kind: kind, Message: msg}
}

// WrapError builds a GenerationError around cause.
func WrapError(kind ErrorKind, msg string, cause error) *GenerationError {
	return &GenerationError{Kind: kind, Message: msg, Err: cause}
}

// WithDetails attaches the upstream body and returns the receiver.
func (e *GenerationError) WithDetails(details any) *GenerationError {
	e.Details = details
	return e
}

// AsGenerationError extracts a GenerationError from the chain.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

// KindOf returns the kind of err. Unclassified errors are internal failures
// and a nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if genErr, ok := AsGenerationError(err); ok {
		return genErr.Kind
	}
	return KindInternalFailure
}
