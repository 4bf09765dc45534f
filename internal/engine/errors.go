package engine

import "fmt"

// UpstreamError describes a failed call to an LLM provider.
type UpstreamError struct {
	Provider   Provider
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstream(p Provider, status int, err error) *UpstreamError {
	return &UpstreamError{Provider: p, StatusCode: status, Message: err.Error(), Err: err}
}

func transportError(p Provider, label string, err error) *UpstreamError {
	return &UpstreamError{
		Provider: p,
		Message:  fmt.Sprintf("%s request failed: %v", label, err),
		Err:      err,
	}
}
