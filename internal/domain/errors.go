package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the
// transport adapters.
type HTTPError interface {
	error
	StatusCode() int
}

// EmptyInputError indicates the caller supplied neither text nor media.
// The exchange never starts.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string   { return "prompt or image is required" }
func (e *EmptyInputError) StatusCode() int { return http.StatusBadRequest }

// ValidationError indicates invalid input on an inbound request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string   { return e.Message }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// BlockedError indicates the provider declined to answer on safety or
// policy grounds. Terminal for the exchange, never retried.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string   { return fmt.Sprintf("request blocked: %s", e.Reason) }
func (e *BlockedError) StatusCode() int { return http.StatusBadRequest }

// ProviderError indicates the provider call itself failed: a non-success
// status, or a payload the relay cannot interpret. Detail carries a
// truncated diagnostic excerpt, never a full provider body.
type ProviderError struct {
	Status int
	Detail string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Detail)
}

// StatusCode surfaces the provider's own status when it is an error code,
// and 502 for structurally invalid payloads.
func (e *ProviderError) StatusCode() int {
	if e.Status >= 400 {
		return e.Status
	}
	return http.StatusBadGateway
}

// ErrIterationLimit is returned when a capability-call chain does not
// resolve within the conversation loop's bound.
var ErrIterationLimit = errors.New("too many capability iterations")
