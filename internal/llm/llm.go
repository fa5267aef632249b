// Package llm talks to the language models that write predictions and analyses.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Completer turns a system and user prompt into model text
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Provider names
const (
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
)

var (
	// ErrRateLimited is matched by errors from a model that asked us to slow down
	ErrRateLimited = errors.New("language model rate limit exceeded")
	// ErrQuotaExhausted is matched by errors from a model whose credits ran out
	ErrQuotaExhausted = errors.New("language model quota exhausted")
)

// APIError is a non-success answer from a model endpoint
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Body)
}

// Is lets callers test the status class with errors.Is
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrQuotaExhausted:
		return e.Status == http.StatusPaymentRequired
	}
	return false
}

// Outcome classifies err for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
