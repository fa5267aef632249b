package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := NewGateway(GatewayConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "secret",
		Model:   "google/gemini-2.5-flash",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return g
}

func TestGateway_Complete(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "google/gemini-2.5-flash", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"PREDICTION: Draw"}}]}`))
	})

	text, err := g.Complete(context.Background(), "be brief", "Arsenal vs Chelsea")
	require.NoError(t, err)
	assert.Equal(t, "PREDICTION: Draw", text)
}

func TestGateway_NoChoices(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	text, err := g.Complete(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGateway_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		rateLimit bool
		quota     bool
	}{
		{"rate limited", http.StatusTooManyRequests, true, false},
		{"payment required", http.StatusPaymentRequired, false, true},
		{"server error", http.StatusInternalServerError, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			})

			_, err := g.Complete(context.Background(), "", "x")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.rateLimit, errors.Is(err, ErrRateLimited))
			assert.Equal(t, tt.quota, errors.Is(err, ErrQuotaExhausted))
		})
	}
}

func TestNewGateway_RequiresKey(t *testing.T) {
	_, err := NewGateway(GatewayConfig{Model: "m"})
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "rate_limited", Outcome(fmt.Errorf("wrapped: %w", &APIError{Status: 429})))
	assert.Equal(t, "quota_exhausted", Outcome(&APIError{Status: 402}))
	assert.Equal(t, "cancelled", Outcome(context.Canceled))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(status.Error(codes.ResourceExhausted, "quota"))
	assert.ErrorIs(t, err, ErrRateLimited)

	err = classifyGeminiError(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"})
	assert.ErrorIs(t, err, ErrRateLimited)

	err = classifyGeminiError(errors.New("connection reset"))
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.ErrorContains(t, err, "gemini API error")
}
