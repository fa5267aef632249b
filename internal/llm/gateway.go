package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"matchpredict/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// GatewayConfig configures an OpenAI-compatible chat completions endpoint
type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Gateway calls a chat completions endpoint. It never retries; callers own the policy.
type Gateway struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGateway creates a chat completions client
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gateway API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gateway model is required")
	}

	return &Gateway{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Complete sends one system + user exchange and returns the first choice's content.
// An answer with no choices yields an empty string.
func (g *Gateway) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	text, err := g.complete(ctx, system, user)

	metrics.RecordLLMCall(ProviderGateway, Outcome(err), time.Since(start).Seconds())
	return text, err
}

func (g *Gateway) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("model", g.model).
			Msg("Gateway returned non-success status")
		return "", &APIError{Provider: ProviderGateway, Status: resp.StatusCode, Body: string(body)}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("gateway error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		return "", nil
	}

	return apiResp.Choices[0].Message.Content, nil
}
