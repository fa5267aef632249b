package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"matchpredict/ingestion/internal/metrics"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey          string
	Model           string // Default: "gemini-2.0-flash"
	Temperature     float32
	MaxOutputTokens int32
}

// Gemini calls Google's Gemini API through the genai SDK
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGemini creates a Gemini client
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	log.Info().
		Str("model", cfg.Model).
		Msg("Gemini client initialized")

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
	}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Complete generates content for the user prompt under the system instruction
func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	model := g.client.GenerativeModel(g.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	if g.temperature > 0 {
		model.SetTemperature(g.temperature)
	}
	if g.maxTokens > 0 {
		model.SetMaxOutputTokens(g.maxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		err = classifyGeminiError(err)
		metrics.RecordLLMCall(ProviderGemini, Outcome(err), time.Since(start).Seconds())
		return "", err
	}

	metrics.RecordLLMCall(ProviderGemini, "success", time.Since(start).Seconds())
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// classifyGeminiError maps SDK errors onto APIError so errors.Is works on them
func classifyGeminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{Provider: ProviderGemini, Status: gerr.Code, Body: gerr.Message}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return &APIError{Provider: ProviderGemini, Status: http.StatusTooManyRequests, Body: st.Message()}
		case codes.PermissionDenied:
			return &APIError{Provider: ProviderGemini, Status: http.StatusForbidden, Body: st.Message()}
		case codes.Unauthenticated:
			return &APIError{Provider: ProviderGemini, Status: http.StatusUnauthorized, Body: st.Message()}
		}
	}

	return fmt.Errorf("gemini API error: %w", err)
}
