package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"matchpredict/ingestion/internal/metrics"
	"matchpredict/ingestion/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// formLength is how many recent results make up a team's form string
const formLength = 5

// StatusError is returned when the sports API answers with a non-success status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sports API returned status %d: %s", e.StatusCode, e.Body)
}

// Config configures the sports API client
type Config struct {
	BaseURL     string
	APIKey      string
	Host        string
	Sport       string
	Timeout     time.Duration
	MinInterval time.Duration // minimum spacing between requests
	MaxRetries  int
}

// Client is the RapidAPI sports data client
type Client struct {
	baseURL    string
	apiKey     string
	host       string
	sport      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new sports API client
func NewClient(cfg Config) *Client {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	sport := cfg.Sport
	if sport == "" {
		sport = "football"
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		host:       cfg.Host,
		sport:      sport,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		retryDelay: 1 * time.Second,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request against the sports API with retry on transient failures
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying sports API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, endpoint, url)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		switch status {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("size", len(body)).
				Msg("Sports API request successful")
			return body, nil

		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = &StatusError{StatusCode: status, Body: string(body)}
			log.Warn().
				Str("url", url).
				Int("status", status).
				Int("attempt", attempt+1).
				Msg("Received retryable error from sports API")
			continue

		default:
			// 429 included: the caller decides what a failed fetch means for the run
			return nil, &StatusError{StatusCode: status, Body: string(body)}
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint, url string) ([]byte, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
		return nil, 0, fmt.Errorf("sports API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.RecordAPICall(endpoint, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
	return body, resp.StatusCode, nil
}

// ScheduledEvents fetches the events scheduled on date's calendar day
func (c *Client) ScheduledEvents(ctx context.Context, date time.Time) ([]models.Event, error) {
	path := fmt.Sprintf("sport/%s/scheduled-events/%s", c.sport, date.Format(models.DateLayout))

	body, err := c.get(ctx, "scheduled_events", path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scheduled events: %w", err)
	}

	var resp models.ScheduledEventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scheduled events: %w", err)
	}

	events := make([]models.Event, 0, len(resp.Events))
	for i := range resp.Events {
		events = append(events, resp.Events[i].ToEvent())
	}

	return events, nil
}

// TeamForm fetches a team's recent results as a compact string such as "WWDLW"
func (c *Client) TeamForm(ctx context.Context, teamID int64) (string, error) {
	path := fmt.Sprintf("team/%d/form/%s", teamID, c.sport)

	body, err := c.get(ctx, "team_form", path)
	if err != nil {
		return "", fmt.Errorf("failed to fetch team form: %w", err)
	}

	var resp models.TeamFormResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal team form: %w", err)
	}

	return resp.FormatForm(formLength), nil
}
