package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"matchpredict/ingestion/internal/analysis"
	"matchpredict/ingestion/internal/llm"
	"matchpredict/ingestion/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultPredictionLimit = 50
	defaultLogLimit        = 10
	maxListLimit           = 500
	heartbeatInterval      = 15 * time.Second
)

type fetchMatchesRequest struct {
	Date string `json:"date"`
}

type analyzeRequest struct {
	PredictionID string `json:"predictionId"`
}

func errorBody(err string) gin.H {
	return gin.H{"success": false, "error": err}
}

// fetchMatches runs the pipeline. The body is optional.
func (s *Server) fetchMatches(c *gin.Context) {
	var req fetchMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := time.ParseInLocation(models.DateLayout, req.Date, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
		date = d
	}

	// a disconnecting client must not discard the predictions of a run in flight
	summary, err := s.deps.Runner.Run(context.WithoutCancel(c.Request.Context()), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           fmt.Sprintf("Processed %d matches", summary.MatchesProcessed),
		"matches":           summary.Matches,
		"deletedOldMatches": summary.Purged,
		"analysesGenerated": summary.AnalysesGenerated,
		"quotaExhausted":    summary.QuotaExhausted,
		"interrupted":       summary.Interrupted,
	})
}

// analyzePrediction maps analyzer errors onto the status contract
func (s *Server) analyzePrediction(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	id, err := uuid.Parse(req.PredictionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("predictionId must be a UUID"))
		return
	}

	text, err := s.deps.Analyzer.Analyze(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "analysis": text})
	case errors.Is(err, analysis.ErrPredictionNotFound):
		c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, llm.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, errorBody("Rate limit exceeded, please try again later"))
	case errors.Is(err, llm.ErrQuotaExhausted):
		c.JSON(http.StatusPaymentRequired, errorBody("Model credits exhausted"))
	default:
		log.Error().Err(err).Str("prediction_id", id.String()).Msg("Analysis failed")
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func (s *Server) listPredictions(c *gin.Context) {
	limit, ok := parseLimit(c, defaultPredictionLimit)
	if !ok {
		return
	}

	preds, err := s.deps.Predictions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if preds == nil {
		preds = []*models.Prediction{}
	}

	c.JSON(http.StatusOK, preds)
}

func (s *Server) predictionStats(c *gin.Context) {
	stats, err := s.deps.Predictions.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) listAutomationLogs(c *gin.Context) {
	limit, ok := parseLimit(c, defaultLogLimit)
	if !ok {
		return
	}

	entries, err := s.deps.Logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if entries == nil {
		entries = []*models.AutomationLog{}
	}

	c.JSON(http.StatusOK, entries)
}

// streamChanges relays change events as server-sent events
func (s *Server) streamChanges(c *gin.Context) {
	ctx := c.Request.Context()

	events, err := s.deps.Changes.Subscribe(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to marshal change event")
				continue
			}
			_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Kind, raw)
			c.Writer.Flush()
		}
	}
}

// health pings every registered dependency
func (s *Server) health(c *gin.Context) {
	checks := make(gin.H, len(s.deps.Health))
	status := http.StatusOK

	for name, hc := range s.deps.Health {
		if err := hc.Health(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}

// parseLimit reads ?limit=, writing a 400 when it is not a positive integer
func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
