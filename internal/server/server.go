// Package server exposes the pipeline, the analysis function and dashboard read
// feeds over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"matchpredict/ingestion/internal/ingestion"
	"matchpredict/ingestion/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Runner runs the fetch-matches pipeline
type Runner interface {
	Run(ctx context.Context, date time.Time) (*ingestion.Summary, error)
}

// Analyzer writes an analysis for one prediction
type Analyzer interface {
	Analyze(ctx context.Context, id uuid.UUID) (string, error)
}

// PredictionReader serves the dashboard's prediction feeds
type PredictionReader interface {
	ListRecent(ctx context.Context, limit int) ([]*models.Prediction, error)
	Stats(ctx context.Context) (*models.PredictionStats, error)
}

// LogReader serves the automation panel
type LogReader interface {
	ListRecent(ctx context.Context, limit int) ([]*models.AutomationLog, error)
}

// Subscriber streams change events
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the server's collaborators. Changes, Health and Metrics are optional.
type Deps struct {
	Runner      Runner
	Analyzer    Analyzer
	Predictions PredictionReader
	Logs        LogReader
	Changes     Subscriber
	Health      map[string]HealthChecker // keyed by dependency name
	Metrics     bool
}

// Server is the HTTP surface
type Server struct {
	deps   Deps
	router *gin.Engine
}

// New builds the router
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{deps: deps, router: router}
	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	if s.deps.Metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	functions := s.router.Group("/functions/v1")
	functions.POST("/fetch-matches", s.fetchMatches)
	functions.POST("/analyze-prediction", s.analyzePrediction)

	api := s.router.Group("/api")
	api.GET("/predictions", s.listPredictions)
	api.GET("/predictions/stats", s.predictionStats)
	api.GET("/automation-logs", s.listAutomationLogs)
	if s.deps.Changes != nil {
		api.GET("/predictions/changes", s.streamChanges)
	}
}

// requestLogger logs each request through zerolog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		evt := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}
