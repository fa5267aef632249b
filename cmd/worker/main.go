package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"matchpredict/ingestion/internal/analysis"
	"matchpredict/ingestion/internal/cache"
	"matchpredict/ingestion/internal/client"
	"matchpredict/ingestion/internal/config"
	"matchpredict/ingestion/internal/ingestion"
	"matchpredict/ingestion/internal/llm"
	"matchpredict/ingestion/internal/repository"
	"matchpredict/ingestion/internal/scheduler"
	"matchpredict/ingestion/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Setup logger
	setupLogger(cfg)

	log.Info().Msg("Starting match prediction worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize sports data client
	var source ingestion.MatchSource = client.NewClient(client.Config{
		BaseURL:     cfg.SportAPIBaseURL,
		APIKey:      cfg.SportAPIKey,
		Host:        cfg.SportAPIHost,
		Sport:       cfg.SportAPISport,
		Timeout:     cfg.SportAPITimeout,
		MinInterval: cfg.SportAPIMinInterval,
		MaxRetries:  cfg.SportAPIMaxRetries,
	})
	log.Info().Str("sport", cfg.SportAPISport).Msg("Sports data client initialized")

	// Initialize database connection
	dbConfig := repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}

	if cfg.DatabaseAutoMigrate {
		if err := repository.Migrate(dbConfig); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
	}

	db, err := repository.NewDatabase(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Redis backs the team form cache and the change feed; both are optional
	var (
		notifier ingestion.Notifier
		changes  server.Subscriber
	)
	health := map[string]server.HealthChecker{"database": db}
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			source = cache.NewCachedSource(source, redisCache, cfg.TeamFormTTL())

			bus := cache.NewChangeBus(redisCache.Client(), cfg.ChangesChannel)
			notifier = bus
			changes = bus
			health["redis"] = redisCache
			log.Info().Msg("Redis cache connected")
		}
	}

	// Language model clients
	gateway, err := llm.NewGateway(llm.GatewayConfig{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create language model client")
	}

	var analysisModel llm.Completer = gateway
	if cfg.AnalysisProvider == config.ProviderGemini {
		gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		defer gemini.Close()
		analysisModel = gemini
	}
	log.Info().Str("provider", cfg.AnalysisProvider).Msg("Analysis provider selected")

	pipeline := ingestion.NewPipeline(source, db.Predictions, db.AutomationLogs, gateway, ingestion.Options{
		Leagues:        cfg.TrackedLeagues,
		MaxEvents:      cfg.MaxEventsPerRun,
		Retention:      cfg.Retention,
		RateLimitPause: cfg.RateLimitPause,
		CallPause:      cfg.CallPause,
		ModelLabel:     cfg.LLMModelLabel,
		Location:       cfg.RunLocation(),
	}, ingestion.WithNotifier(notifier))

	analyzer := analysis.NewAnalyzer(db.Predictions, analysisModel, notifier)

	// Create and start scheduler
	sched := scheduler.NewScheduler(scheduler.Config{
		FetchCron:            cfg.FetchCron,
		StatsRefreshInterval: cfg.StatsRefreshInterval,
		Location:             cfg.RunLocation(),
	}, pipeline, db)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Start HTTP server
	srv := server.New(server.Deps{
		Runner:      pipeline,
		Analyzer:    analyzer,
		Predictions: db.Predictions,
		Logs:        db.AutomationLogs,
		Changes:     changes,
		Health:      health,
		Metrics:     cfg.EnableMetrics,
	})

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if cfg.EnableScheduler {
		log.Info().Msg("Shutting down scheduler...")
		sched.Stop()
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	// Pretty console logging in development
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}
