package scheduler

import (
	"context"
	"fmt"
	"time"

	"matchpredict/ingestion/internal/ingestion"
	"matchpredict/ingestion/internal/metrics"
	"matchpredict/ingestion/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner runs the ingestion pipeline
type Runner interface {
	Run(ctx context.Context, date time.Time) (*ingestion.Summary, error)
}

// StatsSource feeds the gauges refreshed on every tick
type StatsSource interface {
	Stats(ctx context.Context) (*models.PredictionStats, error)
	ConnCounts() (active, idle int32)
}

// Config holds scheduler settings
type Config struct {
	FetchCron            string
	StatsRefreshInterval time.Duration
	Location             *time.Location
}

// Scheduler manages background tasks:
// - the fetch-matches pipeline on a cron schedule
// - a ticker that refreshes prediction and pool gauges
type Scheduler struct {
	cfg      Config
	runner   Runner
	stats    StatsSource
	cron     *cron.Cron
	ticker   *time.Ticker
	started  time.Time
	stopChan chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config, runner Runner, stats StatsSource) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Scheduler{
		cfg:      cfg,
		runner:   runner,
		stats:    stats,
		cron:     cron.New(cron.WithLocation(cfg.Location)),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	// Setup fetch-matches cron job
	if _, err := s.cron.AddFunc(s.cfg.FetchCron, func() {
		s.runPipeline(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule fetch-matches: %w", err)
	}

	// Start cron scheduler
	s.cron.Start()
	s.started = time.Now()
	log.Info().
		Str("schedule", s.cfg.FetchCron).
		Str("timezone", s.cfg.Location.String()).
		Msg("Fetch-matches scheduled")

	if s.stats != nil && s.cfg.StatsRefreshInterval > 0 {
		s.ticker = time.NewTicker(s.cfg.StatsRefreshInterval)
		log.Info().
			Dur("interval", s.cfg.StatsRefreshInterval).
			Msg("Stats refresh started")

		s.refreshStats(ctx)
		go s.pollStats(ctx)
	}

	return nil
}

// Stop stops the scheduler and waits for a running pipeline to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// runPipeline runs one fetch-matches for today. Failures are already in the
// automation log; they are only reported here. The run is detached from ctx so
// shutdown lets it finish; Stop waits for it.
func (s *Scheduler) runPipeline(ctx context.Context) {
	log.Info().Msg("Running scheduled fetch-matches...")

	summary, err := s.runner.Run(context.WithoutCancel(ctx), time.Time{})
	if err != nil {
		log.Error().Err(err).Msg("Scheduled fetch-matches failed")
		return
	}

	log.Info().
		Int("matches_processed", summary.MatchesProcessed).
		Int("analyses_generated", summary.AnalysesGenerated).
		Msg("Scheduled fetch-matches finished")
}

// pollStats refreshes gauges until stopped
func (s *Scheduler) pollStats(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping stats refresh")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping stats refresh")
			return
		case <-s.ticker.C:
			s.refreshStats(ctx)
		}
	}
}

func (s *Scheduler) refreshStats(ctx context.Context) {
	metrics.SystemUptime.Set(time.Since(s.started).Seconds())

	active, idle := s.stats.ConnCounts()
	metrics.UpdateDBConnectionStats(active, idle)

	stats, err := s.stats.Stats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh prediction stats")
		return
	}
	metrics.UpdatePredictionStats(stats.TotalPredictions)
}
