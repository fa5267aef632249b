// Package ingestion runs the fetch-matches pipeline: fetch the day's fixtures,
// ask a language model for a prediction on each new one, and store the batch.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"matchpredict/ingestion/internal/client"
	"matchpredict/ingestion/internal/llm"
	"matchpredict/ingestion/internal/metrics"
	"matchpredict/ingestion/internal/models"
	"matchpredict/ingestion/internal/parser"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FunctionName is recorded on every automation log entry the pipeline writes
const FunctionName = "fetch-matches"

var (
	// ErrFetchEvents means the match source did not return the day's events
	ErrFetchEvents = errors.New("failed to fetch scheduled events")
	// ErrInsertBatch means the gathered predictions could not be stored
	ErrInsertBatch = errors.New("failed to insert predictions")
)

// MatchSource provides scheduled events and team form
type MatchSource interface {
	ScheduledEvents(ctx context.Context, date time.Time) ([]models.Event, error)
	TeamForm(ctx context.Context, teamID int64) (string, error)
}

// PredictionStore is the part of the prediction repository the pipeline writes through
type PredictionStore interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	ExistsByMatch(ctx context.Context, matchName string, matchDate time.Time) (bool, error)
	InsertBatch(ctx context.Context, predictions []*models.Prediction) error
}

// RunLog receives automation log entries
type RunLog interface {
	Append(ctx context.Context, entry *models.AutomationLog) error
}

// Notifier publishes change events after writes
type Notifier interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Options tunes a Pipeline
type Options struct {
	Leagues        []string
	MaxEvents      int
	Retention      time.Duration
	RateLimitPause time.Duration
	CallPause      time.Duration
	ModelLabel     string
	Location       *time.Location // calendar used when Run is given a zero date
}

// Summary reports what a run did
type Summary struct {
	Date              string        `json:"date"`
	Matches           []string      `json:"matches"`
	MatchesProcessed  int           `json:"matches_processed"`
	AnalysesGenerated int           `json:"analyses_generated"`
	Purged            int64         `json:"deleted_old_matches"`
	Skipped           int           `json:"skipped"`
	QuotaExhausted    bool          `json:"quota_exhausted"`
	Interrupted       bool          `json:"interrupted"`
	Duration          time.Duration `json:"-"`
	DurationMS        int64         `json:"duration_ms"`
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSleeper replaces the context-aware pause between calls
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithNotifier publishes a change event after each successful insert
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// Pipeline is the fetch-matches run
type Pipeline struct {
	source   MatchSource
	store    PredictionStore
	logs     RunLog
	model    llm.Completer
	opts     Options
	leagues  *leagueFilter
	notifier Notifier
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a pipeline
func NewPipeline(source MatchSource, store PredictionStore, logs RunLog, model llm.Completer, opts Options, options ...Option) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.Local
	}

	p := &Pipeline{
		source:  source,
		store:   store,
		logs:    logs,
		model:   model,
		opts:    opts,
		leagues: newLeagueFilter(opts.Leagues),
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// run is the accumulator threaded through a single invocation
type run struct {
	start    time.Time
	date     time.Time
	summary  Summary
	batch    []*models.Prediction
	seenIDs  map[string]struct{}
	seenKeys map[string]struct{}
}

// Run executes the pipeline for date's calendar day. A zero date means today in
// the configured location.
func (p *Pipeline) Run(ctx context.Context, date time.Time) (*Summary, error) {
	r := &run{
		start:    p.now(),
		seenIDs:  make(map[string]struct{}),
		seenKeys: make(map[string]struct{}),
	}
	if date.IsZero() {
		date = r.start.In(p.opts.Location)
	}
	r.date = date
	r.summary.Date = date.Format(models.DateLayout)
	r.summary.Matches = []string{}

	log.Info().
		Str("date", r.summary.Date).
		Msg("Starting fetch-matches run")

	p.appendLog(ctx, &models.AutomationLog{
		Status:  models.RunStarted,
		Message: models.StringPtr(fmt.Sprintf("Fetching matches for %s", r.summary.Date)),
	})

	p.sweep(ctx, r)

	events, err := p.source.ScheduledEvents(ctx, date)
	if err != nil {
		msg := "Failed to fetch scheduled events"
		var se *client.StatusError
		if errors.As(err, &se) {
			msg = fmt.Sprintf("Failed to fetch scheduled events: status %d", se.StatusCode)
		}
		return p.fail(ctx, r, msg, fmt.Errorf("%w: %w", ErrFetchEvents, err))
	}

	candidates := p.leagues.selectEvents(events, p.opts.MaxEvents)
	log.Info().
		Int("fetched", len(events)).
		Int("candidates", len(candidates)).
		Msg("Filtered scheduled events")

	for _, ev := range candidates {
		if ctx.Err() != nil || p.processEvent(ctx, r, ev) {
			break
		}
	}

	// a cancelled caller ends the loop like a 402 does; what was gathered is kept
	if ctx.Err() != nil {
		r.summary.Interrupted = true
		log.Warn().
			Int("gathered", len(r.batch)).
			Msg("Run context cancelled, storing gathered predictions")
	}
	ctx = context.WithoutCancel(ctx)

	if len(r.batch) > 0 {
		if err := p.store.InsertBatch(ctx, r.batch); err != nil {
			msg := fmt.Sprintf("Failed to insert %d predictions (%d analyses)", len(r.batch), r.summary.AnalysesGenerated)
			return p.fail(ctx, r, msg, fmt.Errorf("%w: %w", ErrInsertBatch, err))
		}
		metrics.RecordInserted(len(r.batch))
		p.publish(ctx, r)
	}

	r.summary.MatchesProcessed = len(r.batch)
	r.summary.Duration = p.now().Sub(r.start)
	r.summary.DurationMS = r.summary.Duration.Milliseconds()

	p.appendLog(ctx, &models.AutomationLog{
		Status:            models.RunSuccess,
		Message:           models.StringPtr(successMessage(&r.summary)),
		MatchesProcessed:  models.IntPtr(r.summary.MatchesProcessed),
		AnalysesGenerated: models.IntPtr(r.summary.AnalysesGenerated),
		ExecutionTimeMS:   durationMS(r.summary.Duration),
	})
	metrics.RecordRun(FunctionName, "success", r.summary.Duration.Seconds())

	log.Info().
		Str("date", r.summary.Date).
		Int("matches_processed", r.summary.MatchesProcessed).
		Int("analyses_generated", r.summary.AnalysesGenerated).
		Int64("purged", r.summary.Purged).
		Int("skipped", r.summary.Skipped).
		Bool("quota_exhausted", r.summary.QuotaExhausted).
		Dur("duration", r.summary.Duration).
		Msg("Fetch-matches run complete")

	return &r.summary, nil
}

// sweep removes predictions older than the retention window. Failure is logged only.
func (p *Pipeline) sweep(ctx context.Context, r *run) {
	cutoff := r.start.Add(-p.opts.Retention)

	n, err := p.store.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		log.Warn().
			Err(err).
			Time("cutoff", cutoff).
			Msg("Retention sweep failed, continuing")
		metrics.RecordError("ingestion", "retention_sweep")
		return
	}

	r.summary.Purged = n
	metrics.RecordPurged(n)
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Deleted old predictions")
	}
}

// processEvent handles one candidate. It returns true once the model's quota is
// gone or ctx is done; the loop then ends and the batch is still inserted.
func (p *Pipeline) processEvent(ctx context.Context, r *run, ev models.Event) (stop bool) {
	matchName := ev.MatchName()
	matchDate := ev.MatchDate(r.date)
	key := matchName + "|" + matchDate.Format(models.DateLayout)

	logger := log.With().
		Str("match", matchName).
		Str("event_id", ev.EventID).
		Logger()

	if p.inBatch(r, ev.EventID, key) {
		logger.Debug().Msg("Event already in this run's batch, skipping")
		p.skip(r, "duplicate")
		return false
	}

	dup, err := p.exists(ctx, ev.EventID, matchName, matchDate)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		logger.Warn().Err(err).Msg("Dedup lookup failed, skipping event")
		p.skip(r, "lookup_error")
		return false
	}
	if dup {
		logger.Debug().Msg("Prediction already exists, skipping")
		p.skip(r, "duplicate")
		return false
	}

	tc := p.enrich(ctx, ev)
	prompt := buildPrompt(ev, matchDate.Format(models.DateLayout), tc)

	text, err := p.model.Complete(ctx, systemPrompt, prompt)
	switch {
	case err == nil:
		res := parser.Parse(text)
		if !res.Complete() {
			logger.Warn().
				Strs("missing", res.Missing).
				Msg("Model output missing labelled fields, using fallbacks")
			metrics.RecordParseFallbacks(res.Missing)
		}
		p.add(r, p.predictionFrom(ev, matchName, matchDate, res), key)
		r.summary.AnalysesGenerated++

	case errors.Is(err, llm.ErrRateLimited):
		logger.Warn().
			Dur("pause", p.opts.RateLimitPause).
			Msg("Model rate limit hit, skipping event")
		p.skip(r, "rate_limited")
		return p.sleep(ctx, p.opts.RateLimitPause) != nil

	case errors.Is(err, llm.ErrQuotaExhausted):
		logger.Warn().Msg("Model credits exhausted, stopping run")
		r.summary.QuotaExhausted = true
		return true

	case ctx.Err() != nil:
		logger.Warn().Err(err).Msg("Model call cancelled, stopping run")
		return true

	default:
		logger.Error().Err(err).Msg("Model call failed, storing placeholder")
		metrics.RecordError("ingestion", "model_call")
		p.add(r, p.placeholder(ev, matchName, matchDate), key)
	}

	return p.sleep(ctx, p.opts.CallPause) != nil
}

func (p *Pipeline) inBatch(r *run, eventID, key string) bool {
	if eventID != "" {
		if _, ok := r.seenIDs[eventID]; ok {
			return true
		}
	}
	_, ok := r.seenKeys[key]
	return ok
}

func (p *Pipeline) exists(ctx context.Context, eventID, matchName string, matchDate time.Time) (bool, error) {
	if eventID != "" {
		found, err := p.store.ExistsByEventID(ctx, eventID)
		if err != nil || found {
			return found, err
		}
	}
	return p.store.ExistsByMatch(ctx, matchName, matchDate)
}

// enrich fetches both teams' form. Every failure is swallowed.
func (p *Pipeline) enrich(ctx context.Context, ev models.Event) teamContext {
	var tc teamContext

	if ev.HomeTeamID != 0 {
		form, err := p.source.TeamForm(ctx, ev.HomeTeamID)
		if err != nil {
			log.Debug().Err(err).Int64("team_id", ev.HomeTeamID).Msg("Could not fetch home team form")
		} else {
			tc.HomeForm = form
		}
	}

	if ev.AwayTeamID != 0 {
		form, err := p.source.TeamForm(ctx, ev.AwayTeamID)
		if err != nil {
			log.Debug().Err(err).Int64("team_id", ev.AwayTeamID).Msg("Could not fetch away team form")
		} else {
			tc.AwayForm = form
		}
	}

	return tc
}

func (p *Pipeline) predictionFrom(ev models.Event, matchName string, matchDate time.Time, res parser.Result) *models.Prediction {
	pred := p.newPrediction(ev, matchName, matchDate)
	pred.PredictionLabel = res.Prediction
	pred.ConfidenceScore = models.ClampPercent(res.Confidence)
	pred.WinProbability = models.IntPtr(models.ClampPercent(res.WinProbability))
	pred.ScorePrediction = models.StringPtr(res.Score)
	pred.Reasoning = models.StringPtr(res.Reasoning)
	pred.Analysis = models.StringPtr(res.Analysis)
	pred.ModelName = p.opts.ModelLabel
	return pred
}

func (p *Pipeline) placeholder(ev models.Event, matchName string, matchDate time.Time) *models.Prediction {
	pred := p.newPrediction(ev, matchName, matchDate)
	pred.PredictionLabel = models.PendingPrediction
	pred.ConfidenceScore = 50
	pred.ModelName = models.PendingModelName
	return pred
}

func (p *Pipeline) newPrediction(ev models.Event, matchName string, matchDate time.Time) *models.Prediction {
	now := p.now().UTC()
	return &models.Prediction{
		ID:          uuid.New(),
		MatchName:   matchName,
		APIEventID:  models.StringPtr(ev.EventID),
		LeagueName:  ev.League,
		HomeTeam:    ev.HomeTeam,
		AwayTeam:    ev.AwayTeam,
		MatchDate:   matchDate,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func (p *Pipeline) add(r *run, pred *models.Prediction, key string) {
	r.batch = append(r.batch, pred)
	r.summary.Matches = append(r.summary.Matches, pred.MatchName)
	if pred.APIEventID != nil {
		r.seenIDs[*pred.APIEventID] = struct{}{}
	}
	r.seenKeys[key] = struct{}{}
}

func (p *Pipeline) skip(r *run, reason string) {
	r.summary.Skipped++
	metrics.RecordSkip(reason)
}

// fail writes the error log entry and returns err
func (p *Pipeline) fail(ctx context.Context, r *run, msg string, err error) (*Summary, error) {
	r.summary.Duration = p.now().Sub(r.start)
	r.summary.DurationMS = r.summary.Duration.Milliseconds()

	log.Error().
		Err(err).
		Str("date", r.summary.Date).
		Int("would_process", len(r.batch)).
		Msg(msg)

	p.appendLog(ctx, &models.AutomationLog{
		Status:            models.RunError,
		Message:           models.StringPtr(msg),
		MatchesProcessed:  models.IntPtr(len(r.batch)),
		AnalysesGenerated: models.IntPtr(r.summary.AnalysesGenerated),
		ErrorDetails:      models.StringPtr(err.Error()),
		ExecutionTimeMS:   durationMS(r.summary.Duration),
	})
	metrics.RecordRun(FunctionName, "error", r.summary.Duration.Seconds())

	return &r.summary, err
}

// appendLog writes an automation log entry. It outlives a cancelled run context
// and never fails the run.
func (p *Pipeline) appendLog(ctx context.Context, entry *models.AutomationLog) {
	entry.ID = uuid.New()
	entry.FunctionName = FunctionName
	entry.CreatedAt = p.now().UTC()

	if err := p.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
		log.Error().
			Err(err).
			Str("status", string(entry.Status)).
			Msg("Failed to write automation log")
		metrics.RecordError("ingestion", "automation_log")
	}
}

func (p *Pipeline) publish(ctx context.Context, r *run) {
	if p.notifier == nil {
		return
	}

	ids := make([]uuid.UUID, len(r.batch))
	for i, pred := range r.batch {
		ids[i] = pred.ID
	}

	ev := models.ChangeEvent{
		Kind:          models.ChangePredictionsInserted,
		PredictionIDs: ids,
		At:            p.now().UTC(),
	}
	if err := p.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Msg("Failed to publish prediction change")
	}
}

func successMessage(s *Summary) string {
	msg := fmt.Sprintf("Processed %d matches, generated %d analyses", s.MatchesProcessed, s.AnalysesGenerated)
	if s.QuotaExhausted {
		msg += " (stopped early: model quota exhausted)"
	}
	if s.Interrupted {
		msg += " (stopped early: run cancelled)"
	}
	if len(s.Matches) > 0 {
		msg += ": " + strings.Join(s.Matches, ", ")
	}
	return msg
}

func durationMS(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
