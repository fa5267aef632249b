package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"matchpredict/ingestion/internal/ingestion"
	"matchpredict/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu    sync.Mutex
	dates   []time.Time
	ctxErrs []error
	err     error
}

func (r *recordingRunner) Run(ctx context.Context, date time.Time) (*ingestion.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, date)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	if r.err != nil {
		return nil, r.err
	}
	return &ingestion.Summary{MatchesProcessed: 1}, nil
}

type fakeStats struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeStats) Stats(ctx context.Context) (*models.PredictionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PredictionStats{TotalPredictions: 12}, nil
}

func (f *fakeStats) ConnCounts() (int32, int32) { return 1, 4 }

func (f *fakeStats) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStart_InvalidCron(t *testing.T) {
	s := NewScheduler(Config{FetchCron: "not a cron"}, &recordingRunner{}, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestRunPipeline_UsesToday(t *testing.T) {
	runner := &recordingRunner{}
	s := NewScheduler(Config{FetchCron: "0 */4 * * *"}, runner, nil)

	s.runPipeline(context.Background())

	require.Len(t, runner.dates, 1)
	assert.True(t, runner.dates[0].IsZero())
}

func TestRunPipeline_SurvivesShutdownSignal(t *testing.T) {
	runner := &recordingRunner{}
	s := NewScheduler(Config{FetchCron: "0 */4 * * *"}, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.runPipeline(ctx)

	require.Len(t, runner.ctxErrs, 1)
	assert.NoError(t, runner.ctxErrs[0])
}

func TestRunPipeline_ErrorIsReportedOnly(t *testing.T) {
	runner := &recordingRunner{err: errors.New("fetch failed")}
	s := NewScheduler(Config{FetchCron: "0 */4 * * *"}, runner, nil)

	assert.NotPanics(t, func() { s.runPipeline(context.Background()) })
}

func TestStatsRefresh(t *testing.T) {
	stats := &fakeStats{}
	s := NewScheduler(Config{
		FetchCron:            "0 */4 * * *",
		StatsRefreshInterval: 10 * time.Millisecond,
	}, &recordingRunner{}, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return stats.count() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestStatsRefresh_ErrorDoesNotStopTicker(t *testing.T) {
	stats := &fakeStats{err: errors.New("db down")}
	s := NewScheduler(Config{
		FetchCron:            "0 */4 * * *",
		StatsRefreshInterval: 10 * time.Millisecond,
	}, &recordingRunner{}, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return stats.count() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
}
