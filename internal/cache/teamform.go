package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchpredict/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Store is the key/value surface CachedSource needs
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Source is the match source being wrapped
type Source interface {
	ScheduledEvents(ctx context.Context, date time.Time) ([]models.Event, error)
	TeamForm(ctx context.Context, teamID int64) (string, error)
}

// CachedSource serves team form from the cache and passes scheduled events through
type CachedSource struct {
	source Source
	store  Store
	ttl    time.Duration
}

// NewCachedSource wraps source with a team-form cache
func NewCachedSource(source Source, store Store, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, store: store, ttl: ttl}
}

// ScheduledEvents is never cached; each run needs the live fixture list
func (c *CachedSource) ScheduledEvents(ctx context.Context, date time.Time) ([]models.Event, error) {
	return c.source.ScheduledEvents(ctx, date)
}

// TeamForm returns the cached form or fetches and stores it. Cache errors fall
// through to the source.
func (c *CachedSource) TeamForm(ctx context.Context, teamID int64) (string, error) {
	key := fmt.Sprintf("team_form:%d", teamID)

	form, err := c.store.Get(ctx, key)
	if err == nil {
		return form, nil
	}
	if !errors.Is(err, ErrMiss) {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	form, err = c.source.TeamForm(ctx, teamID)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(ctx, key, form, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}

	return form, nil
}
