// Package maintenance runs periodic housekeeping on the bot's database.
package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// PruneInterval is how often the analysis cache is pruned.
	PruneInterval = 24 * time.Hour

	// DefaultCacheMaxAge is how long cached analyses are kept.
	DefaultCacheMaxAge = 30 * 24 * time.Hour
)

// CachePruner deletes stale analysis cache entries.
type CachePruner interface {
	PruneAnalysisCache(olderThan time.Duration) (int64, error)
}

// Service prunes the analysis cache in the background.
type Service struct {
	store    CachePruner
	maxAge   time.Duration
	interval time.Duration
}

// NewService creates a maintenance service. A zero maxAge uses DefaultCacheMaxAge.
func NewService(store CachePruner, maxAge time.Duration) *Service {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	return &Service{
		store:    store,
		maxAge:   maxAge,
		interval: PruneInterval,
	}
}

// Run prunes once at start and then every interval. It blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Dur("maxAge", s.maxAge).Msg("starting maintenance service")

	s.pruneCache()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("maintenance service stopped")
			return
		case <-ticker.C:
			s.pruneCache()
		}
	}
}

func (s *Service) pruneCache() {
	count, err := s.store.PruneAnalysisCache(s.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune analysis cache")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned old analysis cache entries")
	}
}
