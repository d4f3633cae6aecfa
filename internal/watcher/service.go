// Package watcher rebuilds feeds on an interval and stores a new seed run
// whenever the outcome changes.
package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raine/catalog-feed-import/internal/catalog"
	"github.com/raine/catalog-feed-import/internal/source"
	"github.com/raine/catalog-feed-import/internal/storage"
)

const (
	// DefaultPollInterval is the time between polling cycles.
	DefaultPollInterval = 30 * time.Minute

	// PruneInterval is how often old runs are pruned.
	PruneInterval = 24 * time.Hour

	// DefaultKeepRuns is how many runs survive pruning.
	DefaultKeepRuns = 20
)

// Store is the part of the seed store the watcher needs.
type Store interface {
	SaveRun(source string, seed catalog.Seed) (*storage.Run, error)
	LatestRunOf(source string) (*storage.Run, error)
	PruneRuns(keep int) (int, error)
}

// Loader fetches a feed document.
type Loader interface {
	Load(ctx context.Context, loc source.Location) (string, error)
}

// Config configures a Service.
type Config struct {
	Interval time.Duration
	KeepRuns int
	// ReferenceTime pins promotions to one instant. When zero, every poll
	// uses the time it starts at.
	ReferenceTime time.Time
	Options       catalog.Options
}

// Service is the background watcher that polls feeds.
type Service struct {
	store  Store
	loader Loader
	locs   []source.Location
	cfg    Config
	now    func() time.Time
}

// NewService creates a watcher over locs.
func NewService(store Store, loader Loader, locs []source.Location, cfg Config) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.KeepRuns <= 0 {
		cfg.KeepRuns = DefaultKeepRuns
	}
	return &Service{store: store, loader: loader, locs: locs, cfg: cfg, now: time.Now}
}

// Run polls immediately, then on every interval. It blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", s.cfg.Interval).Int("feeds", len(s.locs)).Msg("starting watcher service")

	s.Poll(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	pruneTicker := time.NewTicker(PruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watcher service stopped")
			return
		case <-ticker.C:
			s.Poll(ctx)
		case <-pruneTicker.C:
			s.prune()
		}
	}
}

// Poll runs one cycle over every feed and returns how many runs it stored.
// A failing feed is logged and does not stop the others.
func (s *Service) Poll(ctx context.Context) int {
	log.Debug().Msg("starting poll cycle")

	opts := s.cfg.Options
	opts.ReferenceTime = s.cfg.ReferenceTime
	if opts.ReferenceTime.IsZero() {
		opts.ReferenceTime = s.now().UTC()
	}

	stored := 0
	for _, loc := range s.locs {
		if ctx.Err() != nil {
			return stored
		}
		if s.processFeed(ctx, loc, opts) {
			stored++
		}
	}

	log.Debug().Int("stored", stored).Msg("poll cycle complete")
	return stored
}

// processFeed builds one feed and stores it unless the latest stored run of
// the feed has the same seed.
func (s *Service) processFeed(ctx context.Context, loc source.Location, opts catalog.Options) bool {
	text, err := s.loader.Load(ctx, loc)
	if err != nil {
		log.Error().Err(err).Str("source", loc.Path).Msg("failed to load feed during poll")
		return false
	}

	seed, err := catalog.BuildDocument(text, opts)
	if err != nil {
		log.Error().Err(err).Str("source", loc.Path).Msg("failed to build feed during poll")
		return false
	}

	digest, err := storage.SeedDigest(seed)
	if err != nil {
		log.Error().Err(err).Str("source", loc.Path).Msg("failed to hash seed")
		return false
	}
	latest, err := s.store.LatestRunOf(loc.Path)
	if err != nil {
		log.Error().Err(err).Str("source", loc.Path).Msg("failed to look up stored runs")
		return false
	}
	if latest != nil && latest.Digest == digest {
		log.Debug().Str("source", loc.Path).Str("runID", latest.ID).Msg("seed unchanged")
		return false
	}

	run, err := s.store.SaveRun(loc.Path, seed)
	if err != nil {
		log.Error().Err(err).Str("source", loc.Path).Msg("failed to store seed")
		return false
	}

	log.Info().
		Str("source", loc.Path).
		Str("runID", run.ID).
		Int("products", run.Products).
		Msg("feed changed, stored new run")
	return true
}

func (s *Service) prune() {
	n, err := s.store.PruneRuns(s.cfg.KeepRuns)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune old runs")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("pruned old runs")
	}
}
