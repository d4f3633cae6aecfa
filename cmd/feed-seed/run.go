package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/catalog-feed-import/internal/catalog"
	"github.com/raine/catalog-feed-import/internal/source"
	"github.com/raine/catalog-feed-import/internal/storage"
)

// result is the seed built from one feed.
type result struct {
	Source string       `json:"source"`
	Seed   catalog.Seed `json:"seed"`
}

// buildAll loads and builds every feed concurrently. Each build gets its own
// uniqueness context, so identifiers are unique per feed, not across feeds.
// Results keep the order of locs. The first failure cancels the rest.
func buildAll(ctx context.Context, loader *source.Loader, locs []source.Location, opts catalog.Options) ([]result, error) {
	results := make([]result, len(locs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, loc := range locs {
		i, loc := i, loc
		g.Go(func() error {
			text, err := loader.Load(ctx, loc)
			if err != nil {
				return fmt.Errorf("%s: %w", loc, err)
			}
			seed, err := catalog.BuildDocument(text, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", loc, err)
			}
			log.Info().
				Str("source", loc.Path).
				Int("categories", len(seed.Categories)).
				Int("products", len(seed.Products)).
				Msg("catalog built")
			results[i] = result{Source: loc.Path, Seed: seed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// writeJSON writes a single seed as an object and several as an array of
// {source, seed} objects.
func writeJSON(w io.Writer, results []result, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	var v any = results
	if len(results) == 1 {
		v = results[0].Seed
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode seed: %w", err)
	}
	return nil
}

// writeOutput writes JSON to path, or to stdout for "-".
func writeOutput(path string, results []result, pretty bool) error {
	if path == "-" {
		return writeJSON(os.Stdout, results, pretty)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeJSON(f, results, pretty); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// saveRuns stores every result as a run. With skipUnchanged a result equal
// to the latest stored run of its source is not stored again.
// storeResults opens the seed database, saves the results and closes it
// again before returning, so a failing caller can exit right away.
func storeResults(dbPath string, results []result, skipUnchanged bool) error {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open seed database: %w", err)
	}
	if err := saveRuns(store, results, skipUnchanged); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

func saveRuns(store storage.SeedStore, results []result, skipUnchanged bool) error {
	for _, r := range results {
		if skipUnchanged {
			digest, err := storage.SeedDigest(r.Seed)
			if err != nil {
				return err
			}
			latest, err := store.LatestRunOf(r.Source)
			if err != nil {
				return err
			}
			if latest != nil && latest.Digest == digest {
				log.Info().Str("source", r.Source).Str("runID", latest.ID).Msg("seed unchanged, skipping")
				continue
			}
		}
		run, err := store.SaveRun(r.Source, r.Seed)
		if err != nil {
			return fmt.Errorf("%s: %w", r.Source, err)
		}
		log.Info().Str("source", r.Source).Str("runID", run.ID).Msg("seed stored")
	}
	return nil
}
