package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"

	"github.com/raine/catalog-feed-import/internal/catalog"
	"github.com/raine/catalog-feed-import/internal/config"
	"github.com/raine/catalog-feed-import/internal/content"
	"github.com/raine/catalog-feed-import/internal/logx"
	"github.com/raine/catalog-feed-import/internal/source"
	"github.com/raine/catalog-feed-import/internal/storage"
	"github.com/raine/catalog-feed-import/internal/watcher"
)

var usage = dedent.Dedent(`
	Usage: feed-seed [flags] [feed ...]

	Builds category and product seeds from catalog feeds. A feed is a local
	path or an http(s) URL. Without arguments the feed is taken from FEED_PATH
	or searched for in feed.xml, data/feed.xml, seed/feed.xml, import/feed.xml.

	Flags:
`)

func main() {
	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var (
		out           string
		dbPath        string
		refTime       string
		currency      string
		keywordsFile  string
		pretty        bool
		skipUnchanged bool
		watchInterval time.Duration
	)
	flag.StringVar(&out, "out", cfg.SeedOutput, "write seed JSON to this file (- for stdout)")
	flag.StringVar(&dbPath, "db", cfg.SeedDBPath, "store the seed as a run in this SQLite database")
	flag.StringVar(&refTime, "ref", cfg.ReferenceTime, "reference time for promotions (RFC 3339 or YYYY-MM-DD)")
	flag.StringVar(&currency, "currency", cfg.DefaultCurrency, "currency for offers that declare none")
	flag.StringVar(&keywordsFile, "keywords", cfg.KeywordsFile, "YAML keyword tables for the content classifier")
	flag.BoolVar(&pretty, "pretty", false, "indent JSON output")
	flag.BoolVar(&skipUnchanged, "skip-unchanged", false, "do not store a run whose seed matches a stored run")
	flag.DurationVar(&watchInterval, "watch", 0, "keep running and rebuild at this interval, storing changed seeds (requires -db)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logx.Init(logx.Options{Level: cfg.LogLevel, JSON: cfg.IsProduction()})

	if watchInterval > 0 && dbPath == "" {
		log.Fatal().Msg("-watch requires -db or SEED_DB_PATH")
	}
	if out == "" && dbPath == "" {
		out = "-"
	}

	reference, err := config.ParseReferenceTime(refTime, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid reference time")
	}

	classifier := content.NewClassifier(nil)
	if keywordsFile != "" {
		rules, err := content.LoadRulesFile(keywordsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", keywordsFile).Msg("failed to load keyword tables")
		}
		classifier = content.NewClassifier(rules)
	}

	locs, err := resolveFeeds(flag.Args(), cfg.FeedPath)
	if err != nil {
		log.Fatal().Err(err).Msg("feed not found")
	}
	for _, loc := range locs {
		log.Info().Str("source", loc.Path).Bool("remote", loc.Remote).Msg("feed resolved")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := catalog.Options{
		ReferenceTime:   reference,
		DefaultCurrency: currency,
		ShippingProfile: cfg.ShippingProfile,
		SalesChannels:   cfg.SalesChannels,
		Classifier:      classifier,
	}
	loader := source.NewLoader(cfg.HTTPTimeout)

	if watchInterval > 0 {
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("dbPath", dbPath).Msg("failed to open seed database")
		}
		defer store.Close()

		var pinned time.Time
		if refTime != "" {
			pinned = reference
		}
		watcher.NewService(store, loader, locs, watcher.Config{
			Interval:      watchInterval,
			ReferenceTime: pinned,
			Options:       opts,
		}).Run(ctx)
		return
	}

	results, err := buildAll(ctx, loader, locs, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("build failed")
	}

	if out != "" {
		if err := writeOutput(out, results, pretty); err != nil {
			log.Fatal().Err(err).Msg("failed to write seed")
		}
	}

	if dbPath != "" {
		if err := storeResults(dbPath, results, skipUnchanged); err != nil {
			log.Fatal().Err(err).Str("dbPath", dbPath).Msg("failed to store seed")
		}
	}
}

// resolveFeeds turns the arguments into feed locations. With at most one
// argument the usual search order applies. Several arguments must each exist.
func resolveFeeds(args []string, fromEnv string) ([]source.Location, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	if len(args) <= 1 {
		var explicit string
		if len(args) == 1 {
			explicit = args[0]
		}
		loc, err := source.NewResolver(wd).Resolve(explicit, fromEnv)
		if err != nil {
			return nil, err
		}
		return []source.Location{loc}, nil
	}

	strict := &source.Resolver{BaseDir: wd}
	locs := make([]source.Location, 0, len(args))
	for _, arg := range args {
		loc, err := strict.Resolve(arg, "")
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, nil
}
