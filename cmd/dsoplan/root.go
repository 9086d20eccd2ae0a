package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yetanothergithubaccount/ObsPi/internal/catalogue"
	"github.com/yetanothergithubaccount/ObsPi/internal/config"
	"github.com/yetanothergithubaccount/ObsPi/internal/frame"
	"github.com/yetanothergithubaccount/ObsPi/internal/resolver"
	"github.com/yetanothergithubaccount/ObsPi/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dsoplan",
		Short:         "Nightly deep-sky object visibility planner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.Float64("latitude", 49.878708, "observer latitude in degrees")
	pf.Float64("longitude", 8.646927, "observer longitude in degrees, east positive")
	pf.Float64("elevation", 144, "observer elevation in meters")
	pf.String("location", "Darmstadt", "observer location name")
	pf.String("date", "", "observation night as DD.MM.YYYY (default tonight)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("data-dir", "data", "directory of the dated catalogue files")
	pf.String("cache-dir", "data", "directory of the resolved object cache")
	pf.Bool("offline", false, "resolve names from the seed table and cache only")
	pf.Int("workers", 1, "concurrent object evaluations")

	root.AddCommand(newObjectCmd(), newCatalogueCmd(), newServeCmd())
	return root
}

// app holds the services shared by all commands.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	sky       *frame.Sky
	names     *resolver.Resolver
	store     *store.Store
	evaluator *catalogue.Evaluator
}

// loadConfig reads configuration for cmd and builds the logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	boot := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.Load(cmd.Flags(), boot)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := newLogger(os.Stderr, cfg.LogLevel)
	return cfg, logger, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// newApp wires resolver, sky, store and evaluator. onProgress may be nil.
func newApp(cfg config.Config, logger *slog.Logger, onProgress func(catalogue.Progress)) (*app, error) {
	var remote resolver.Lookup
	if !cfg.Resolver.Offline {
		f := resolver.NewFetcher(cfg.Resolver.SourceURL, cfg.Resolver.Timeout, logger.With("component", "resolver"))
		logger.Debug("remote name resolution enabled", "component", "resolver", "source", f.SourceURL())
		remote = f
	}
	res, err := resolver.New(resolver.NewDiskCache(cfg.CacheDir), remote, cfg.Resolver.MemoTTL, logger.With("component", "resolver"))
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	sky := frame.NewSky(res, logger.With("component", "frame"))
	st := store.New(cfg.DataDir, logger.With("component", "store"))
	ev := catalogue.NewEvaluator(sky, st, catalogue.Config{
		Location:      cfg.Location,
		ObjectTimeout: cfg.ObjectTimeout,
		Workers:       cfg.Workers,
		OnProgress:    onProgress,
	}, logger.With("component", "catalogue"))

	return &app{cfg: cfg, logger: logger, sky: sky, names: res, store: st, evaluator: ev}, nil
}
