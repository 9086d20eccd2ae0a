// Command diag prints the coarse evening altitude series of one object,
// 100 samples from 22:00 to 10:00, together with the compass label of each
// sample. It reads the same configuration as dsoplan.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/yetanothergithubaccount/ObsPi/internal/compass"
	"github.com/yetanothergithubaccount/ObsPi/internal/config"
	"github.com/yetanothergithubaccount/ObsPi/internal/frame"
	"github.com/yetanothergithubaccount/ObsPi/internal/resolver"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	flags := pflag.NewFlagSet("diag", pflag.ExitOnError)
	object := flags.String("object", "M31", "object to sample")
	flags.String("config", "", "YAML config file")
	flags.String("date", "", "observation night as DD.MM.YYYY (default tonight)")
	flags.Bool("offline", false, "resolve names from the seed table and cache only")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags, logger)
	if err != nil {
		fmt.Println("ERROR loading config:", err)
		os.Exit(1)
	}

	var remote resolver.Lookup
	if !cfg.Resolver.Offline {
		remote = resolver.NewFetcher(cfg.Resolver.SourceURL, cfg.Resolver.Timeout, logger)
	}
	res, err := resolver.New(resolver.NewDiskCache(cfg.CacheDir), remote, cfg.Resolver.MemoTTL, logger)
	if err != nil {
		fmt.Println("ERROR creating resolver:", err)
		os.Exit(1)
	}
	sky := frame.NewSky(res, logger)

	date := cfg.ObservationDate(time.Now())
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ObjectTimeout)
	defer cancel()

	info, err := sky.Info(ctx, *object)
	if err != nil {
		fmt.Println("ERROR resolving object:", err)
		os.Exit(1)
	}
	fmt.Printf("%s: RA %.4f° Dec %.4f° (%s)\n", info.Name, info.RA, info.Dec, info.Description())
	fmt.Printf("Location: %s (%.4f, %.4f), night of %s\n",
		cfg.Location.Name, cfg.Location.Latitude, cfg.Location.Longitude, date.Format(config.DateLayout))

	samples, err := visibility.SampleEvening(ctx, sky, *object, date, cfg.Location)
	if err != nil {
		fmt.Println("ERROR sampling:", err)
		os.Exit(1)
	}

	best := samples[0]
	for _, s := range samples {
		fmt.Printf("  %s  alt=%6.1f°  az=%5.1f°  %s\n",
			s.Time.Format(visibility.TimeLayout), s.AltitudeDeg, s.AzimuthDeg, compass.Classify(s.AzimuthDeg))
		if s.AltitudeDeg > best.AltitudeDeg {
			best = s
		}
	}
	fmt.Printf("\nHighest sample: %.1f° at %s in %s\n",
		best.AltitudeDeg, best.Time.Format(visibility.TimeLayout), compass.Classify(best.AzimuthDeg))
}
