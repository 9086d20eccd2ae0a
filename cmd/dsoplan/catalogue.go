package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yetanothergithubaccount/ObsPi/internal/catalogue"
	"github.com/yetanothergithubaccount/ObsPi/internal/config"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

func newCatalogueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Evaluate the whole catalogue and list the best objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if plot, _ := cmd.Flags().GetBool("plot"); plot {
				logger.Warn("plot generation is not supported, continuing without plots")
			}

			a, err := newApp(cfg, logger, nil)
			if err != nil {
				return err
			}

			date := cfg.ObservationDate(time.Now())
			cat, report, err := a.evaluator.Evaluate(cmd.Context(), date, catalogue.Names)
			if err != nil {
				return err
			}
			logger.Info("catalogue ready",
				"date", report.Date,
				"path", a.store.Path(date),
				"loaded", report.Loaded,
				"evaluated", report.Evaluated,
				"skipped", len(report.Skipped),
			)

			printBest(cmd.OutOrStdout(), date, cfg.Direction, cfg.MinAltitude, catalogue.Filter(cat, cfg.MinAltitude, cfg.Direction))
			return nil
		},
	}

	cmd.Flags().String("direction", "S", "primary compass direction to list (N, E, S, W)")
	cmd.Flags().Float64("min-altitude", 10, "minimum night-time altitude in degrees")
	cmd.Flags().Bool("plot", false, "generate visibility plots (not supported)")
	return cmd
}

// printBest writes the filtered objects, one per line, as
// "name (altitude at time in direction)".
func printBest(w io.Writer, date time.Time, direction string, minAlt float64, best []catalogue.Entry) {
	alt := strconv.FormatFloat(minAlt, 'f', -1, 64)
	if len(best) == 0 {
		fmt.Fprintf(w, "No DSOs matching direction %s and min altitude %s found.\n", direction, alt)
		return
	}
	fmt.Fprintf(w, "%s: DSOs matching direction %s and min altitude %s found:\n", date.Format(config.DateLayout), direction, alt)
	for _, e := range best {
		r := e.Record
		fmt.Fprintf(w, "%s (%.1f at %s in %s)\n", e.Name, r.MaxAlt, r.MaxAltTime.Format(visibility.TimeLayout), r.MaxAltDirection)
	}
}
