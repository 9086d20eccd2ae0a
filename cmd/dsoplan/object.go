package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newObjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "object <name>",
		Short: "Score one object for the observation night",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger, nil)
			if err != nil {
				return err
			}

			name := args[0]
			date := cfg.ObservationDate(time.Now())
			_, res, err := a.evaluator.EvaluateObject(cmd.Context(), name, date)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Score: %s\n", strconv.FormatFloat(res.Score, 'f', -1, 64))
			fmt.Fprintln(out, res.Message)
			return nil
		},
	}
}
