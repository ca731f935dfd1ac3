package main

import (
	"time"

	app "github.com/okian/diarycal/internal/app"
	"github.com/okian/diarycal/internal/domain/selection"
	"github.com/spf13/cobra"
)

// windowFlags are shared by every command that reads a time window.
type windowFlags struct {
	days int
	from string
	to   string
}

func (w *windowFlags) register(cmd *cobra.Command, defaultDays int) {
	cmd.Flags().IntVar(&w.days, "days", defaultDays, "window length in days ending now")
	cmd.Flags().StringVar(&w.from, "from", "", "window start date YYYY-MM-DD (overrides --days)")
	cmd.Flags().StringVar(&w.to, "to", "", "window end date YYYY-MM-DD, inclusive")
}

func (c *cli) trainCmd() *cobra.Command {
	var (
		req     app.TrainRequest
		window  windowFlags
		method  string
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit and store calibration profiles",
		Long: `Fit platt and isotonic calibrators on the feedback in a window and store
the one with the lowest Brier score. Scopes run in order: global, each
--subject, then every other subject with feedback in the window.

Examples:
  diarycal train --global
  diarycal train --global --all-personal --days 14
  diarycal train --subject alice --method platt --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := app.ResolveWindow(time.Now(), window.days, window.from, window.to)
			if err != nil {
				return err
			}
			m, err := selection.ParseMethod(method)
			if err != nil {
				return err
			}
			req.Window, req.Method = w, m

			report, err := c.svc.Train(cmd.Context(), req)
			if report != nil {
				if werr := writeJSON(cmd, outFile, report); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&req.Global, "global", false, "train the global profile")
	cmd.Flags().StringArrayVar(&req.Subjects, "subject", nil, "train the personal profile of a subject (repeatable)")
	cmd.Flags().BoolVar(&req.AllPersonal, "all-personal", false, "train every subject with feedback in the window")
	cmd.Flags().StringVar(&method, "method", string(selection.MethodAuto), "platt, isotonic or auto")
	cmd.Flags().IntVar(&req.MinSamples, "min-samples", 0, "personal sample threshold (default min_samples)")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "fit and report without writing")
	cmd.Flags().StringVar(&outFile, "out", "", "write the report to a file instead of stdout")
	window.register(cmd, 30)
	return cmd
}
