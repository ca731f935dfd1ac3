package main

import (
	"time"

	app "github.com/okian/diarycal/internal/app"
	"github.com/okian/diarycal/internal/domain/evaluation"
	"github.com/spf13/cobra"
)

func (c *cli) holdoutCmd() *cobra.Command {
	var (
		req     app.HoldoutRequest
		window  windowFlags
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "holdout",
		Short: "Score the stored global profile on a subject's recent feedback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := app.ResolveWindow(time.Now(), window.days, window.from, window.to)
			if err != nil {
				return err
			}
			req.Window = w

			report, err := c.svc.Holdout(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, outFile, report)
		},
	}
	cmd.Flags().StringVar(&req.SubjectID, "subject", "", "subject to evaluate")
	cmd.Flags().IntVar(&req.Bins, "bins", evaluation.DefaultBins, "ECE bins")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "free-form label copied into the report")
	cmd.Flags().BoolVar(&req.ExplicitOnly, "explicit-only", false, "label records from explicit ratings only")
	cmd.Flags().StringVar(&outFile, "out", "", "write the report to a file instead of stdout")
	window.register(cmd, 7)
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
