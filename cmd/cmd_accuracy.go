package main

import (
	"time"

	app "github.com/okian/diarycal/internal/app"
	"github.com/spf13/cobra"
)

func (c *cli) accuracyCmd() *cobra.Command {
	var (
		req     app.AccuracyRequest
		window  windowFlags
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Exact-match accuracy and F1 against explicit ratings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := app.ResolveWindow(time.Now(), window.days, window.from, window.to)
			if err != nil {
				return err
			}
			req.Window = w

			report, err := c.svc.Accuracy(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, outFile, report)
		},
	}
	cmd.Flags().StringVar(&req.SubjectID, "subject", "", "restrict to one subject")
	cmd.Flags().Float64Var(&req.Threshold, "threshold", 0.5, "predict positive when p >= threshold")
	cmd.Flags().Float64Var(&req.PositiveRating, "pos-rating", 0, "lowest positive rating (default positive_rating)")
	cmd.Flags().BoolVar(&req.ApplyCalibration, "apply-calibration", false, "calibrate each probability before thresholding")
	cmd.Flags().StringVar(&outFile, "out", "", "write the report to a file instead of stdout")
	window.register(cmd, 30)
	return cmd
}
