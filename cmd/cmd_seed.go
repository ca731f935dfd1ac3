package main

import (
	"fmt"

	app "github.com/okian/diarycal/internal/app"
	"github.com/spf13/cobra"
)

func (c *cli) seedCmd() *cobra.Command {
	var (
		req                             app.SeedRequest
		globalPlatt, globalIsotonic     string
		personalPlatt, personalIsotonic string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write or clear profiles by hand",
		Long: `Write or clear profiles by hand. Platt parameters are given as "a,b";
isotonic maps are read from JSON or YAML files. When both kinds are given for
a scope, platt wins. Clears run before writes.

Examples:
  diarycal seed --global-platt 1.8,-0.7
  diarycal seed --subject alice --personal-isotonic alice.yaml --rated 40
  diarycal seed --subject alice --clear-personal`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.Global, err = app.ResolveSeedModel(globalPlatt, globalIsotonic); err != nil {
				return fmt.Errorf("global model: %w", err)
			}
			if req.Personal, err = app.ResolveSeedModel(personalPlatt, personalIsotonic); err != nil {
				return fmt.Errorf("personal model: %w", err)
			}

			actions, err := c.svc.Seed(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, "", actions)
		},
	}
	cmd.Flags().StringVar(&globalPlatt, "global-platt", "", "global platt parameters a,b")
	cmd.Flags().StringVar(&globalIsotonic, "global-isotonic", "", "global isotonic model file")
	cmd.Flags().StringVar(&personalPlatt, "personal-platt", "", "personal platt parameters a,b")
	cmd.Flags().StringVar(&personalIsotonic, "personal-isotonic", "", "personal isotonic model file")
	cmd.Flags().StringVar(&req.SubjectID, "subject", "", "subject for personal writes and clears")
	cmd.Flags().IntVar(&req.Rated, "rated", 0, "sample count recorded with the profile")
	cmd.Flags().IntVar(&req.MinSamples, "min", 0, "personal activation threshold (default min_samples)")
	cmd.Flags().BoolVar(&req.ClearGlobal, "clear-global", false, "delete the global profile")
	cmd.Flags().BoolVar(&req.ClearPersonal, "clear-personal", false, "delete the subject's personal profile")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "print the plan without writing")
	return cmd
}
