package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) applyCmd() *cobra.Command {
	var (
		subject string
		raw     float64
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Calibrate one raw probability",
		Example: `  diarycal apply --subject alice --p 0.73`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := c.svc.Apply(cmd.Context(), subject, raw)
			if err != nil {
				return err
			}
			return writeJSON(cmd, "", applied)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject whose personal profile is preferred")
	cmd.Flags().Float64Var(&raw, "p", 0, "raw probability")
	_ = cmd.MarkFlagRequired("p")
	return cmd
}
