package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) dumpCmd() *cobra.Command {
	var (
		subject string
		all     bool
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print stored profiles keyed by scope",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := c.svc.Dump(cmd.Context(), subject, all)
			if err != nil {
				return err
			}
			return writeJSON(cmd, outFile, profiles)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "include the subject's personal profile")
	cmd.Flags().BoolVar(&all, "all", false, "print every stored profile")
	cmd.Flags().StringVar(&outFile, "out", "", "write to a file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("subject", "all")
	return cmd
}
