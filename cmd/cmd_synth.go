package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/diarycal/internal/adapters/labelstore"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/internal/synth"
	"github.com/okian/diarycal/pkg/logger"
	"github.com/spf13/cobra"
)

func (c *cli) synthCmd() *cobra.Command {
	var (
		cfg     = synth.DefaultConfig()
		days    int
		outFile string
	)
	cfg.Subjects = 3

	cmd := &cobra.Command{
		Use:         "synth",
		Short:       "Write synthetic feedback records as JSONL",
		Annotations: map[string]string{skipStores: ""},
		Long: `Generate records whose labels follow y ~ Bernoulli(sigmoid(a*p + b)),
spread over subject-1..subject-K and the last --days days. Labels are written
as explicit ratings 5 and 1.

Examples:
  diarycal synth --n 500 --a 2 --b -1 --subjects 3 --out records.jsonl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return errors.New("days must be positive")
			}
			cfg.Span = time.Duration(days) * 24 * time.Hour
			cfg.Start = time.Now().UTC().Add(-cfg.Span)

			records, err := synth.Records(cfg)
			if err != nil {
				return err
			}

			if err := writeRecords(cmd.OutOrStdout(), outFile, records); err != nil {
				return err
			}

			c.log.Info(cmd.Context(), "synthetic records written",
				logger.Int("n", len(records)),
				logger.Int("subjects", cfg.Subjects),
				logger.Float64("a", cfg.A),
				logger.Float64("b", cfg.B),
				logger.String("out", outFile),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.N, "n", cfg.N, "number of records")
	cmd.Flags().Float64Var(&cfg.A, "a", cfg.A, "true platt slope")
	cmd.Flags().Float64Var(&cfg.B, "b", cfg.B, "true platt intercept")
	cmd.Flags().IntVar(&cfg.Subjects, "subjects", cfg.Subjects, "number of subjects")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	cmd.Flags().BoolVar(&cfg.Stratified, "stratified", false, "even probability grid with error-diffused labels")
	cmd.Flags().IntVar(&days, "days", 7, "spread observed_at over this many days ending now")
	cmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")
	return cmd
}

func writeRecords(stdout io.Writer, path string, records []model.Record) error {
	if path == "" {
		return labelstore.WriteJSONL(stdout, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return errors.Join(labelstore.WriteJSONL(f, records), f.Close())
}
