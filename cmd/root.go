package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	app "github.com/okian/diarycal/internal/app"
	"github.com/okian/diarycal/internal/config"
	"github.com/okian/diarycal/pkg/logger"
	"github.com/okian/diarycal/pkg/metrics"
	"github.com/spf13/cobra"
)

const (
	pushTimeout = 10 * time.Second

	// skipStores marks commands that run without profile or label stores.
	skipStores = "diarycal/skip-stores"
)

// cli carries the state shared by every command of one invocation.
type cli struct {
	cfgPath      string
	ensureSchema bool

	cfg     *config.Config
	svc     *app.Service
	db      *sqlx.DB
	log     logger.Logger
	command string
	started time.Time
	closers []func() error
}

func execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

// run executes one command line. Resources opened by the command are released
// and metrics pushed even when the command fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() { err = errors.Join(err, c.finish(ctx)) }()
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "diarycal",
		Short: "Train, evaluate and apply confidence calibration profiles",
		Long: `diarycal fits Platt and isotonic calibrators on labelled feedback,
keeps the one with the lowest Brier score per scope, and applies stored
profiles to raw model confidences.

Configuration is read from defaults, the YAML file named by --config or
DIARYCAL_CONFIG, and DIARYCAL_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().BoolVar(&c.ensureSchema, "ensure-schema", false, "create the postgres profile table if it is missing")

	root.AddCommand(
		c.trainCmd(),
		c.holdoutCmd(),
		c.seedCmd(),
		c.dumpCmd(),
		c.accuracyCmd(),
		c.applyCmd(),
		c.synthCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	c.command = cmd.Name()
	c.started = time.Now()

	path := c.cfgPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	c.log = logger.Get().Named("cli")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg

	if _, ok := cmd.Annotations[skipStores]; ok {
		return nil
	}

	profiles, err := c.openProfiles(ctx)
	if err != nil {
		return err
	}
	labels, err := c.openLabels(ctx)
	if err != nil {
		return err
	}
	c.svc = app.New(profiles, labels, c.serviceOptions()...)
	return nil
}

// finish records the job duration, pushes metrics when a Pushgateway is
// configured, and closes connections in reverse opening order.
func (c *cli) finish(ctx context.Context) error {
	if c.cfg == nil {
		return nil
	}
	metrics.ObserveJobDuration(c.command, time.Since(c.started))

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := metrics.Push(pushCtx, c.cfg.PushgatewayURL, c.cfg.MetricsJob); err != nil {
		c.log.Warn(ctx, "metrics push failed", logger.String("url", c.cfg.PushgatewayURL), logger.Error(err))
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// writeJSON prints v as indented JSON to path, or to the command output when
// path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
