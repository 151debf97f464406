package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/born-ml/tdd/internal/config"
	"github.com/born-ml/tdd/internal/dense"
	"github.com/born-ml/tdd/internal/tdd"
)

// cli carries the state shared by all subcommands.
type cli struct {
	configPath string
	logLevel   string
	dbDir      string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "tdd",
		Short:         "Build, contract and store tensor decision diagrams",
		Long:          `tdd converts dense complex tensors into canonical decision diagrams, operates on them without expanding, and keeps named diagrams in a local database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "engine config file (YAML)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&c.dbDir, "db", "tdd-data", "diagram store directory")

	root.AddCommand(
		newVersionCmd(),
		newInspectCmd(c),
		newContractCmd(c),
		newTensordotCmd(c),
		newExportCmd(c),
		newSaveCmd(c),
		newLoadCmd(c),
		newListCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	return nil
}

func (c *cli) engine() (*tdd.Engine, error) {
	return tdd.NewEngine(c.cfg, tdd.WithLogger(c.logger))
}

// load reads a tensor file and builds its diagram.
func (c *cli) load(e *tdd.Engine, path string, order []int) (*tdd.TDD, int, error) {
	a, batch, err := dense.LoadJSON(path)
	if err != nil {
		return nil, 0, err
	}
	opts := []tdd.TensorOption{tdd.WithBatch(batch)}
	if len(order) > 0 {
		opts = append(opts, tdd.WithOrder(order...))
	}
	d, err := e.AsTensor(a, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return d, batch, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tdd %s\n", version)
		},
	}
}

// writeResult prints d as a tensor file, to out when set and stdout otherwise.
func writeResult(cmd *cobra.Command, d *tdd.TDD, out string) error {
	a := d.Materialize()
	batch := len(d.ParallelShape())
	if out == "" {
		return dense.WriteJSON(cmd.OutOrStdout(), a, batch)
	}
	//nolint:gosec // G304: output path is user-supplied
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	return dense.WriteJSON(f, a, batch)
}
