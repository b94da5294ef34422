package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/app"
	"github.com/kailas-cloud/errmatch/internal/config"
	logpkg "github.com/kailas-cloud/errmatch/internal/logger"
)

// buildFunc wires the application; tests swap it for an in-memory build.
type buildFunc func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error)

// cli carries state resolved by the root command for its subcommands.
type cli struct {
	env        string
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
	build  buildFunc
}

// NewRootCmd creates the root errmatch command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(app.Build)
}

func newRootCmd(build buildFunc) *cobra.Command {
	c := &cli{build: build}

	root := &cobra.Command{
		Use:   "errmatch",
		Short: "errmatch triages build and runtime error logs",
		Long: "errmatch assigns a category and, where possible, a known remedy to an error log,\n" +
			"by semantic search over a catalog of known errors or zero-shot classification.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.env, "env", config.GetEnv(), "environment; selects config/<env>.yaml")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config file (overrides --env lookup)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newServeCmd(c),
		newMatchCmd(c),
		newClassifyCmd(c),
		newTriageCmd(c),
		newReseedCmd(c),
		newMigrateCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) init() error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFile(c.configPath)
	} else {
		c.cfg, err = config.Load(c.env)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := c.cfg.Logging.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.logger, err = logpkg.NewLogger(loggerEnv(c.env), level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	return nil
}

// loggerEnv maps environments the logger does not know onto the development encoder.
func loggerEnv(env string) string {
	switch env {
	case "prod", "local", "dev", "docker", "test":
		return env
	}
	return "local"
}

// open builds the application from cfg.
func (c *cli) open(ctx context.Context, cfg config.Config) (*app.App, error) {
	a, err := c.build(ctx, cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("initializing errmatch: %w", err)
	}
	return a, nil
}

// readJSON decodes one JSON document from r.
func readJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("reading JSON from stdin: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
