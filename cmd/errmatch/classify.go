package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/errmatch/internal/config"
	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
)

func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Assign one of the given labels to a log read from stdin",
		Long: "Reads {\"log_text\": \"...\", \"labels\": [...]} from stdin and prints\n" +
			"{\"category\": \"...\", \"confidence\": 0.0}.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runClassify(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (c *cli) runClassify(ctx context.Context, in io.Reader, out io.Writer) error {
	var req chitransport.ClassifyRequest
	if err := readJSON(in, &req); err != nil {
		return err
	}

	// Classification never reads the knowledge base, so skip connecting to it.
	cfg := c.cfg
	cfg.Database = config.DatabaseConfig{Driver: config.DriverMemory}

	a, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Classification.Classify(ctx, req.LogText, req.Labels)
	if err != nil {
		if env, ok := envelope(err, chitransport.MsgNoLogText); ok {
			return writeJSON(out, env)
		}
		return err
	}
	return writeJSON(out, chitransport.NewClassifyResponse(res))
}
