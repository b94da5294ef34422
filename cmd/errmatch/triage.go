package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
)

func newTriageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "triage",
		Short: "Match a log against the catalog, falling back to classification",
		Long: "Reads {\"log_text\": \"...\", \"labels\": [...]} from stdin. A catalogued match at or above\n" +
			"triage.min_similarity wins; otherwise the log is classified against the labels\n" +
			"(triage.default_labels when none are given).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTriage(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (c *cli) runTriage(ctx context.Context, in io.Reader, out io.Writer) error {
	var req chitransport.ClassifyRequest
	if err := readJSON(in, &req); err != nil {
		return err
	}

	a, err := c.open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.Triage.Triage(ctx, req.LogText, req.Labels)
	if err != nil {
		if env, ok := envelope(err, chitransport.MsgNoLogText); ok {
			return writeJSON(out, env)
		}
		return err
	}
	return writeJSON(out, chitransport.NewTriageResponse(v))
}
