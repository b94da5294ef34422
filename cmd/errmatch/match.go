package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/errmatch/internal/domain"
	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
)

func newMatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Find the closest known error for a log read from stdin",
		Long: "Reads {\"error_text\": \"...\"} from stdin and prints the closest catalogued error\n" +
			"as JSON, or {\"error\": \"...\"} when there is nothing to report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runMatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (c *cli) runMatch(ctx context.Context, in io.Reader, out io.Writer) error {
	var req chitransport.MatchRequest
	if err := readJSON(in, &req); err != nil {
		return err
	}
	// Rejected before any model or store is opened.
	if domain.NormalizeText(req.ErrorText) == "" {
		return writeJSON(out, chitransport.ErrorResponse{Error: chitransport.MsgNoErrorText})
	}

	a, err := c.open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	m, found, err := a.Matching.FindBestMatch(ctx, req.ErrorText)
	if err != nil {
		if env, ok := envelope(err, chitransport.MsgNoErrorText); ok {
			return writeJSON(out, env)
		}
		return err
	}
	if !found {
		return writeJSON(out, chitransport.ErrorResponse{Error: chitransport.MsgNoMatches})
	}
	return writeJSON(out, chitransport.NewMatchResponse(m))
}
