package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/errmatch/internal/domain"
	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the knowledge base schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runMigrate(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (c *cli) runMigrate(ctx context.Context, out io.Writer) error {
	a, err := c.open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		if errors.Is(err, domain.ErrDatabaseNotConfigured) {
			_, werr := fmt.Fprintln(out, chitransport.MsgDatabaseMissing)
			return werr
		}
		return fmt.Errorf("migrate: %w", err)
	}

	n, err := a.Count(ctx)
	if err != nil {
		return fmt.Errorf("count known errors: %w", err)
	}
	_, err = fmt.Fprintf(out, "Schema ready (%s, %d known errors).\n", c.cfg.Database.Driver, n)
	return err
}
