package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/errmatch/internal/catalog"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
)

func newReseedCmd(c *cli) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "reseed",
		Short: "Replace the knowledge base with a catalog of known errors",
		Long: "Embeds every catalog entry and atomically replaces the stored known errors.\n" +
			"The catalog is read from --file, then ingestion.catalog_path, then the built-in set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runReseed(cmd.Context(), file, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file (YAML or JSON)")
	return cmd
}

func (c *cli) runReseed(ctx context.Context, file string, out io.Writer) error {
	entries, err := c.loadCatalog(file)
	if err != nil {
		return err
	}

	a, err := c.open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Ingestion.Reseed(ctx, entries)
	if errors.Is(err, domain.ErrDatabaseNotConfigured) {
		_, werr := fmt.Fprintln(out, chitransport.MsgDatabaseMissing)
		return werr
	}
	if err != nil {
		return fmt.Errorf("reseed: %w", err)
	}

	if _, err := fmt.Fprintln(out, "Cleared existing known errors."); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Seeded %d known errors.\n", n)
	return err
}

func (c *cli) loadCatalog(file string) ([]knownerror.Entry, error) {
	if file == "" {
		file = c.cfg.Ingestion.CatalogPath
	}
	if file == "" {
		return catalog.Default(), nil
	}
	entries, err := catalog.Load(file)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", file, err)
	}
	return entries, nil
}
