package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/errmatch/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print errmatch version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "errmatch", version.String())
			return err
		},
	}
}
