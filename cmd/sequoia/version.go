package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perrin-dev/sequoia"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sequoia version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "sequoia", sequoia.Version())
		},
	}
}
