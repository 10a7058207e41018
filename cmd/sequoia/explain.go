package main

import (
	"github.com/spf13/cobra"

	"github.com/perrin-dev/sequoia"
)

func newExplainCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <expression>",
		Short: "Print the optimized expression tree",
		Long: `Compile an expression and dump the tree left after static
analysis, showing what simplification and optimization rewrote.

Example:
  sequoia explain 'if (true()) then 1 else 2'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := sequoia.Compile(args[0])
			if err != nil {
				return err
			}
			p.Explain(cmd.OutOrStdout())
			return nil
		},
	}
}
