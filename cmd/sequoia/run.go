package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perrin-dev/sequoia"
	"github.com/perrin-dev/sequoia/pkg/program"
	"github.com/perrin-dev/sequoia/pkg/tree"
	"github.com/perrin-dev/sequoia/pkg/types"
)

type runOptions struct {
	*rootOptions
	Document  string
	Collation string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [flags] <expression>",
		Short: "Compile and evaluate an expression",
		Long: `Compile an expression and print its result, one item per line.

With --document, the file is loaded as a YAML tree and becomes the
context item.

Example:
  sequoia run 'sum(1 to 10)'
  sequoia run -d order.yaml 'count(child::item)'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpression(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Document, "document", "d", "", "YAML document to use as the context item")
	cmd.Flags().StringVar(&opts.Collation, "collation", "", "collation URI for string comparison")

	return cmd
}

func runExpression(opts *runOptions, source string, out io.Writer) error {
	logger := newLogger(opts.Verbose)

	var compileOpts []sequoia.CompileOption
	if opts.Collation != "" {
		compileOpts = append(compileOpts, sequoia.WithCollation(opts.Collation))
	}
	p, err := sequoia.Compile(source, compileOpts...)
	if err != nil {
		return err
	}

	runOpts := []program.RunOption{program.WithLogger(logger)}
	if opts.Document != "" {
		doc, err := loadDocument(opts.Document)
		if err != nil {
			return err
		}
		runOpts = append(runOpts, program.WithContextItem(doc))
	}

	items, err := p.Evaluate(runOpts...)
	if err != nil {
		return err
	}
	return printItems(out, items)
}

// loadDocument reads a YAML file into a tree, naming the root element
// after the file.
func loadDocument(path string) (types.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return tree.LoadYAML(data, name)
}

func printItems(out io.Writer, items []types.Item) error {
	for _, it := range items {
		if n, ok := it.(types.Node); ok {
			if err := tree.Serialize(out, n); err != nil {
				return err
			}
			fmt.Fprintln(out)
			continue
		}
		fmt.Fprintln(out, it.StringValue())
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
