package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dendro/pkg/errors"
	"github.com/matzehuels/dendro/pkg/export"
	"github.com/matzehuels/dendro/pkg/pipeline"
)

// parseCommand creates the parse command: Newick file in, tree JSON out.
func (c *CLI) parseCommand() *cobra.Command {
	var (
		output  string
		title   string
		noCache bool
	)
	opts := c.Config.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "parse <tree.nwk>",
		Short: "Parse a Newick dendrogram into a labeled tree JSON",
		Long: `Parse a Newick dendrogram file into a labeled tree JSON.

The input is a single-line, single-quoted Newick description as produced
by hierarchical clustering tools. Parsing derives subtree sizes,
cumulative distances, and the synthesized cluster labels used for
matching, then emits the tree as JSON.

Examples:
  dendro parse examples/left.nwk
  dendro parse examples/left.nwk --cutoff 0.35 -o left.json
  dendro parse examples/left.nwk --keep-duplicates=false --separator "|"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd.Context(), args[0], title, output, noCache, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&title, "title", "", "tree title (defaults to the file name)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addPolicyFlags(cmd, &opts)

	return cmd
}

// runParse builds the tree and writes its JSON form.
func (c *CLI) runParse(ctx context.Context, input, title, output string, noCache bool, opts pipeline.Options) error {
	text, err := readTreeFile(input)
	if err != nil {
		return err
	}
	if title == "" {
		title = treeTitle(input)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.SourceText = text
	opts.SourceTitle = title

	prog := newProgress(c.Logger)
	tree, err := runner.BuildTree(ctx, title, text, opts)
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}
	prog.done(fmt.Sprintf("Parsed %d leaves", tree.LeafCount()))

	data, err := export.MarshalTree(tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	return writeOutput(data, output)
}

// addPolicyFlags registers the label-synthesis flags shared by parse,
// layout, match, and serve.
func addPolicyFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVar(&opts.Separator, "separator", opts.Separator, "token separator for synthesized labels")
	cmd.Flags().BoolVar(&opts.TrimNames, "trim", opts.TrimNames, "trim leaf names at the last separator")
	cmd.Flags().BoolVar(&opts.KeepStructure, "keep-structure", opts.KeepStructure, "wrap synthesized labels in structure markers")
	cmd.Flags().BoolVar(&opts.KeepDuplicates, "keep-duplicates", opts.KeepDuplicates, "keep duplicate tokens in synthesized labels")
	cmd.Flags().Float64Var(&opts.Cutoff, "cutoff", opts.Cutoff, "distance cutoff for label synthesis (0 = half the root distance)")
}

// readTreeFile loads a Newick file as text.
func readTreeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "tree file %s", path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// treeTitle derives a display title from a file path: the base name
// without its extension.
func treeTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeOutput writes data to the output path, or stdout when empty.
func writeOutput(data []byte, output string) error {
	if output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintln(os.Stderr, successLine(fmt.Sprintf("Wrote %s", output)))
	return nil
}
