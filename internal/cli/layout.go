package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dendro/pkg/cache"
	"github.com/matzehuels/dendro/pkg/export"
	"github.com/matzehuels/dendro/pkg/pipeline"
)

// layoutCommand creates the layout command for computing display coordinates.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		title   string
		noCache bool
		flip    bool
	)
	opts := c.Config.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "layout <tree.nwk>",
		Short: "Compute display coordinates for a dendrogram",
		Long: `Compute display coordinates for a dendrogram.

The layout places the tree root-left, leaves-right inside the given
frame: leaves evenly spaced along Y, every node's X proportional to its
distance from the leaf line. With --flip the tree is mirrored so it can
face a second tree on screen.

The output is the tree JSON with x/y assigned to every node.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], title, output, noCache, flip, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&title, "title", "", "tree title (defaults to the file name)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&flip, "flip", false, "mirror the tree horizontally")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "frame width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "frame height")
	cmd.Flags().Float64Var(&opts.OffsetX, "offset-x", opts.OffsetX, "frame X offset")
	cmd.Flags().Float64Var(&opts.OffsetY, "offset-y", opts.OffsetY, "frame Y offset")
	cmd.Flags().Float64Var(&opts.LabelReserve, "label-reserve", opts.LabelReserve, "horizontal space reserved for labels when flipped")
	addPolicyFlags(cmd, &opts)

	return cmd
}

// runLayout builds the tree, assigns coordinates, and writes the result.
func (c *CLI) runLayout(ctx context.Context, input, title, output string, noCache, flip bool, opts pipeline.Options) error {
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

	tree, err := runner.BuildTree(ctx, title, text, opts)
	if err != nil {
		return fmt.Errorf("build %s: %w", input, err)
	}
	if flip {
		tree.Flipped = true
	}

	data, err := export.MarshalTree(tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}

	spinner := newSpinner(ctx, "Computing layout...")
	spinner.Start()
	if _, err := runner.LayoutWithCacheInfo(ctx, tree, cache.Hash(data), opts); err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	out, err := export.MarshalTree(tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	return writeOutput(out, output)
}
