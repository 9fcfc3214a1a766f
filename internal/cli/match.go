package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dendro/pkg/export"
	"github.com/matzehuels/dendro/pkg/pipeline"
)

// matchCommand creates the match command for comparing two dendrograms.
func (c *CLI) matchCommand() *cobra.Command {
	var (
		output      string
		noCache     bool
		interactive bool
	)
	opts := c.Config.pipelineOptions()
	opts.FlipTarget = true

	cmd := &cobra.Command{
		Use:   "match <source.nwk> <target.nwk>",
		Short: "Pair sub-clusters across two dendrograms",
		Long: `Pair sub-clusters across two dendrograms.

Both trees are parsed and labeled, then every labeled cluster of the
source with at least --min-leaves leaves is looked up in the target by
label. For each pair, --mode selects which branches the output
highlights: none, simi (structurally equal branches), or diff
(branches without a counterpart).

The output is a comparison JSON holding both laid-out trees and the
match list. Use --interactive to browse matches in the terminal instead.

Examples:
  dendro match left.nwk right.nwk -o comparison.json
  dendro match left.nwk right.nwk --mode diff --min-leaves 4
  dendro match left.nwk right.nwk --interactive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMatch(cmd.Context(), args[0], args[1], output, noCache, interactive, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse matches in an interactive list")
	cmd.Flags().IntVar(&opts.MinLeaves, "min-leaves", opts.MinLeaves, "minimum subtree size for a match")
	cmd.Flags().StringVar(&opts.Mode, "mode", opts.Mode, "branch highlight mode: none, simi, diff")
	cmd.Flags().BoolVar(&opts.FlipTarget, "flip-target", opts.FlipTarget, "mirror the target tree to face the source")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", opts.Refresh, "bypass the cache for every stage")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "frame width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "frame height")
	cmd.Flags().Float64Var(&opts.LabelReserve, "label-reserve", opts.LabelReserve, "horizontal space reserved for labels when flipped")
	addPolicyFlags(cmd, &opts)

	return cmd
}

// runMatch runs the full build, layout, and match pipeline over two files.
func (c *CLI) runMatch(ctx context.Context, sourcePath, targetPath, output string, noCache, interactive bool, opts pipeline.Options) error {
	sourceText, err := readTreeFile(sourcePath)
	if err != nil {
		return err
	}
	targetText, err := readTreeFile(targetPath)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.SourceText = sourceText
	opts.TargetText = targetText
	opts.SourceTitle = treeTitle(sourcePath)
	opts.TargetTitle = treeTitle(targetPath)
	opts.Logger = c.Logger

	spinner := newSpinner(ctx, "Comparing trees...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Comparison failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if interactive {
		return browseMatches(ctx, result)
	}

	comparison := export.Comparison{
		Source:    export.FromTree(result.Source),
		Target:    export.FromTree(result.Target),
		Matches:   export.FromMatches(result.Matches),
		MinLeaves: opts.MinLeaves,
		Mode:      opts.Mode,
	}
	data, err := export.MarshalComparison(comparison)
	if err != nil {
		return fmt.Errorf("marshal comparison: %w", err)
	}
	if err := writeOutput(data, output); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, successLine(fmt.Sprintf("Matched %d clusters (%d vs %d leaves)",
		result.Stats.MatchCount, result.Stats.SourceLeaves, result.Stats.TargetLeaves)))
	if result.CacheInfo.SourceHit && result.CacheInfo.TargetHit && result.CacheInfo.MatchHit {
		fmt.Fprintln(os.Stderr, StyleDim.Render("  (from cache)"))
	}
	return nil
}
