package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dendro/pkg/cache"
	"github.com/matzehuels/dendro/pkg/dendro"
	"github.com/matzehuels/dendro/pkg/dendro/layout"
	"github.com/matzehuels/dendro/pkg/export"
	"github.com/matzehuels/dendro/pkg/match"
	"github.com/matzehuels/dendro/pkg/newick"
	"github.com/matzehuels/dendro/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and serve mode use it to avoid duplicating cache logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → layout → match pipeline with caching.
// Single-tree options (empty TargetText) skip the match stage.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Build
	buildStart := time.Now()
	src, srcHit, err := r.BuildTreeWithCacheInfo(ctx, opts.SourceTitle, opts.SourceText, opts)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", opts.SourceTitle, err)
	}
	result.Source = src
	result.CacheInfo.SourceHit = srcHit
	result.Stats.SourceLeaves = src.LeafCount()
	result.SourceHash = treeHash(src)

	if opts.TargetText != "" {
		dst, dstHit, err := r.BuildTreeWithCacheInfo(ctx, opts.TargetTitle, opts.TargetText, opts)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", opts.TargetTitle, err)
		}
		if opts.FlipTarget {
			dst.Flipped = true
		}
		result.Target = dst
		result.CacheInfo.TargetHit = dstHit
		result.Stats.TargetLeaves = dst.LeafCount()
		result.TargetHash = treeHash(dst)
	}
	result.Stats.ParseTime = time.Since(buildStart)

	r.Logger.Info("built trees",
		"source_leaves", result.Stats.SourceLeaves,
		"target_leaves", result.Stats.TargetLeaves,
		"duration", result.Stats.ParseTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	srcLayoutHit, err := r.LayoutWithCacheInfo(ctx, src, result.SourceHash, opts)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", src.Title, err)
	}
	dstLayoutHit := true
	if result.Target != nil {
		dstLayoutHit, err = r.LayoutWithCacheInfo(ctx, result.Target, result.TargetHash, opts)
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", result.Target.Title, err)
		}
	}
	result.CacheInfo.LayoutHit = srcLayoutHit && dstLayoutHit
	result.Stats.LayoutTime = time.Since(layoutStart)

	// Stage 3: Match
	if result.Target != nil {
		matchStart := time.Now()
		matches, matchHit, err := r.MatchWithCacheInfo(ctx, src, result.Target, result.SourceHash, result.TargetHash, opts)
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		result.Matches = matches
		result.CacheInfo.MatchHit = matchHit
		result.Stats.MatchCount = len(matches)
		result.Stats.MatchTime = time.Since(matchStart)

		r.Logger.Info("matched clusters",
			"matches", len(matches),
			"min_leaves", opts.MinLeaves,
			"mode", opts.Mode,
			"duration", result.Stats.MatchTime)
	}

	return result, nil
}

// BuildTreeWithCacheInfo parses the Newick text and derives the full tree
// model (sizes, distances, labels, sibling order), reporting whether the
// result came from the cache.
func (r *Runner) BuildTreeWithCacheInfo(ctx context.Context, title, text string, opts Options) (*dendro.Tree, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	key := r.Keyer.TreeKey(cache.Hash([]byte(text)), cache.TreeKeyOpts{
		Trim:           opts.TrimNames,
		KeepStructure:  opts.KeepStructure,
		KeepDuplicates: opts.KeepDuplicates,
		Separator:      opts.Separator,
		Cutoff:         opts.Cutoff,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "tree")
			t, err := export.ReadTree(bytes.NewReader(data))
			if err == nil {
				t.Title = title
				return t, true, nil
			}
			// Corrupt entry: fall through and rebuild.
		}
		observability.Cache().OnCacheMiss(ctx, "tree")
	}

	observability.Pipeline().OnParseStart(ctx, title)
	start := time.Now()
	t, err := buildTree(title, text, opts)
	observability.Pipeline().OnParseComplete(ctx, title, leafCountOf(t), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := export.MarshalTree(t); err == nil {
		if err := r.Cache.Set(ctx, key, data, DefaultCacheTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "tree", len(data))
		}
	}
	return t, false, nil
}

// BuildTree is BuildTreeWithCacheInfo without the cache-hit flag.
func (r *Runner) BuildTree(ctx context.Context, title, text string, opts Options) (*dendro.Tree, error) {
	t, _, err := r.BuildTreeWithCacheInfo(ctx, title, text, opts)
	return t, err
}

// buildTree runs the derivation passes over freshly parsed text.
func buildTree(title, text string, opts Options) (*dendro.Tree, error) {
	root, err := newick.Parse(newick.Strip(text))
	if err != nil {
		return nil, err
	}

	t := dendro.NewTree(title)
	if err := t.SetRoot(root); err != nil {
		return nil, err
	}
	t.ComputeSubtreeSizes()
	t.InitLeafCount()
	t.SetDistance()
	if opts.Cutoff > 0 {
		t.SetCutoff(opts.Cutoff)
	}
	t.SetLeafLabels(opts.TrimNames, opts.Separator)
	t.SetLabels(opts.KeepStructure, opts.KeepDuplicates, opts.Separator)
	t.Sort()
	return t, nil
}

// LayoutWithCacheInfo computes display coordinates for t, reporting
// whether they came from the cache. On a hit the cached coordinates are
// copied onto t's nodes by id.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, t *dendro.Tree, hash string, opts Options) (bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return false, err
	}

	key := r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		Width:        opts.Width,
		Height:       opts.Height,
		OffsetX:      opts.OffsetX,
		OffsetY:      opts.OffsetY,
		LabelReserve: opts.LabelReserve,
		Flipped:      t.Flipped,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "layout")
			if applyCachedCoordinates(t, data) {
				return true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	observability.Pipeline().OnLayoutStart(ctx, t.Title, nodeCountOf(t))
	start := time.Now()
	err := layout.Update(t, layout.Options{
		OffsetX:      opts.OffsetX,
		OffsetY:      opts.OffsetY,
		Width:        opts.Width,
		Height:       opts.Height,
		LabelReserve: opts.LabelReserve,
	})
	observability.Pipeline().OnLayoutComplete(ctx, t.Title, time.Since(start), err)
	if err != nil {
		return false, err
	}

	if data, err := export.MarshalTree(t); err == nil {
		if err := r.Cache.Set(ctx, key, data, DefaultCacheTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return false, nil
}

// MatchWithCacheInfo finds sub-cluster matches between source and target
// and populates their branch comparisons, reporting whether the match
// list came from the cache.
func (r *Runner) MatchWithCacheInfo(ctx context.Context, source, target *dendro.Tree, sourceHash, targetHash string, opts Options) ([]*match.ClusterMatch, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	mode, err := match.ParseMode(opts.Mode)
	if err != nil {
		return nil, false, err
	}

	key := r.Keyer.MatchKey(sourceHash, targetHash, cache.MatchKeyOpts{
		MinLeaves: opts.MinLeaves,
		Mode:      opts.Mode,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "match")
			if matches, err := restoreMatches(data, source, target); err == nil {
				return matches, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "match")
	}

	observability.Pipeline().OnMatchStart(ctx, source.Title, target.Title, opts.MinLeaves)
	start := time.Now()
	matches := match.FindMatchingClusters(source.Root, target, opts.MinLeaves)
	for _, m := range matches {
		match.InitEqualBranches(m, mode)
	}
	observability.Pipeline().OnMatchComplete(ctx, source.Title, target.Title, len(matches), time.Since(start), nil)

	if data, err := json.Marshal(export.FromMatches(matches)); err == nil {
		if err := r.Cache.Set(ctx, key, data, DefaultCacheTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "match", len(data))
		}
	}
	return matches, false, nil
}

// Close releases the runner's cache resources.
func (r *Runner) Close() error {
	return r.Cache.Close()
}

// applyLogger threads the runner's logger into options and vice versa.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger != nil {
		r.Logger = opts.Logger
		return
	}
	opts.Logger = r.Logger
}

// treeHash fingerprints a tree's serialized form. Coordinates are not
// yet assigned at hash time, so the hash is stable across layout passes.
func treeHash(t *dendro.Tree) string {
	data, err := export.MarshalTree(t)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// applyCachedCoordinates copies cached X/Y values onto t's nodes by id.
// Returns false when the cached shape doesn't cover t.
func applyCachedCoordinates(t *dendro.Tree, data []byte) bool {
	var tj export.Tree
	if err := json.Unmarshal(data, &tj); err != nil {
		return false
	}
	coords := make(map[string][2]float64, len(tj.Nodes))
	for _, nj := range tj.Nodes {
		coords[nj.ID] = [2]float64{nj.X, nj.Y}
	}

	ok := true
	t.Root.Each(func(n *dendro.Node) {
		c, found := coords[n.ID]
		if !found {
			ok = false
			return
		}
		n.X, n.Y = c[0], c[1]
	})
	return ok
}

// restoreMatches rebuilds cluster matches from their serialized form,
// resolving node ids against the live trees.
func restoreMatches(data []byte, source, target *dendro.Tree) ([]*match.ClusterMatch, error) {
	var mjs []export.Match
	if err := json.Unmarshal(data, &mjs); err != nil {
		return nil, err
	}

	srcIndex := indexNodes(source)
	dstIndex := indexNodes(target)

	matches := make([]*match.ClusterMatch, 0, len(mjs))
	for _, mj := range mjs {
		src, ok := srcIndex[mj.Source]
		if !ok {
			return nil, fmt.Errorf("unknown source node %s", mj.Source)
		}
		dst, ok := dstIndex[mj.Target]
		if !ok {
			return nil, fmt.Errorf("unknown target node %s", mj.Target)
		}
		matches = append(matches, &match.ClusterMatch{
			ID:          mj.ID,
			Label:       mj.Label,
			Source:      src,
			Target:      dst,
			Color:       mj.Color,
			SourceEdges: mj.SourceEdges,
			TargetEdges: mj.TargetEdges,
		})
	}
	return matches, nil
}

func indexNodes(t *dendro.Tree) map[string]*dendro.Node {
	index := make(map[string]*dendro.Node)
	if t.Root != nil {
		t.Root.Each(func(n *dendro.Node) { index[n.ID] = n })
	}
	return index
}

func leafCountOf(t *dendro.Tree) int {
	if t == nil {
		return 0
	}
	return t.LeafCount()
}

func nodeCountOf(t *dendro.Tree) int {
	count := 0
	if t.Root != nil {
		t.Root.Each(func(*dendro.Node) { count++ })
	}
	return count
}
