// Package pipeline provides the core comparison pipeline for dendro.
//
// This package implements the parse → label → layout → match flow shared
// by the CLI commands and serve mode. Centralizing it keeps behavior
// consistent across entry points and gives every stage the same caching.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Build: parse the Newick text and derive the tree model
//     (subtree sizes, distances, labels, sibling order)
//  2. Layout: compute display coordinates for each tree
//  3. Match: pair sub-clusters across the two trees and compare
//     their branches
//
// Each stage can run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    SourceText: leftNewick,
//	    TargetText: rightNewick,
//	    Mode:       "simi",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	matches := result.Matches
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dendro/pkg/dendro"
	"github.com/matzehuels/dendro/pkg/errors"
	"github.com/matzehuels/dendro/pkg/match"
)

// Default values shared by the CLI and serve mode.
const (
	// DefaultSeparator joins label tokens and splits composite labels.
	DefaultSeparator = "-"

	// DefaultMinLeaves is the smallest sub-cluster considered for
	// matching. Single leaves are trivially equal and never reported.
	DefaultMinLeaves = 2

	// DefaultWidth is the default frame width in pixels.
	DefaultWidth = 800.0

	// DefaultHeight is the default frame height in pixels.
	DefaultHeight = 600.0

	// DefaultLabelReserve is the horizontal space reserved for leaf
	// labels on a mirrored tree.
	DefaultLabelReserve = 100.0

	// DefaultCacheTTL bounds how long stage results stay cached.
	DefaultCacheTTL = 24 * time.Hour
)

// DefaultMode is the default branch-highlight mode.
const DefaultMode = match.ModeNone

// Options contains all configuration for the comparison pipeline.
// The struct supports JSON serialization for serve-mode requests.
type Options struct {
	// Inputs: raw Newick text, one tree per side. TargetText may be
	// empty for single-tree runs (parse, layout).
	SourceText  string `json:"source_text"`
	TargetText  string `json:"target_text,omitempty"`
	SourceTitle string `json:"source_title,omitempty"`
	TargetTitle string `json:"target_title,omitempty"`

	// Label-synthesis policy
	TrimNames      bool    `json:"trim_names,omitempty"`
	KeepStructure  bool    `json:"keep_structure,omitempty"`
	KeepDuplicates bool    `json:"keep_duplicates,omitempty"`
	Separator      string  `json:"separator,omitempty"`
	Cutoff         float64 `json:"cutoff,omitempty"` // 0 = half the root distance

	// Matching
	MinLeaves int    `json:"min_leaves,omitempty"`
	Mode      string `json:"mode,omitempty"`

	// Layout frame
	Width        float64 `json:"width,omitempty"`
	Height       float64 `json:"height,omitempty"`
	OffsetX      float64 `json:"offset_x,omitempty"`
	OffsetY      float64 `json:"offset_y,omitempty"`
	LabelReserve float64 `json:"label_reserve,omitempty"`

	// FlipTarget mirrors the target tree so the pair faces each other
	// on screen, leaves toward leaves.
	FlipTarget bool `json:"flip_target,omitempty"`

	// Refresh bypasses the cache for every stage.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.SourceText == "" {
		return errors.New(errors.ErrCodeInvalidInput, "source tree text is required")
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.MinLeaves == 0 {
		o.MinLeaves = DefaultMinLeaves
	}
	if o.MinLeaves < 1 {
		return errors.New(errors.ErrCodeInvalidPolicy, "min leaves must be at least 1, got %d", o.MinLeaves)
	}
	if o.Cutoff < 0 {
		return errors.New(errors.ErrCodeInvalidPolicy, "cutoff must be non-negative, got %g", o.Cutoff)
	}
	if o.Mode == "" {
		o.Mode = string(DefaultMode)
	}
	if _, err := match.ParseMode(o.Mode); err != nil {
		return err
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidFrame, "frame dimensions must be positive: %gx%g", o.Width, o.Height)
	}
	if o.LabelReserve == 0 {
		o.LabelReserve = DefaultLabelReserve
	}
	if o.SourceTitle == "" {
		o.SourceTitle = "source"
	}
	if o.TargetTitle == "" {
		o.TargetTitle = "target"
	}

	o.validated = true
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Source and Target are the built trees with coordinates assigned.
	// Target is nil for single-tree runs.
	Source *dendro.Tree
	Target *dendro.Tree

	// SourceHash and TargetHash fingerprint the serialized trees for
	// cache keys and serve-mode ETags.
	SourceHash string
	TargetHash string

	// Matches pairs sub-clusters across the two trees, with branch
	// comparisons populated according to the highlight mode.
	Matches []*match.ClusterMatch

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	SourceLeaves int
	TargetLeaves int
	MatchCount   int
	ParseTime    time.Duration
	LayoutTime   time.Duration
	MatchTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SourceHit bool // source tree came from cache
	TargetHit bool // target tree came from cache
	LayoutHit bool // both layouts came from cache
	MatchHit  bool // match list came from cache
}
