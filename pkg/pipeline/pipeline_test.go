package pipeline

import (
	"context"
	"testing"

	"github.com/matzehuels/dendro/pkg/cache"
	"github.com/matzehuels/dendro/pkg/errors"
)

const (
	sourceNewick = "'A':0.7,('B':0.3,'C':0.3):0.4;"
	targetNewick = "('B':0.3,'C':0.3):0.4,'D':0.7;"
)

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr errors.Code
		check   func(t *testing.T, o Options)
	}{
		{
			name: "Defaults",
			opts: Options{SourceText: sourceNewick},
			check: func(t *testing.T, o Options) {
				if o.Separator != DefaultSeparator {
					t.Errorf("separator = %q, want %q", o.Separator, DefaultSeparator)
				}
				if o.MinLeaves != DefaultMinLeaves {
					t.Errorf("min leaves = %d, want %d", o.MinLeaves, DefaultMinLeaves)
				}
				if o.Mode != string(DefaultMode) {
					t.Errorf("mode = %q, want %q", o.Mode, DefaultMode)
				}
				if o.Width != DefaultWidth || o.Height != DefaultHeight {
					t.Errorf("frame = %gx%g, want %gx%g", o.Width, o.Height, DefaultWidth, DefaultHeight)
				}
				if o.SourceTitle != "source" {
					t.Errorf("source title = %q, want source", o.SourceTitle)
				}
			},
		},
		{
			name:    "MissingSource",
			opts:    Options{},
			wantErr: errors.ErrCodeInvalidInput,
		},
		{
			name:    "NegativeMinLeaves",
			opts:    Options{SourceText: sourceNewick, MinLeaves: -1},
			wantErr: errors.ErrCodeInvalidPolicy,
		},
		{
			name:    "NegativeCutoff",
			opts:    Options{SourceText: sourceNewick, Cutoff: -0.1},
			wantErr: errors.ErrCodeInvalidPolicy,
		},
		{
			name:    "BadMode",
			opts:    Options{SourceText: sourceNewick, Mode: "different"},
			wantErr: errors.ErrCodeInvalidMode,
		},
		{
			name:    "NegativeFrame",
			opts:    Options{SourceText: sourceNewick, Width: -800},
			wantErr: errors.ErrCodeInvalidFrame,
		},
		{
			name: "ExplicitValuesKept",
			opts: Options{SourceText: sourceNewick, Separator: "|", MinLeaves: 4, Mode: "diff"},
			check: func(t *testing.T, o Options) {
				if o.Separator != "|" || o.MinLeaves != 4 || o.Mode != "diff" {
					t.Errorf("explicit options overwritten: %+v", o)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("validation succeeded, want error")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error code = %v, want %v", errors.GetCode(err), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validation: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.opts)
			}
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	opts := Options{SourceText: sourceNewick, Separator: "|"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first validation: %v", err)
	}
	opts.Separator = "" // would be refilled by a second pass
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second validation: %v", err)
	}
	if opts.Separator != "" {
		t.Error("second validation ran again; expected it to be a no-op")
	}
}

func TestExecuteSingleTree(t *testing.T) {
	r := NewRunner(cache.NewNullCache(), nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), Options{
		SourceText:  sourceNewick,
		SourceTitle: "left",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Source == nil {
		t.Fatal("no source tree")
	}
	if result.Target != nil {
		t.Error("single-tree run produced a target")
	}
	if result.Matches != nil {
		t.Error("single-tree run produced matches")
	}
	if result.Stats.SourceLeaves != 3 {
		t.Errorf("source leaves = %d, want 3", result.Stats.SourceLeaves)
	}
	if result.SourceHash == "" {
		t.Error("source hash not set")
	}

	// Layout ran: the root and a leaf cannot share an X coordinate.
	leaf := result.Source.Root.Leaves()[0]
	if result.Source.Root.X == leaf.X {
		t.Error("layout did not assign coordinates")
	}
}

func TestExecuteComparison(t *testing.T) {
	r := NewRunner(cache.NewNullCache(), nil, nil)
	defer r.Close()

	result, err := r.Execute(context.Background(), Options{
		SourceText:  sourceNewick,
		TargetText:  targetNewick,
		SourceTitle: "left",
		TargetTitle: "right",
		Mode:        "simi",
		FlipTarget:  true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Target == nil {
		t.Fatal("no target tree")
	}
	if !result.Target.Flipped {
		t.Error("target tree not flipped")
	}
	if result.Source.Flipped {
		t.Error("source tree flipped")
	}

	if result.Stats.MatchCount != 1 {
		t.Fatalf("matches = %d, want 1", result.Stats.MatchCount)
	}
	m := result.Matches[0]
	if m.Label != "_B-C_" {
		t.Errorf("match label = %q, want _B-C_", m.Label)
	}
	if len(m.SourceEdges) != 2 || len(m.TargetEdges) != 2 {
		t.Errorf("equal edges = %d/%d, want 2/2", len(m.SourceEdges), len(m.TargetEdges))
	}
}

func TestExecuteInvalidTree(t *testing.T) {
	r := NewRunner(cache.NewNullCache(), nil, nil)
	defer r.Close()

	_, err := r.Execute(context.Background(), Options{SourceText: "('A':0.5"})
	if err == nil {
		t.Fatal("Execute succeeded on malformed input")
	}
	if !errors.Is(err, errors.ErrCodeInvalidTree) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidTree)
	}
}

func TestBuildTreeCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	ctx := context.Background()
	opts := Options{SourceText: sourceNewick}

	_, hit, err := r.BuildTreeWithCacheInfo(ctx, "left", sourceNewick, opts)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if hit {
		t.Error("first build reported a cache hit")
	}

	tree, hit, err := r.BuildTreeWithCacheInfo(ctx, "left", sourceNewick, opts)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !hit {
		t.Error("second build missed the cache")
	}
	if tree.Title != "left" {
		t.Errorf("cached tree title = %q, want left", tree.Title)
	}
	if tree.LeafCount() != 3 {
		t.Errorf("cached tree leaves = %d, want 3", tree.LeafCount())
	}

	// A different label policy is a different cache entry.
	changed := opts
	changed.Cutoff = 0.1
	_, hit, err = r.BuildTreeWithCacheInfo(ctx, "left", sourceNewick, changed)
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	if hit {
		t.Error("changed policy hit the old cache entry")
	}

	// Refresh bypasses the cache.
	refreshed := opts
	refreshed.Refresh = true
	_, hit, err = r.BuildTreeWithCacheInfo(ctx, "left", sourceNewick, refreshed)
	if err != nil {
		t.Fatalf("refresh build: %v", err)
	}
	if hit {
		t.Error("refresh reported a cache hit")
	}
}

func TestExecuteCachedRoundTrip(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	opts := Options{
		SourceText: sourceNewick,
		TargetText: targetNewick,
		Mode:       "diff",
		FlipTarget: true,
	}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}

	if !second.CacheInfo.SourceHit || !second.CacheInfo.TargetHit {
		t.Error("second run should hit the tree cache")
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.MatchHit {
		t.Error("second run should hit the layout and match caches")
	}

	if len(first.Matches) != len(second.Matches) {
		t.Fatalf("match counts differ: %d vs %d", len(first.Matches), len(second.Matches))
	}
	for i := range first.Matches {
		a, b := first.Matches[i], second.Matches[i]
		if a.Label != b.Label || a.Source.ID != b.Source.ID || a.Target.ID != b.Target.ID {
			t.Errorf("match %d differs after cache round trip", i)
		}
	}

	// Cached coordinates equal freshly computed ones.
	firstLeaves := first.Source.Root.Leaves()
	secondLeaves := second.Source.Root.Leaves()
	for i := range firstLeaves {
		if firstLeaves[i].X != secondLeaves[i].X || firstLeaves[i].Y != secondLeaves[i].Y {
			t.Errorf("leaf %d coordinates differ after cache round trip", i)
		}
	}
}
