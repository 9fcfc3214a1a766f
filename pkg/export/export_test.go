package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/matzehuels/dendro/pkg/dendro"
	"github.com/matzehuels/dendro/pkg/match"
	"github.com/matzehuels/dendro/pkg/newick"
)

// buildTree constructs a fully derived tree from Newick text.
func buildTree(t *testing.T, text string) *dendro.Tree {
	t.Helper()
	root, err := newick.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tree := dendro.NewTree("test")
	if err := tree.SetRoot(root); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	tree.ComputeSubtreeSizes()
	tree.InitLeafCount()
	tree.SetDistance()
	tree.SetLeafLabels(true, "-")
	tree.SetLabels(true, true, "-")
	tree.Sort()
	return tree
}

func TestFromTree(t *testing.T) {
	tree := buildTree(t, "'A':0.5,('B':0.3,'C':0.3):0.2")
	tj := FromTree(tree)

	if tj.Title != "test" {
		t.Errorf("title = %q, want test", tj.Title)
	}
	if got, want := len(tj.Nodes), 5; got != want {
		t.Errorf("nodes = %d, want %d", got, want)
	}
	if got, want := len(tj.Edges), 4; got != want {
		t.Errorf("edges = %d, want %d", got, want)
	}
	if tj.LeafCount != 3 {
		t.Errorf("leaf count = %d, want 3", tj.LeafCount)
	}

	// Deterministic node order by id.
	for i := 1; i < len(tj.Nodes); i++ {
		if tj.Nodes[i-1].ID >= tj.Nodes[i].ID {
			t.Errorf("nodes not sorted: %s before %s", tj.Nodes[i-1].ID, tj.Nodes[i].ID)
		}
	}

	// Edge ids are the concatenation a highlight renderer keys on.
	for _, e := range tj.Edges {
		if e.ID != e.From+e.To {
			t.Errorf("edge id = %q, want %q", e.ID, e.From+e.To)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	orig := buildTree(t, "(('A':0.1,'B':0.1):0.2,'C':0.3):0.2,'D':0.5")
	orig.Flipped = true

	restored, err := ToTree(FromTree(orig))
	if err != nil {
		t.Fatalf("ToTree: %v", err)
	}

	if restored.Title != orig.Title || restored.Cutoff != orig.Cutoff || restored.Flipped != orig.Flipped {
		t.Errorf("tree fields differ: %+v vs %+v", restored, orig)
	}
	if restored.LeafCount() != orig.LeafCount() {
		t.Errorf("leaf count = %d, want %d", restored.LeafCount(), orig.LeafCount())
	}

	// Structure, sibling order, and every node field survive.
	var walk func(a, b *dendro.Node)
	walk = func(a, b *dendro.Node) {
		if a.ID != b.ID || a.Name != b.Name || a.Label != b.Label ||
			a.DistToParent != b.DistToParent || a.Dist != b.Dist ||
			a.SubtreeSize != b.SubtreeSize || a.X != b.X || a.Y != b.Y {
			t.Errorf("node %s differs after round trip", a.ID)
		}
		if len(a.Children) != len(b.Children) {
			t.Fatalf("node %s children = %d, want %d", a.ID, len(b.Children), len(a.Children))
		}
		for i := range a.Children {
			walk(a.Children[i], b.Children[i])
		}
	}
	walk(orig.Root, restored.Root)
}

func TestRoundTripSiblingOrder(t *testing.T) {
	// With more than ten siblings, lexicographic id order ("r10" < "r2")
	// differs from sibling order; edge order must win.
	text := "'A':0.5"
	for i := 0; i < 11; i++ {
		text += ",'L" + string(rune('a'+i)) + "':0.5"
	}
	orig := buildTree(t, text)

	restored, err := ToTree(FromTree(orig))
	if err != nil {
		t.Fatalf("ToTree: %v", err)
	}
	for i, c := range orig.Root.Children {
		if got := restored.Root.Children[i].ID; got != c.ID {
			t.Errorf("child %d = %s, want %s", i, got, c.ID)
		}
	}
}

func TestToTreeErrors(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
	}{
		{
			name: "DuplicateID",
			tree: Tree{Nodes: []Node{{ID: "r"}, {ID: "r"}}},
		},
		{
			name: "EmptyID",
			tree: Tree{Nodes: []Node{{ID: ""}}},
		},
		{
			name: "UnknownEdgeSource",
			tree: Tree{Nodes: []Node{{ID: "r"}}, Edges: []Edge{{From: "x", To: "r"}}},
		},
		{
			name: "UnknownEdgeTarget",
			tree: Tree{Nodes: []Node{{ID: "r"}}, Edges: []Edge{{From: "r", To: "x"}}},
		},
		{
			name: "MultipleParents",
			tree: Tree{
				Nodes: []Node{{ID: "r"}, {ID: "s"}, {ID: "c"}},
				Edges: []Edge{{From: "r", To: "c"}, {From: "s", To: "c"}},
			},
		},
		{
			name: "MultipleRoots",
			tree: Tree{Nodes: []Node{{ID: "r"}, {ID: "s"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ToTree(tt.tree); err == nil {
				t.Error("ToTree succeeded, want error")
			}
		})
	}
}

func TestWriteAndReadTreeFile(t *testing.T) {
	orig := buildTree(t, "'A':0.5,('B':0.3,'C':0.3):0.2")
	path := filepath.Join(t.TempDir(), "tree.json")

	if err := WriteTreeFile(orig, path); err != nil {
		t.Fatalf("WriteTreeFile: %v", err)
	}
	restored, err := ReadTreeFile(path)
	if err != nil {
		t.Fatalf("ReadTreeFile: %v", err)
	}
	if restored.LeafCount() != 3 {
		t.Errorf("leaf count = %d, want 3", restored.LeafCount())
	}

	if _, err := ReadTreeFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadTreeFile of missing file succeeded, want error")
	}
}

func TestWriteTree(t *testing.T) {
	orig := buildTree(t, "'A':0.5,'B':0.5")
	var buf bytes.Buffer
	if err := WriteTree(orig, &buf); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	restored, err := ReadTree(&buf)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if restored.LeafCount() != 2 {
		t.Errorf("leaf count = %d, want 2", restored.LeafCount())
	}
}

func TestFromMatches(t *testing.T) {
	source := buildTree(t, "'A':0.7,('B':0.3,'C':0.3):0.4")
	target := buildTree(t, "('B':0.3,'C':0.3):0.4,'D':0.7")

	matches := match.FindMatchingClusters(source.Root, target, 2)
	for _, m := range matches {
		match.InitEqualBranches(m, match.ModeSimi)
	}

	out := FromMatches(matches)
	if len(out) != 1 {
		t.Fatalf("serialized matches = %d, want 1", len(out))
	}
	mj := out[0]
	if mj.Label != "_B-C_" {
		t.Errorf("label = %q, want _B-C_", mj.Label)
	}
	if mj.Source == "" || mj.Target == "" {
		t.Error("match references nodes by id; ids must be set")
	}
	if len(mj.SourceEdges) != 2 || len(mj.TargetEdges) != 2 {
		t.Errorf("edges = %d/%d, want 2/2", len(mj.SourceEdges), len(mj.TargetEdges))
	}
}

func TestMarshalComparison(t *testing.T) {
	source := buildTree(t, "'A':0.7,('B':0.3,'C':0.3):0.4")
	target := buildTree(t, "('B':0.3,'C':0.3):0.4,'D':0.7")
	matches := match.FindMatchingClusters(source.Root, target, 2)

	data, err := MarshalComparison(Comparison{
		Source:    FromTree(source),
		Target:    FromTree(target),
		Matches:   FromMatches(matches),
		MinLeaves: 2,
		Mode:      "simi",
	})
	if err != nil {
		t.Fatalf("MarshalComparison: %v", err)
	}

	var decoded Comparison
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.MinLeaves != 2 || decoded.Mode != "simi" {
		t.Errorf("decoded params = %d/%q, want 2/simi", decoded.MinLeaves, decoded.Mode)
	}
	if len(decoded.Matches) != len(matches) {
		t.Errorf("decoded matches = %d, want %d", len(decoded.Matches), len(matches))
	}
}
