package dendro

import (
	"math"
	"testing"
)

// buildTestTree constructs the canonical three-leaf tree by hand:
//
//	r ── A (0.5)
//	  └─ r1 (0.2) ── B (0.3)
//	             └── C (0.3)
func buildTestTree() *Tree {
	root := &Node{ID: RootID}
	a := &Node{ID: "r0", Name: "A", DistToParent: 0.5}
	group := &Node{ID: "r1", DistToParent: 0.2}
	b := &Node{ID: "r10", Name: "B", DistToParent: 0.3}
	c := &Node{ID: "r11", Name: "C", DistToParent: 0.3}
	root.AddChild(a)
	root.AddChild(group)
	group.AddChild(b)
	group.AddChild(c)

	t := NewTree("test")
	_ = t.SetRoot(root)
	return t
}

func TestSetRoot(t *testing.T) {
	tree := NewTree("test")
	if err := tree.SetRoot(&Node{ID: RootID}); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	if err := tree.SetRoot(&Node{ID: RootID}); err != ErrRootAssigned {
		t.Errorf("second SetRoot = %v, want ErrRootAssigned", err)
	}
}

func TestInitLeafCount(t *testing.T) {
	tree := buildTestTree()
	tree.InitLeafCount()
	if got := tree.LeafCount(); got != 3 {
		t.Errorf("LeafCount = %d, want 3", got)
	}
}

func TestComputeSubtreeSizes(t *testing.T) {
	tree := buildTestTree()
	tree.ComputeSubtreeSizes()

	tree.Root.Each(func(n *Node) {
		if n.IsLeaf() {
			if n.SubtreeSize != 1 {
				t.Errorf("leaf %s size = %d, want 1", n.ID, n.SubtreeSize)
			}
			return
		}
		sum := 0
		for _, c := range n.Children {
			sum += c.SubtreeSize
		}
		if n.SubtreeSize != sum {
			t.Errorf("node %s size = %d, want sum of children %d", n.ID, n.SubtreeSize, sum)
		}
	})

	if got := tree.Root.SubtreeSize; got != 3 {
		t.Errorf("root size = %d, want 3", got)
	}
}

func TestSetDistance(t *testing.T) {
	tree := buildTestTree()
	tree.SetDistance()

	if got := tree.Root.Dist; got != 0.5 {
		t.Errorf("root distance = %g, want 0.5", got)
	}

	// The root distance must equal the branch-length sum along every
	// root-to-leaf path, not just the first one.
	for _, leaf := range tree.Root.Leaves() {
		sum := 0.0
		for n := leaf; n.Parent() != nil; n = n.Parent() {
			sum += n.DistToParent
		}
		if math.Abs(sum-tree.Root.Dist) > 1e-12 {
			t.Errorf("path sum to %s = %g, want root distance %g", leaf.Name, sum, tree.Root.Dist)
		}
	}

	if got := tree.Cutoff; got != 0.25 {
		t.Errorf("default cutoff = %g, want half the root distance (0.25)", got)
	}

	for _, leaf := range tree.Root.Leaves() {
		if leaf.Dist != 0 {
			t.Errorf("leaf %s distance = %g, want 0", leaf.Name, leaf.Dist)
		}
	}
}

func TestSetCutoff(t *testing.T) {
	tree := buildTestTree()
	tree.SetDistance() // root distance 0.5

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"InRange", 0.3, 0.3},
		{"Zero", 0, 0},
		{"Negative", -1, 0},
		{"AboveRoot", 2.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree.SetCutoff(tt.in)
			if tree.Cutoff != tt.want {
				t.Errorf("SetCutoff(%g): cutoff = %g, want %g", tt.in, tree.Cutoff, tt.want)
			}
		})
	}
}

func TestToggleFlipped(t *testing.T) {
	tree := buildTestTree()
	if tree.Flipped {
		t.Fatal("new tree should not be flipped")
	}
	tree.ToggleFlipped()
	if !tree.Flipped {
		t.Error("ToggleFlipped did not set the flag")
	}
	tree.ToggleFlipped()
	if tree.Flipped {
		t.Error("second ToggleFlipped did not clear the flag")
	}
}

func TestFlipYNode(t *testing.T) {
	tree := buildTestTree()

	// Hand-assigned coordinates keep the test independent of the
	// layout engine.
	ys := map[string]float64{"r": 5, "r0": 0, "r1": 10, "r10": 8, "r11": 12}
	tree.Root.Each(func(n *Node) { n.Y = ys[n.ID] })

	group := tree.Root.Children[1]
	tree.FlipYNode(group)

	// Leaves of the group span [8, 12]; mirror about their midpoint.
	if got := group.Children[0].Y; got != 12 {
		t.Errorf("B.Y = %g, want 12", got)
	}
	if got := group.Children[1].Y; got != 8 {
		t.Errorf("C.Y = %g, want 8", got)
	}
	// The pivot node itself and everything outside stay put.
	if group.Y != 10 || tree.Root.Y != 5 || tree.Root.Children[0].Y != 0 {
		t.Error("FlipYNode changed coordinates outside the flipped children")
	}

	// Mirroring twice restores the original coordinates.
	tree.FlipYNode(group)
	tree.Root.Each(func(n *Node) {
		if n.Y != ys[n.ID] {
			t.Errorf("node %s Y = %g after double flip, want %g", n.ID, n.Y, ys[n.ID])
		}
	})

	// No-ops must not panic.
	tree.FlipYNode(nil)
	tree.FlipYNode(group.Children[0])
}

func TestEdgeID(t *testing.T) {
	tree := buildTestTree()
	if got := tree.Root.EdgeID(); got != "" {
		t.Errorf("root EdgeID = %q, want empty", got)
	}
	group := tree.Root.Children[1]
	if got := group.EdgeID(); got != "rr1" {
		t.Errorf("group EdgeID = %q, want rr1", got)
	}
	if got := group.Children[0].EdgeID(); got != "r1r10" {
		t.Errorf("leaf EdgeID = %q, want r1r10", got)
	}
}
