package dendro

import "errors"

var (
	// ErrNoRoot is returned by operations that require a rooted tree.
	ErrNoRoot = errors.New("tree has no root")

	// ErrRootAssigned is returned by [Tree.SetRoot] when the tree
	// already owns a root. A tree receives its root exactly once.
	ErrRootAssigned = errors.New("root already assigned")
)

// Tree is a dendrogram: a rooted hierarchy of nested clusters. The tree
// exclusively owns its root node and the whole subtree below it.
//
// Cutoff is the distance threshold for label truncation: internal nodes
// whose cumulative distance exceeds it are considered too close to the
// root to participate in matching and keep an unset label.
//
// Tree is not safe for concurrent use; each instance is exclusively
// owned and operations on distinct trees are independent.
type Tree struct {
	Title   string
	Root    *Node
	Cutoff  float64
	Flipped bool

	leafCount int
}

// NewTree creates a tree with the given title and no root.
func NewTree(title string) *Tree {
	return &Tree{Title: title}
}

// SetRoot assigns the tree's root. The assignment happens at most once;
// a second call returns ErrRootAssigned.
func (t *Tree) SetRoot(root *Node) error {
	if t.Root != nil {
		return ErrRootAssigned
	}
	t.Root = root
	return nil
}

// LeafCount returns the cached number of leaves. Call InitLeafCount
// after the root is assigned.
func (t *Tree) LeafCount() int { return t.leafCount }

// InitLeafCount counts the tree's leaves and caches the result.
func (t *Tree) InitLeafCount() {
	t.leafCount = 0
	if t.Root == nil {
		return
	}
	t.Root.Each(func(n *Node) {
		if n.IsLeaf() {
			t.leafCount++
		}
	})
}

// ComputeSubtreeSizes sets SubtreeSize on every node, bottom-up: 1 for
// leaves, the sum of the children's sizes for internal nodes.
func (t *Tree) ComputeSubtreeSizes() {
	if t.Root == nil {
		return
	}
	t.Root.EachPost(func(n *Node) {
		if n.IsLeaf() {
			n.SubtreeSize = 1
			return
		}
		size := 0
		for _, c := range n.Children {
			size += c.SubtreeSize
		}
		n.SubtreeSize = size
	})
}

// SetDistance computes the cumulative node distances in post-order:
// leaves get 0, internal nodes get the first child's branch length plus
// that child's own distance. In a cluster dendrogram all children are
// leaf-equidistant, so any child would give the same result.
//
// After the pass, the tree's cutoff defaults to half the root distance.
func (t *Tree) SetDistance() {
	if t.Root == nil {
		return
	}
	t.Root.EachPost(func(n *Node) {
		if n.IsLeaf() {
			n.Dist = 0
			return
		}
		first := n.Children[0]
		n.Dist = first.DistToParent + first.Dist
	})
	t.Cutoff = t.Root.Dist / 2
}

// SetCutoff sets the label-truncation threshold, clamping the value into
// [0, root distance]. Out-of-range cutoffs arrive from external controls
// (sliders, query parameters); clamping keeps every node comparison
// well-defined without making the caller's round-trip fail.
func (t *Tree) SetCutoff(v float64) {
	if v < 0 {
		v = 0
	}
	if t.Root != nil && v > t.Root.Dist {
		v = t.Root.Dist
	}
	t.Cutoff = v
}

// ToggleFlipped inverts the mirroring flag. It does not alter any
// coordinates; the layout engine applies the mirror on its next pass.
func (t *Tree) ToggleFlipped() {
	t.Flipped = !t.Flipped
}

// FlipYNode mirrors the Y coordinate of every descendant of n about the
// midpoint between the minimum and maximum Y among n's leaves. It is a
// no-op on leaves and nil nodes.
func (t *Tree) FlipYNode(n *Node) {
	if n == nil || n.IsLeaf() {
		return
	}
	leaves := n.Leaves()
	min, max := leaves[0].Y, leaves[0].Y
	for _, l := range leaves[1:] {
		if l.Y < min {
			min = l.Y
		}
		if l.Y > max {
			max = l.Y
		}
	}
	pivot := min + max // mirror: y' = (min+max) - y
	for _, c := range n.Children {
		c.Each(func(d *Node) {
			d.Y = pivot - d.Y
		})
	}
}
