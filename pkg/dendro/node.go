package dendro

// RootID is the path-encoded identifier of a tree's root node. Child ids
// are built by appending the 0-based sibling index at each depth, so the
// second child of the root's first child has id "r01".
const RootID = "r"

// Node is a single element of a dendrogram: a leaf (an original data
// item) or an internal node (a cluster of the leaves below it).
//
// Nodes are created once, during parsing or deserialization, and mutated
// in place by the model's derivation passes. The id is stable for the
// lifetime of the tree; mirroring and reordering never renumber nodes.
type Node struct {
	ID   string // path encoding, unique within one tree
	Name string // raw identifier from the source text; leaves only

	// DistToParent is the branch length read from the source text.
	// It is meaningless on the root.
	DistToParent float64

	// Dist is the cumulative distance from this node down to its
	// leaves: 0 for leaves, computed bottom-up for internal nodes.
	Dist float64

	// Label is the synthesized cluster name. The empty string means
	// unset; nodes beyond the cutoff keep it unset.
	Label string

	// SubtreeSize is the count of leaves in the subtree rooted here.
	// A value of 1 exactly identifies a leaf.
	SubtreeSize int

	// X, Y are display coordinates, derived by the layout engine.
	X, Y float64

	// Children is the ordered child sequence, owned by this node.
	Children []*Node

	parent *Node // non-owning back-reference; nil on the root
}

// Parent returns the containing node, or nil on the root. The reference
// is non-owning: ownership flows parent → children only.
func (n *Node) Parent() *Node { return n.parent }

// AddChild appends child to n's child sequence and sets its parent
// back-reference.
func (n *Node) AddChild(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Labeled reports whether the node's label has been synthesized.
func (n *Node) Labeled() bool { return n.Label != "" }

// EdgeID returns the identifier of the edge connecting this node to its
// parent: the parent id concatenated with the node id. It returns the
// empty string on the root, which has no incoming edge.
func (n *Node) EdgeID() string {
	if n.parent == nil {
		return ""
	}
	return n.parent.ID + n.ID
}

// Each visits n and every descendant in pre-order.
func (n *Node) Each(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Each(fn)
	}
}

// EachPost visits every descendant and then n itself (post-order).
func (n *Node) EachPost(fn func(*Node)) {
	for _, c := range n.Children {
		c.EachPost(fn)
	}
	fn(n)
}

// Leaves returns the leaves of the subtree rooted at n, in the current
// child order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Each(func(d *Node) {
		if d.IsLeaf() {
			out = append(out, d)
		}
	})
	return out
}
