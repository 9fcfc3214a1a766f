// Package layout computes display coordinates for dendrogram nodes.
//
// The engine starts from a conventional top-down dendrogram placement
// (leaves evenly spaced on the depth-perpendicular axis, internal nodes
// centered over their children, depth growing downward), rotates the
// whole tree by -90° into the application's left-to-right convention,
// rescales the depth axis so node positions are proportional to the
// clustering distances actually recorded on the nodes, and finally
// mirrors the depth axis when the tree's Flipped flag is set.
//
// All functions are pure transformations over an exclusively owned tree:
// only the X and Y fields of its nodes are written.
package layout

import (
	"errors"

	"github.com/matzehuels/dendro/pkg/dendro"
)

var (
	// ErrInvalidFrame is returned by Update when the frame has a
	// non-positive width or height.
	ErrInvalidFrame = errors.New("frame width and height must be positive")

	// ErrNoRoot is returned by Update when the tree has no root.
	ErrNoRoot = errors.New("tree has no root")
)

// Options describes the display frame for a layout pass.
type Options struct {
	// OffsetX, OffsetY translate the rotated tree into place.
	OffsetX float64
	OffsetY float64

	// Width and Height bound the initial placement: depth spans Width,
	// leaf spacing spans Height.
	Width  float64
	Height float64

	// LabelReserve is the horizontal space, in pixels, kept for leaf
	// label text at the leaf end of a mirrored tree.
	LabelReserve float64
}

// Update recomputes the coordinates of every node in t. SetDistance must
// have run, since the depth-axis rescale reads the cumulative distances.
func Update(t *dendro.Tree, opts Options) error {
	if t.Root == nil {
		return ErrNoRoot
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return ErrInvalidFrame
	}

	assignInitial(t, opts.Width, opts.Height)
	rotateTranslate(t.Root, opts.OffsetX, opts.OffsetY)
	scaleXCoordinates(t)
	if t.Flipped {
		flipXCoordinates(t, opts.LabelReserve)
	}
	return nil
}

// assignInitial places nodes in the conventional top-down orientation:
// leaf i of n sits at X = i/(n-1)*height, every internal node's X is the
// mean of its children's, and Y grows with depth, scaled to width. The
// axes read swapped because the subsequent rotation turns depth into the
// horizontal direction.
func assignInitial(t *dendro.Tree, width, height float64) {
	maxDepth := depthOf(t.Root)

	spacing := height
	if n := t.LeafCount(); n > 1 {
		spacing = height / float64(n-1)
	}

	leafIndex := 0
	place(t.Root, 0, maxDepth, width, spacing, &leafIndex)
}

func place(n *dendro.Node, depth, maxDepth int, width, spacing float64, leafIndex *int) {
	if maxDepth > 0 {
		n.Y = float64(depth) / float64(maxDepth) * width
	} else {
		n.Y = 0
	}

	if n.IsLeaf() {
		n.X = float64(*leafIndex) * spacing
		*leafIndex++
		return
	}

	sum := 0.0
	for _, c := range n.Children {
		place(c, depth+1, maxDepth, width, spacing, leafIndex)
		sum += c.X
	}
	n.X = sum / float64(len(n.Children))
}

// rotateTranslate rotates every (x, y) pair by -90° about the origin,
// (x, y) → (y, -x), then translates by (offsetX, offsetY). Depth becomes
// the horizontal axis, leaf order the vertical one.
func rotateTranslate(root *dendro.Node, offsetX, offsetY float64) {
	root.Each(func(n *dendro.Node) {
		n.X, n.Y = n.Y+offsetX, -n.X+offsetY
	})
}

// scaleXCoordinates replaces the uniform depth spacing with spacing
// proportional to the clustering distance recorded on each node: X is
// proportional to (rootDist - dist)/rootDist over the pixel span between
// the root and the leaves, re-offset by the root's X.
func scaleXCoordinates(t *dendro.Tree) {
	rootDist := t.Root.Dist
	if rootDist == 0 {
		return
	}

	rootX := t.Root.X
	span := leafX(t.Root) - rootX

	t.Root.Each(func(n *dendro.Node) {
		n.X = rootX + (rootDist-n.Dist)/rootDist*span
	})
}

// flipXCoordinates mirrors every node's X about the root-to-leaf span,
// reserving labelReserve pixels for label text at the new leaf end.
func flipXCoordinates(t *dendro.Tree, labelReserve float64) {
	rootX := t.Root.X
	leaf := leafX(t.Root)

	t.Root.Each(func(n *dendro.Node) {
		n.X = labelReserve + rootX + (leaf - n.X)
	})
}

// leafX returns the maximum X among the subtree's leaves.
func leafX(root *dendro.Node) float64 {
	max := root.X
	first := true
	root.Each(func(n *dendro.Node) {
		if !n.IsLeaf() {
			return
		}
		if first || n.X > max {
			max = n.X
			first = false
		}
	})
	return max
}

// depthOf returns the height of the subtree in edges.
func depthOf(n *dendro.Node) int {
	max := 0
	for _, c := range n.Children {
		if d := depthOf(c) + 1; d > max {
			max = d
		}
	}
	return max
}
