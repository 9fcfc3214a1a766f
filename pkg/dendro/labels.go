package dendro

import (
	"slices"
	"strings"
)

// StructureMarker wraps synthesized labels when structural labeling is
// enabled, distinguishing them from flat token lists. A cluster of the
// leaves B and C labeled with keepStructure produces "_B-C_".
const StructureMarker = "_"

// SetLeafLabels assigns labels to every leaf from its raw name. When
// trim is true, only the part of the name before the last separator is
// kept, so "gene-42" with separator "-" labels as "gene". Internal nodes
// are untouched.
func (t *Tree) SetLeafLabels(trim bool, separator string) {
	if t.Root == nil {
		return
	}
	t.Root.Each(func(n *Node) {
		if !n.IsLeaf() {
			return
		}
		if trim {
			if i := strings.LastIndex(n.Name, separator); i >= 0 {
				n.Label = n.Name[:i]
				return
			}
		}
		n.Label = n.Name
	})
}

// SetLabels synthesizes labels for internal nodes in post-order.
//
// Nodes whose cumulative distance exceeds the tree's cutoff are skipped
// and keep an unset label: they are too close to the root to take part
// in matching. For the rest, the children's labels are collected, sorted
// lexicographically (case-sensitive) so the result is insensitive to
// branch rotation, and joined with the separator.
//
// When keepDuplicates is false, each child label is first split on the
// separator into atomic components, and the sorted token list is
// deduplicated. This recovers the atomic leaf-derived tokens even when a
// child's label was itself a composite.
//
// When keepStructure is true, the joined result is wrapped in
// StructureMarker on both ends.
func (t *Tree) SetLabels(keepStructure, keepDuplicates bool, separator string) {
	if t.Root == nil {
		return
	}
	setLabels(t.Root, t.Cutoff, keepStructure, keepDuplicates, separator)
}

func setLabels(n *Node, cutoff float64, keepStructure, keepDuplicates bool, separator string) {
	if n.IsLeaf() {
		return
	}
	for _, c := range n.Children {
		setLabels(c, cutoff, keepStructure, keepDuplicates, separator)
	}
	if n.Dist > cutoff {
		return
	}

	tokens := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		if keepDuplicates {
			tokens = append(tokens, c.Label)
			continue
		}
		tokens = append(tokens, strings.Split(c.Label, separator)...)
	}

	slices.Sort(tokens)
	if !keepDuplicates {
		tokens = slices.Compact(tokens)
	}

	label := strings.Join(tokens, separator)
	if keepStructure {
		label = StructureMarker + label + StructureMarker
	}
	n.Label = label
}
