package dendro

import (
	"slices"
	"strings"
)

// Sort recursively reorders every node's children by case-insensitive
// comparison of their labels. Nodes with an unset label order before
// nodes with a set one.
//
// The sort is stable, so two unlabeled siblings keep their relative
// order: the comparator cannot distinguish them, and stability is what
// makes Sort idempotent. Sorting only permutes sibling order; the set of
// descendants of every node is unchanged.
func (t *Tree) Sort() {
	if t.Root == nil {
		return
	}
	sortChildren(t.Root)
}

func sortChildren(n *Node) {
	slices.SortStableFunc(n.Children, compareByLabel)
	for _, c := range n.Children {
		sortChildren(c)
	}
}

// compareByLabel orders unset labels first, then set labels
// case-insensitively.
func compareByLabel(a, b *Node) int {
	switch {
	case !a.Labeled() && !b.Labeled():
		return 0
	case !a.Labeled():
		return -1
	case !b.Labeled():
		return 1
	}
	return strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
}
