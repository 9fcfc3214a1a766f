// Package match finds corresponding sub-clusters across two dendrograms
// and compares their branch structure.
//
// Matching is purely label-driven: two sub-clusters correspond when the
// labels synthesized by the tree model are equal. Nodes whose label is
// unset (beyond the cutoff) never match, and nodes smaller than the
// minimum-leaves threshold are excluded together with their subtrees.
package match

import (
	"github.com/google/uuid"

	"github.com/matzehuels/dendro/pkg/dendro"
)

// ClusterMatch pairs one sub-cluster root in each of two trees that are
// believed to represent the same grouping. The node references are
// non-owning; the trees keep exclusive ownership of their nodes.
type ClusterMatch struct {
	// ID identifies the match across recomputations of a scene.
	ID string

	// Label is copied from the source node at match time.
	Label string

	Source *dendro.Node // matched node in the source tree
	Target *dendro.Node // matched node in the target tree

	// Color is assigned by an external collaborator once all matches
	// for a scene are known. The core never picks colors.
	Color string

	// SourceEdges and TargetEdges are the equal-branch edge-id lists,
	// one per tree, populated on demand by InitEqualBranches.
	SourceEdges []string
	TargetEdges []string
}

// newClusterMatch builds a match for a pair of equal-label nodes.
func newClusterMatch(source, target *dendro.Node) *ClusterMatch {
	return &ClusterMatch{
		ID:     uuid.NewString(),
		Label:  source.Label,
		Source: source,
		Target: target,
	}
}

// FindMatchingClusters searches other for sub-clusters whose labels
// equal those under node, subject to the minimum-size threshold.
//
// A node with fewer than minLeaves leaves is trivial; trivial nodes and,
// by size monotonicity, their entire subtrees contribute no results. For
// a non-trivial node, the other tree is scanned in pre-order for the
// first eligible node with an equal label, so the coarsest match wins
// and finer matches nested below it are never reported for that branch.
// When no match exists for node itself, the search recurses into its
// children and concatenates their results.
func FindMatchingClusters(node *dendro.Node, other *dendro.Tree, minLeaves int) []*ClusterMatch {
	if node == nil || other == nil || other.Root == nil {
		return nil
	}
	if node.SubtreeSize < minLeaves {
		return nil
	}

	if node.Labeled() {
		if found := findByLabel(other.Root, node.Label, minLeaves); found != nil {
			return []*ClusterMatch{newClusterMatch(node, found)}
		}
	}

	var matches []*ClusterMatch
	for _, c := range node.Children {
		matches = append(matches, FindMatchingClusters(c, other, minLeaves)...)
	}
	return matches
}

// findByLabel returns the first node in pre-order with a defined label
// equal to label and at least minLeaves leaves. The first hit wins;
// there is no scoring among multiple equal-label candidates.
func findByLabel(n *dendro.Node, label string, minLeaves int) *dendro.Node {
	if n.Labeled() && n.SubtreeSize >= minLeaves && n.Label == label {
		return n
	}
	for _, c := range n.Children {
		if found := findByLabel(c, label, minLeaves); found != nil {
			return found
		}
	}
	return nil
}

// ColorTable maps match labels to display colors. It is built once per
// full matching pass by the external color collaborator and applied
// explicitly, rather than accumulated globally across computations.
type ColorTable map[string]string

// AssignColors sets each match's color from the table, keyed by label.
// Labels absent from the table leave the color unset.
func AssignColors(matches []*ClusterMatch, table ColorTable) {
	for _, m := range matches {
		m.Color = table[m.Label]
	}
}
