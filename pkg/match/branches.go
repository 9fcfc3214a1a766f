package match

import (
	"slices"

	"github.com/matzehuels/dendro/pkg/dendro"
	"github.com/matzehuels/dendro/pkg/errors"
)

// Mode selects which branches of a matched pair are reported.
type Mode string

const (
	// ModeNone reports no branches.
	ModeNone Mode = "none"
	// ModeSimi reports the structurally identical branches.
	ModeSimi Mode = "simi"
	// ModeDiff reports the structurally different branches.
	ModeDiff Mode = "diff"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeSimi, ModeDiff:
		return Mode(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "invalid highlight mode: %q (must be one of: none, simi, diff)", s)
}

// InitEqualBranches computes the edge-id lists stored on m for the
// matched pair of subtrees. An edge id is the parent id concatenated
// with the child id.
//
// Equal branches are found by bottom-up propagation: the worklists start
// with the leaves of both subtrees, and every successful pairing pushes
// both parents, so matching climbs the two subtrees level by level. A
// popped leaf pairs with a leaf of equal name under an equal-labeled
// parent; a popped internal node pairs with an internal node of equal
// label under an equal-labeled parent. Unset labels never compare equal,
// which stops propagation at and above the matched roots.
//
// ModeSimi stores the equal-edge lists as computed. ModeDiff stores the
// complement: the full edge set over all descendants of each subtree
// root (the root's own edge lies outside the subtree and is excluded)
// minus the equal set. ModeNone stores empty lists.
func InitEqualBranches(m *ClusterMatch, mode Mode) {
	m.SourceEdges = nil
	m.TargetEdges = nil
	if mode == ModeNone {
		return
	}

	equalSrc, equalDst := equalBranches(m.Source, m.Target)
	if mode == ModeSimi {
		m.SourceEdges = equalSrc
		m.TargetEdges = equalDst
		return
	}

	m.SourceEdges = subtract(subtreeEdges(m.Source), equalSrc)
	m.TargetEdges = subtract(subtreeEdges(m.Target), equalDst)
}

// equalBranches runs the worklist propagation and returns the equal-edge
// lists for the source and target subtrees.
func equalBranches(source, target *dendro.Node) (src, dst []string) {
	work := source.Leaves()
	candidates := target.Leaves()

	for len(work) > 0 {
		n := work[0]
		work = work[1:]

		i := findPartner(n, candidates)
		if i < 0 {
			continue
		}
		partner := candidates[i]
		candidates = slices.Delete(candidates, i, i+1)

		if p := n.Parent(); p != nil {
			work = append(work, p)
		}
		if p := partner.Parent(); p != nil {
			candidates = append(candidates, p)
		}

		src = append(src, n.EdgeID())
		dst = append(dst, partner.EdgeID())
	}
	return src, dst
}

// findPartner returns the index of the first eligible partner for n in
// candidates, or -1 when none qualifies.
func findPartner(n *dendro.Node, candidates []*dendro.Node) int {
	for i, c := range candidates {
		if n.IsLeaf() {
			if c.IsLeaf() && c.Name == n.Name && parentLabelsEqual(n, c) {
				return i
			}
			continue
		}
		if !c.IsLeaf() && n.Labeled() && c.Labeled() && c.Label == n.Label && parentLabelsEqual(n, c) {
			return i
		}
	}
	return -1
}

// parentLabelsEqual reports whether both parents exist, are labeled, and
// carry equal labels. A missing or unset parent label is "not equal",
// never a fault.
func parentLabelsEqual(a, b *dendro.Node) bool {
	pa, pb := a.Parent(), b.Parent()
	return pa != nil && pb != nil && pa.Labeled() && pb.Labeled() && pa.Label == pb.Label
}

// subtreeEdges returns the ids of every edge within the subtree rooted
// at n, excluding n's own incoming edge.
func subtreeEdges(n *dendro.Node) []string {
	var out []string
	n.Each(func(d *dendro.Node) {
		if d == n {
			return
		}
		out = append(out, d.EdgeID())
	})
	return out
}

// subtract returns the elements of all that are not in remove.
func subtract(all, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}
	var out []string
	for _, id := range all {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
