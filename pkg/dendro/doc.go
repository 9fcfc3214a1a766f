// Package dendro implements the rooted tree model for hierarchical
// clustering dendrograms.
//
// A [Tree] owns exactly one root [Node] and, transitively, every node
// below it. Nodes carry the raw data read by the parser (leaf names,
// branch lengths) plus quantities derived in place by the model:
// subtree sizes, cumulative distances, synthesized labels, and display
// coordinates.
//
// # Derivation order
//
// After parsing, a tree is prepared in this order:
//
//	t := dendro.NewTree("left")
//	t.SetRoot(root)
//	t.ComputeSubtreeSizes()
//	t.InitLeafCount()
//	t.SetDistance()                  // also sets the default cutoff
//	t.SetLeafLabels(true, "-")
//	t.SetLabels(true, true, "-")
//	t.Sort()
//
// Labels are the sole basis for cross-tree cluster matching: two
// sub-clusters correspond when their synthesized labels are equal.
// Internal nodes whose cumulative distance exceeds the tree's cutoff
// keep an unset label and never participate in matching.
//
// All traversals take their tree-wide parameters (cutoff, separator,
// policy flags) as explicit arguments; nothing is captured from
// enclosing state.
package dendro
