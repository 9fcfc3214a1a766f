// Package export provides the canonical JSON serialization of trees,
// layouts, and match results.
//
// These formats are what external collaborators consume: a renderer
// draws from node coordinates and edge ids, a color assigner works from
// the match list. The formats are human-readable and designed for
// round-trip fidelity: export → re-import produces an identical tree,
// including child order, which is carried by edge order.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/matzehuels/dendro/pkg/dendro"
	"github.com/matzehuels/dendro/pkg/match"
)

// Node is the serialized form of a dendrogram node.
type Node struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`  // leaves only
	Label        string  `json:"label,omitempty"` // unset when beyond cutoff
	DistToParent float64 `json:"distance_to_parent,omitempty"`
	Dist         float64 `json:"distance"`
	SubtreeSize  int     `json:"subtree_size"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// Edge is a parent→child connection. Its ID is the parent id
// concatenated with the child id, the form highlight renderers key on.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	ID   string `json:"id"`
}

// Tree is the serialization format for a full dendrogram.
//
// Nodes are sorted by id for deterministic output; structure and child
// order are carried by Edges, which appear in child order.
type Tree struct {
	Title     string  `json:"title,omitempty"`
	Cutoff    float64 `json:"cutoff"`
	Flipped   bool    `json:"flipped,omitempty"`
	LeafCount int     `json:"leaf_count"`
	Nodes     []Node  `json:"nodes"`
	Edges     []Edge  `json:"edges"`
}

// FromTree converts a model tree to its serialization format.
func FromTree(t *dendro.Tree) Tree {
	out := Tree{
		Title:     t.Title,
		Cutoff:    t.Cutoff,
		Flipped:   t.Flipped,
		LeafCount: t.LeafCount(),
	}
	if t.Root == nil {
		return out
	}

	t.Root.Each(func(n *dendro.Node) {
		out.Nodes = append(out.Nodes, Node{
			ID:           n.ID,
			Name:         n.Name,
			Label:        n.Label,
			DistToParent: n.DistToParent,
			Dist:         n.Dist,
			SubtreeSize:  n.SubtreeSize,
			X:            n.X,
			Y:            n.Y,
		})
		for _, c := range n.Children {
			out.Edges = append(out.Edges, Edge{From: n.ID, To: c.ID, ID: n.ID + c.ID})
		}
	})

	slices.SortFunc(out.Nodes, func(a, b Node) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// ToTree rebuilds a model tree from its serialization format. Children
// are re-attached in edge order, preserving the exported sibling order.
func ToTree(tj Tree) (*dendro.Tree, error) {
	t := dendro.NewTree(tj.Title)
	t.Flipped = tj.Flipped

	nodes := make(map[string]*dendro.Node, len(tj.Nodes))
	for _, nj := range tj.Nodes {
		if nj.ID == "" {
			return nil, fmt.Errorf("node with empty id")
		}
		if _, dup := nodes[nj.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %s", nj.ID)
		}
		nodes[nj.ID] = &dendro.Node{
			ID:           nj.ID,
			Name:         nj.Name,
			Label:        nj.Label,
			DistToParent: nj.DistToParent,
			Dist:         nj.Dist,
			SubtreeSize:  nj.SubtreeSize,
			X:            nj.X,
			Y:            nj.Y,
		}
	}

	hasParent := make(map[string]bool, len(tj.Nodes))
	for _, ej := range tj.Edges {
		parent, ok := nodes[ej.From]
		if !ok {
			return nil, fmt.Errorf("edge %s→%s: unknown source node", ej.From, ej.To)
		}
		child, ok := nodes[ej.To]
		if !ok {
			return nil, fmt.Errorf("edge %s→%s: unknown target node", ej.From, ej.To)
		}
		if hasParent[ej.To] {
			return nil, fmt.Errorf("node %s has multiple parents", ej.To)
		}
		hasParent[ej.To] = true
		parent.AddChild(child)
	}

	var root *dendro.Node
	for _, nj := range tj.Nodes {
		if hasParent[nj.ID] {
			continue
		}
		if root != nil {
			return nil, fmt.Errorf("multiple roots: %s and %s", root.ID, nj.ID)
		}
		root = nodes[nj.ID]
	}
	if root == nil && len(tj.Nodes) > 0 {
		return nil, fmt.Errorf("no root node")
	}

	if root != nil {
		if err := t.SetRoot(root); err != nil {
			return nil, err
		}
	}
	t.InitLeafCount()
	t.SetCutoff(tj.Cutoff)
	return t, nil
}

// MarshalTree converts a model tree to pretty-printed JSON bytes.
func MarshalTree(t *dendro.Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTreeTo(t, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTree writes a tree as JSON to an io.Writer.
func WriteTree(t *dendro.Tree, w io.Writer) error {
	return writeTreeTo(t, w)
}

// WriteTreeFile writes a tree to a JSON file with 0644 permissions.
func WriteTreeFile(t *dendro.Tree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeTreeTo(t, f)
}

// ReadTree decodes a JSON tree from an io.Reader into a model tree.
func ReadTree(r io.Reader) (*dendro.Tree, error) {
	var tj Tree
	if err := json.NewDecoder(r).Decode(&tj); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToTree(tj)
}

// ReadTreeFile reads a JSON file and returns the decoded model tree.
func ReadTreeFile(path string) (*dendro.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTree(f)
}

func writeTreeTo(t *dendro.Tree, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromTree(t)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Match is the serialized form of a cluster match. Node references
// flatten to ids; colors arrive from the external assigner.
type Match struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Color       string   `json:"color,omitempty"`
	SourceEdges []string `json:"source_edges,omitempty"`
	TargetEdges []string `json:"target_edges,omitempty"`
}

// Comparison bundles everything a renderer needs to draw a two-tree
// scene: both trees with coordinates, and the match list.
type Comparison struct {
	Source    Tree    `json:"source"`
	Target    Tree    `json:"target"`
	Matches   []Match `json:"matches"`
	MinLeaves int     `json:"min_leaves"`
	Mode      string  `json:"mode"`
}

// FromMatches converts cluster matches to their serialization format.
func FromMatches(matches []*match.ClusterMatch) []Match {
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{
			ID:          m.ID,
			Label:       m.Label,
			Source:      m.Source.ID,
			Target:      m.Target.ID,
			Color:       m.Color,
			SourceEdges: m.SourceEdges,
			TargetEdges: m.TargetEdges,
		}
	}
	return out
}

// MarshalComparison serializes a comparison to pretty-printed JSON.
func MarshalComparison(c Comparison) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// WriteComparisonFile writes a comparison to a JSON file.
func WriteComparisonFile(c Comparison, path string) error {
	data, err := MarshalComparison(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
