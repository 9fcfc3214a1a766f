// Package newick parses Newick-style dendrogram descriptions into the
// tree model.
//
// The accepted input is a single unrooted description: a comma-separated
// list of child expressions, where each expression is either a leaf
// ('<name>':<distance>) or a parenthesized group ((<children>):<distance>).
// Leaf names are single-quoted; the distance after the last colon of an
// expression is the branch length to the parent.
//
// The textual root carries no distance and no terminating semicolon.
// [Strip] removes a trailing semicolon and surrounding whitespace from
// raw file content before parsing.
//
// Malformed input (unbalanced parentheses, a missing distance, an empty
// child list) fails the whole parse; no partial tree is ever returned.
package newick

import (
	"strconv"
	"strings"

	"github.com/matzehuels/dendro/pkg/dendro"
	"github.com/matzehuels/dendro/pkg/errors"
)

// Parse converts a tree description into a node hierarchy rooted at a
// synthesized node with id [dendro.RootID]. Each node's id is its
// parent's id concatenated with its 0-based sibling index.
func Parse(text string) (*dendro.Node, error) {
	root := &dendro.Node{ID: dendro.RootID}
	if err := parseChildren(root, strings.TrimSpace(text)); err != nil {
		return nil, err
	}
	return root, nil
}

// Strip removes surrounding whitespace and a single trailing semicolon
// from raw Newick file content, yielding text acceptable to Parse.
func Strip(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	return strings.TrimSpace(text)
}

// parseChildren splits text into parent's child expressions and attaches
// one subtree per expression.
func parseChildren(parent *dendro.Node, text string) error {
	parts, err := splitBalanced(text)
	if err != nil {
		return err
	}

	for i, part := range parts {
		key, dist, err := splitDistance(part)
		if err != nil {
			return err
		}

		child := &dendro.Node{
			ID:           parent.ID + strconv.Itoa(i),
			DistToParent: dist,
		}

		if strings.HasPrefix(key, "(") {
			if !strings.HasSuffix(key, ")") {
				return errors.New(errors.ErrCodeInvalidTree, "unterminated group %q", key)
			}
			parent.AddChild(child)
			if err := parseChildren(child, key[1:len(key)-1]); err != nil {
				return err
			}
			continue
		}

		child.Name = strings.Trim(key, "'")
		if child.Name == "" {
			return errors.New(errors.ErrCodeInvalidTree, "empty leaf name in %q", part)
		}
		parent.AddChild(child)
	}

	return nil
}

// splitBalanced splits text on commas whose preceding substring contains
// a balanced count of parentheses. Commas inside an unbalanced region
// belong to a deeper nesting level and are kept intact.
func splitBalanced(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeInvalidTree, "empty child list")
	}

	var parts []string
	depth := 0
	start := 0
	for i, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, errors.New(errors.ErrCodeInvalidTree, "unbalanced parentheses in %q", text)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.New(errors.ErrCodeInvalidTree, "unbalanced parentheses in %q", text)
	}
	parts = append(parts, strings.TrimSpace(text[start:]))

	for _, p := range parts {
		if p == "" {
			return nil, errors.New(errors.ErrCodeInvalidTree, "empty expression in %q", text)
		}
	}
	return parts, nil
}

// splitDistance splits an expression on its last colon into the key
// (leaf name or parenthesized group) and the distance-to-parent value.
func splitDistance(expr string) (string, float64, error) {
	i := strings.LastIndex(expr, ":")
	if i < 0 {
		return "", 0, errors.New(errors.ErrCodeInvalidTree, "missing distance in %q", expr)
	}

	key := strings.TrimSpace(expr[:i])
	if key == "" {
		return "", 0, errors.New(errors.ErrCodeInvalidTree, "missing name in %q", expr)
	}

	dist, err := strconv.ParseFloat(strings.TrimSpace(expr[i+1:]), 64)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInvalidTree, err, "invalid distance in %q", expr)
	}
	if dist < 0 {
		return "", 0, errors.New(errors.ErrCodeInvalidTree, "negative distance in %q", expr)
	}
	return key, dist, nil
}
