// Package match implements structural pattern matching against operator
// trees (spec §4.4): typed pattern-variable prefixes (v_, c_, n_), and
// consistency checking when a pattern variable repeats.
//
// Grounded on original_source/src/matching/matching.h (the VAR_PREFIX/
// CONST_PREFIX/NAME_PREFIX convention and the Matching result shape).
package match

import (
	"strings"

	"calc/internal/node"
)

// Prefixes recognised on a Variable node's name to mark it as a pattern
// variable rather than a literal variable to be matched verbatim.
const (
	AnyPrefix   = "v_" // matches any subtree
	ConstPrefix = "c_" // matches Constant nodes only
	NonOpPrefix = "n_" // matches Constant or Variable nodes (non-Operator)
)

// IsPatternVariable reports whether a node is a Variable carrying one of
// the recognised pattern-variable prefixes.
func IsPatternVariable(n *node.Node) bool {
	if n == nil || !n.IsVariable() {
		return false
	}
	name := n.VarName()
	return strings.HasPrefix(name, AnyPrefix) ||
		strings.HasPrefix(name, ConstPrefix) ||
		strings.HasPrefix(name, NonOpPrefix)
}

// Matching is the result of a successful match: a mapping from each
// distinct pattern-variable name appearing in the pattern to the subject
// subtree it was bound to. Bound subtrees are borrowed references into the
// subject tree, not copies.
type Matching struct {
	Bindings map[string]*node.Node
}

// newMatching returns an empty Matching ready to accumulate bindings.
func newMatching() *Matching {
	return &Matching{Bindings: make(map[string]*node.Node)}
}

// GetMatching attempts to match pattern against subject, returning the
// variable bindings on success, or (nil, false) if pattern does not match.
// A pattern variable occurring more than once must bind to structurally
// equal subtrees each time (checked via node.Equal).
func GetMatching(pattern, subject *node.Node) (*Matching, bool) {
	m := newMatching()
	if matchInto(pattern, subject, m) {
		return m, true
	}
	return nil, false
}

func matchInto(pattern, subject *node.Node, m *Matching) bool {
	if pattern == nil || subject == nil {
		return pattern == subject
	}

	if IsPatternVariable(pattern) {
		name := pattern.VarName()
		switch {
		case strings.HasPrefix(name, ConstPrefix):
			if !subject.IsConstant() {
				return false
			}
		case strings.HasPrefix(name, NonOpPrefix):
			if subject.IsOperator() {
				return false
			}
		}
		if bound, ok := m.Bindings[name]; ok {
			return node.Equal(bound, subject)
		}
		m.Bindings[name] = subject
		return true
	}

	if pattern.Kind != subject.Kind {
		return false
	}

	switch pattern.Kind {
	case node.KindConstant:
		return pattern.ConstValue() == subject.ConstValue()
	case node.KindVariable:
		return pattern.VarName() == subject.VarName()
	case node.KindOperator:
		if pattern.Operator() != subject.Operator() {
			return false
		}
		if pattern.NumChildren() != subject.NumChildren() {
			return false
		}
		for i := 0; i < pattern.NumChildren(); i++ {
			if !matchInto(pattern.Child(i), subject.Child(i), m) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FindMatching searches subject's subtrees, pre-order, for the first node
// that pattern matches. It returns the matched node, the bindings, and
// whether a match was found.
func FindMatching(pattern, subject *node.Node) (*node.Node, *Matching, bool) {
	var found *node.Node
	var matching *Matching
	node.Walk(subject, func(n *node.Node) {
		if found != nil {
			return
		}
		if m, ok := GetMatching(pattern, n); ok {
			found = n
			matching = m
		}
	})
	if found == nil {
		return nil, nil, false
	}
	return found, matching, true
}
