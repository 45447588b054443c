// Package rewrite implements term-rewriting: a Rule (pattern, replacement,
// optional side conditions), ApplyRule (find-first-match-and-substitute)
// and ApplyRuleset (ordered repeated application to a fixed point), plus
// the rule-text grammar used to load rules from a file or string.
//
// Grounded on original_source/src/transformation/rewrite_rule.h (the
// Rule/Ruleset shapes and apply_rule/apply_ruleset operations) and
// original_source/src/client/simplification/rule_parsing.c (the
// "pattern -> replacement [WHERE constraint [AND constraint]*]" grammar).
package rewrite

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"calc/internal/calcerr"
	"calc/internal/eval"
	"calc/internal/lexer"
	"calc/internal/match"
	"calc/internal/node"
	"calc/internal/opctx"
	"calc/internal/parser"
)

// Rule is a single rewrite rule: substitute Replacement for Pattern
// wherever Pattern matches, provided every Constraint also matches given
// the same bindings (a WHERE clause).
type Rule struct {
	Pattern     *node.Node
	Replacement *node.Node
	Constraints []*node.Node
	Source      string // original rule text, for diagnostics
}

func (r *Rule) String() string {
	if r.Source != "" {
		return r.Source
	}
	return fmt.Sprintf("%s -> %s", r.Pattern, r.Replacement)
}

// satisfiesConstraints reports whether every side condition in r holds
// under bindings m, as decided by constraintHolds. A constraint that
// references a pattern variable m does not bind (or any other free
// variable) cannot be evaluated and therefore does not hold.
func (r *Rule) satisfiesConstraints(m *match.Matching) bool {
	for _, c := range r.Constraints {
		if !constraintHolds(c, m) {
			return false
		}
	}
	return true
}

// constraintHolds substitutes pattern-variable bindings into c, which must
// resolve to a two-child comparison node (>, <, >=, <=, == or !=), and
// evaluates both sides numerically via the arithmetic evaluator.
func constraintHolds(c *node.Node, m *match.Matching) bool {
	resolved := Substitute(c, m)
	if !resolved.IsOperator() || resolved.NumChildren() != 2 {
		return false
	}
	left, err := eval.Eval(resolved.Child(0))
	if err != nil {
		return false
	}
	right, err := eval.Eval(resolved.Child(1))
	if err != nil {
		return false
	}
	switch resolved.Operator().Name {
	case ">":
		return left > right
	case "<":
		return left < right
	case ">=":
		return left >= right
	case "<=":
		return left <= right
	case "==":
		return left == right
	case "!=":
		return left != right
	default:
		return false
	}
}

// Substitute builds a new tree by replacing every pattern variable in
// template with its bound subject subtree from m (deep-copied, since each
// occurrence must own an independent copy it can be further rewritten
// in place without aliasing another occurrence).
func Substitute(template *node.Node, m *match.Matching) *node.Node {
	if template == nil {
		return nil
	}
	if match.IsPatternVariable(template) {
		if bound, ok := m.Bindings[template.VarName()]; ok {
			return node.Clone(bound)
		}
		return node.Clone(template)
	}
	if !template.IsOperator() {
		return node.Clone(template)
	}
	children := make([]*node.Node, template.NumChildren())
	for i := range children {
		children[i] = Substitute(template.Child(i), m)
	}
	return node.NewOperator(template.Operator(), children...)
}

// ApplyRule finds the first subtree of tree that rule's pattern matches
// (pre-order, and whose bindings satisfy every constraint), substitutes
// rule.Replacement there, and returns the new tree. If tree itself is the
// match, the returned root is the substitution; otherwise tree is mutated
// in place and returned unchanged as a pointer. ok reports whether any
// rewrite happened.
func ApplyRule(rule *Rule, tree *node.Node) (result *node.Node, ok bool) {
	if tree == nil {
		return nil, false
	}
	target, m, found := findConstrainedMatch(rule, tree)
	if !found {
		return tree, false
	}
	replacement := Substitute(rule.Replacement, m)
	if target == tree {
		return replacement, true
	}
	replaceInPlace(tree, target, replacement)
	return tree, true
}

// findConstrainedMatch is FindMatching filtered by rule.satisfiesConstraints.
func findConstrainedMatch(rule *Rule, subject *node.Node) (*node.Node, *match.Matching, bool) {
	var found *node.Node
	var matching *match.Matching
	node.Walk(subject, func(n *node.Node) {
		if found != nil {
			return
		}
		m, ok := match.GetMatching(rule.Pattern, n)
		if !ok || !rule.satisfiesConstraints(m) {
			return
		}
		found = n
		matching = m
	})
	if found == nil {
		return nil, nil, false
	}
	return found, matching, true
}

// replaceInPlace finds old within the subtree rooted at root (by pointer
// identity) and replaces the parent's child slot that holds it with
// newNode, so any other reference to root continues to see the rewritten
// tree.
func replaceInPlace(root, old, newNode *node.Node) {
	if !root.IsOperator() {
		return
	}
	for i := 0; i < root.NumChildren(); i++ {
		if root.Child(i) == old {
			root.Children[i] = newNode
			return
		}
		replaceInPlace(root.Child(i), old, newNode)
	}
}

// Ruleset is an ordered list of rules, applied left to right.
type Ruleset struct {
	Rules []*Rule
}

// ApplyRuleset repeatedly applies the first rule in the set that matches
// anywhere in tree, restarting from the first rule after every successful
// application, until no rule matches (a fixed point). It returns the
// final tree and the number of rewrite steps taken.
func ApplyRuleset(rs *Ruleset, tree *node.Node) (*node.Node, int) {
	return ApplyRulesetTraced(rs, tree, nil)
}

// ApplyRulesetTraced behaves like ApplyRuleset, additionally invoking
// onStep (if non-nil) with the rule applied and the tree before/after each
// successful rewrite. internal/repl adapts trace.Recorder.Record to this
// hook by passing rule.String() as the rule source.
func ApplyRulesetTraced(rs *Ruleset, tree *node.Node, onStep func(rule *Rule, before, after *node.Node)) (*node.Node, int) {
	steps := 0
	for {
		applied := false
		for _, rule := range rs.Rules {
			var before *node.Node
			if onStep != nil {
				before = node.Clone(tree)
			}
			if result, ok := ApplyRule(rule, tree); ok {
				tree = result
				if onStep != nil {
					onStep(rule, before, tree)
				}
				applied = true
				steps++
				break
			}
		}
		if !applied {
			return tree, steps
		}
	}
}

// ParseRule parses a single rule of the form
//
//	pattern -> replacement [WHERE constraint [AND constraint]*]
//
// main is the operator context used for pattern and replacement; extended
// is used for constraints (so comparison operators not meaningful inside
// ordinary expressions, e.g. ">", can be registered there without
// polluting the main context).
func ParseRule(text string, main, extended *opctx.Table) (*Rule, error) {
	arrowIdx := strings.Index(text, "->")
	if arrowIdx < 0 {
		return nil, calcerr.Newf(calcerr.ArgsMalformed, "rule missing '->': %q", text)
	}
	left := strings.TrimSpace(text[:arrowIdx])
	rest := text[arrowIdx+2:]

	var constraintText string
	if whereIdx := indexWhere(rest); whereIdx >= 0 {
		constraintText = rest[whereIdx+len(" WHERE "):]
		rest = rest[:whereIdx]
	}
	right := strings.TrimSpace(rest)

	patternTree, err := parseSide(left, main)
	if err != nil {
		return nil, err
	}
	replacementTree, err := parseSide(right, main)
	if err != nil {
		return nil, err
	}

	var constraints []*node.Node
	if constraintText != "" {
		for _, part := range strings.Split(constraintText, " AND ") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ctree, err := parseSide(part, extended)
			if err != nil {
				return nil, err
			}
			constraints = append(constraints, ctree)
		}
	}

	return &Rule{
		Pattern:     patternTree,
		Replacement: replacementTree,
		Constraints: constraints,
		Source:      strings.TrimSpace(text),
	}, nil
}

func indexWhere(s string) int {
	return strings.Index(s, " WHERE ")
}

func parseSide(text string, table *opctx.Table) (*node.Node, error) {
	tokens, err := tokenize(text, table)
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens, table)
}

func tokenize(text string, table *opctx.Table) ([]lexer.Token, error) {
	return lexer.NewScanner(text, table).ScanTokens()
}

// ParseRuleset parses one rule per non-blank, non-comment line from r,
// stopping at the first malformed line and reporting its 1-based line
// number (mirroring parse_ruleset_from_string's per-line error).
func ParseRuleset(r io.Reader, main, extended *opctx.Table) (*Ruleset, error) {
	rs := &Ruleset{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := ParseRule(line, main, extended)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rs.Rules = append(rs.Rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
