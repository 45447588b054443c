package rewrite

import (
	"calc/internal/node"
	"calc/internal/opctx"
)

// DefineComposite registers a user-defined (composite) function, the Go
// analogue of original_source/src/core/arith_context.h's
// add_composite_function: a named function of the given parameters,
// expanded to bodyText wherever it is applied.
//
// name is registered in table as a Function operator of arity
// len(params) if not already present. The returned Rule rewrites any call
// f(a, b, ...) to bodyText with each parameter substituted by the
// corresponding argument; callers add it to a Ruleset to have it expanded
// automatically during simplification.
func DefineComposite(table *opctx.Table, name string, params []string, bodyText string) (*Rule, error) {
	op := table.LookupFunction(name, len(params))
	if op == nil {
		var err error
		op, err = table.AddOp(opctx.Operator{Name: name, Placement: opctx.Function, Arity: len(params)})
		if err != nil {
			return nil, err
		}
	}

	bodyTree, err := parseSide(bodyText, table)
	if err != nil {
		return nil, err
	}
	renameParams(bodyTree, params)

	patternChildren := make([]*node.Node, len(params))
	for i, p := range params {
		patternChildren[i] = node.NewVariable(patternParamName(p))
	}
	pattern := node.NewOperator(op, patternChildren...)

	return &Rule{
		Pattern:     pattern,
		Replacement: bodyTree,
		Source:      name + "(" + joinParams(params) + ") := " + bodyText,
	}, nil
}

// RemoveComposite unregisters a composite function from table. It does
// not retract any Rule previously built by DefineComposite from a
// Ruleset — callers must remove that rule themselves.
func RemoveComposite(table *opctx.Table, name string) bool {
	return table.RemoveOp(name)
}

func patternParamName(p string) string {
	return "v_" + p
}

func joinParams(params []string) string {
	s := ""
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p
	}
	return s
}

// renameParams rewrites every Variable node in tree whose name matches one
// of params into its pattern-variable form ("v_"+name), in place, so the
// parsed body tree can serve directly as a rewrite replacement keyed off
// the same pattern variables used in DefineComposite's generated pattern.
func renameParams(tree *node.Node, params []string) {
	isParam := make(map[string]bool, len(params))
	for _, p := range params {
		isParam[p] = true
	}
	var walk func(n *node.Node)
	walk = func(n *node.Node) {
		if n == nil {
			return
		}
		if n.IsVariable() && isParam[n.Name] {
			n.Name = patternParamName(n.Name)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree)
}
