// Package evalctx builds the default built-in operator table: the
// arithmetic, trigonometric, rounding and variadic-aggregate operators
// plus a handful of named constants, with "*" configured as the glue
// operator (so "2x" parses as "2*x").
//
// Grounded exactly on original_source/src/arithmetics/arith_context.c's
// arith_init_ctx: same operator names, placements, arities, precedences
// and associativities, and the same glue-operator choice.
package evalctx

import "calc/internal/opctx"

// Default returns a freshly built operator table with every built-in
// registered. Each call returns an independent table so callers (notably
// rewrite.DefineComposite) may add composite functions without affecting
// other evaluators sharing the same process.
func Default() *opctx.Table {
	t := opctx.New()

	infix := func(name string, precedence uint8, assoc opctx.Associativity) {
		t.MustAddOp(opctx.Operator{Name: name, Placement: opctx.Infix, Arity: 2, Precedence: precedence, Associativity: assoc})
	}
	prefix := func(name string, precedence uint8) {
		t.MustAddOp(opctx.Operator{Name: name, Placement: opctx.Prefix, Arity: 1, Precedence: precedence})
	}
	postfix := func(name string, precedence uint8) {
		t.MustAddOp(opctx.Operator{Name: name, Placement: opctx.Postfix, Arity: 1, Precedence: precedence})
	}
	fn := func(name string, arity int) {
		t.MustAddOp(opctx.Operator{Name: name, Placement: opctx.Function, Arity: arity})
	}

	infix("+", 1, opctx.Left)
	infix("-", 1, opctx.Left)
	infix("*", 2, opctx.Left)
	infix("/", 2, opctx.Left)
	infix("mod", 2, opctx.Left)
	infix("C", 2, opctx.Left)
	infix("^", 4, opctx.Right)

	prefix("-", 5)
	prefix("+", 5)

	postfix("!", 6)
	postfix("%", 6)

	fn("exp", 1)
	fn("root", 2)
	fn("sqrt", 1)
	fn("log", 1)
	fn("ln", 1)
	fn("ld", 1)
	fn("lg", 1)

	fn("sin", 1)
	fn("cos", 1)
	fn("tan", 1)
	fn("asin", 1)
	fn("acos", 1)
	fn("atan", 1)
	fn("sinh", 1)
	fn("cosh", 1)
	fn("tanh", 1)
	fn("asinh", 1)
	fn("acosh", 1)
	fn("atanh", 1)

	fn("max", opctx.DynamicArity)
	fn("min", opctx.DynamicArity)
	fn("sum", opctx.DynamicArity)
	fn("prod", opctx.DynamicArity)
	fn("avg", opctx.DynamicArity)

	fn("abs", 1)
	fn("ceil", 1)
	fn("floor", 1)
	fn("round", 1)
	fn("trunc", 1)
	fn("frac", 1)

	fn("rand", 2)
	fn("gamma", 1)
	fn("fib", 1)

	fn("pi", 0)
	fn("e", 0)
	fn("phi", 0)
	fn("clight", 0)
	fn("csound", 0)

	if err := t.SetGlueOp(t.LookupOp("*", opctx.Infix)); err != nil {
		panic(err)
	}

	return t
}

// Extended returns a table suitable for parsing rule-file WHERE
// constraints: the same built-ins as Default, plus comparison operators
// that would otherwise have no sensible place in ordinary arithmetic
// expressions (spec §4.4's matching side-conditions).
func Extended(base *opctx.Table) *opctx.Table {
	t := opctx.New()
	for _, op := range base.All() {
		t.MustAddOp(*op)
	}
	cmp := func(name string) {
		t.MustAddOp(opctx.Operator{Name: name, Placement: opctx.Infix, Arity: 2, Precedence: 0, Associativity: opctx.Left})
	}
	cmp(">")
	cmp("<")
	cmp(">=")
	cmp("<=")
	cmp("==")
	cmp("!=")
	if glue := base.GlueOp(); glue != nil {
		t.SetGlueOp(t.LookupOp(glue.Name, glue.Placement))
	}
	return t
}
