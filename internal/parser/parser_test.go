package parser

import (
	"testing"

	"calc/internal/calcerr"
	"calc/internal/lexer"
	"calc/internal/opctx"
)

func buildTable(t *testing.T) *opctx.Table {
	t.Helper()
	tbl := opctx.New()
	tbl.MustAddOp(opctx.Operator{Name: "+", Placement: opctx.Infix, Arity: 2, Precedence: 1, Associativity: opctx.Left})
	tbl.MustAddOp(opctx.Operator{Name: "-", Placement: opctx.Infix, Arity: 2, Precedence: 1, Associativity: opctx.Left})
	tbl.MustAddOp(opctx.Operator{Name: "*", Placement: opctx.Infix, Arity: 2, Precedence: 2, Associativity: opctx.Left})
	tbl.MustAddOp(opctx.Operator{Name: "/", Placement: opctx.Infix, Arity: 2, Precedence: 2, Associativity: opctx.Left})
	tbl.MustAddOp(opctx.Operator{Name: "^", Placement: opctx.Infix, Arity: 2, Precedence: 4, Associativity: opctx.Right})
	tbl.MustAddOp(opctx.Operator{Name: "-", Placement: opctx.Prefix, Arity: 1, Precedence: 5})
	tbl.MustAddOp(opctx.Operator{Name: "!", Placement: opctx.Postfix, Arity: 1, Precedence: 6})
	tbl.MustAddOp(opctx.Operator{Name: "sin", Placement: opctx.Function, Arity: 1})
	tbl.MustAddOp(opctx.Operator{Name: "pi", Placement: opctx.Function, Arity: 0})
	tbl.MustAddOp(opctx.Operator{Name: "max", Placement: opctx.Function, Arity: opctx.DynamicArity})

	mul := tbl.LookupOp("*", opctx.Infix)
	if err := tbl.SetGlueOp(mul); err != nil {
		t.Fatalf("set glue op: %v", err)
	}
	return tbl
}

func mustParse(t *testing.T, src string) string {
	t.Helper()
	tbl := buildTable(t)
	tokens, err := lexer.NewScanner(src, tbl).ScanTokens()
	if err != nil {
		t.Fatalf("scan %q: %v", src, err)
	}
	tree, err := Parse(tokens, tbl)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return tree.String()
}

func TestParsePrecedenceAndAssociativity(t *testing.T) {
	cases := map[string]string{
		"1+2*3":   "+(1, *(2, 3))",
		"2^3^2":   "^(2, ^(3, 2))", // right-associative
		"1-2-3":   "-(-(1, 2), 3)", // left-associative
		"(1+2)*3": "*(+(1, 2), 3)",
	}
	for src, want := range cases {
		if got := mustParse(t, src); got != want {
			t.Errorf("%q: got %q, want %q", src, got, want)
		}
	}
}

func TestParseGlueOperatorInsertion(t *testing.T) {
	if got, want := mustParse(t, "2(3+4)"), "*(2, +(3, 4))"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseBareFunctionName(t *testing.T) {
	if got, want := mustParse(t, "pi"), "pi"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseVariadicFunction(t *testing.T) {
	if got, want := mustParse(t, "max(1,2,3,4)"), "max(1, 2, 3, 4)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseUnaryFunctionWithoutParens(t *testing.T) {
	if got, want := mustParse(t, "sin x"), "sin(x)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParsePrefixAndPostfix(t *testing.T) {
	if got, want := mustParse(t, "-3!"), "-(!(3))"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseErrorExcessClosingParen(t *testing.T) {
	tbl := buildTable(t)
	tokens, err := lexer.NewScanner("(1+2))", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = Parse(tokens, tbl)
	if !calcerr.Is(err, calcerr.ExcessClosingParen) {
		t.Fatalf("got %v, want ExcessClosingParen", err)
	}
}

func TestParseErrorExcessOpeningParen(t *testing.T) {
	tbl := buildTable(t)
	tokens, err := lexer.NewScanner("((1+2)", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = Parse(tokens, tbl)
	if !calcerr.Is(err, calcerr.ExcessOpeningParen) {
		t.Fatalf("got %v, want ExcessOpeningParen", err)
	}
}

func TestParseErrorEmpty(t *testing.T) {
	tbl := buildTable(t)
	tokens, err := lexer.NewScanner("", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = Parse(tokens, tbl)
	if !calcerr.Is(err, calcerr.Empty) {
		t.Fatalf("got %v, want Empty", err)
	}
}

func TestParseErrorUnexpectedSubExpressionWithoutGlueOp(t *testing.T) {
	tbl := opctx.New()
	tbl.MustAddOp(opctx.Operator{Name: "+", Placement: opctx.Infix, Arity: 2, Precedence: 1})
	tokens, err := lexer.NewScanner("1 2", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = Parse(tokens, tbl)
	if !calcerr.Is(err, calcerr.UnexpectedSubExpression) {
		t.Fatalf("got %v, want UnexpectedSubExpression (two adjacent leaves, no glue op configured)", err)
	}
}

func TestParseChildCountMatchesDeclaredArity(t *testing.T) {
	tbl := buildTable(t)
	tokens, _ := lexer.NewScanner("1+2", tbl).ScanTokens()
	tree, err := Parse(tokens, tbl)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree.NumChildren() != tree.Operator().Arity {
		t.Fatalf("child count %d does not match declared arity %d", tree.NumChildren(), tree.Operator().Arity)
	}
}
