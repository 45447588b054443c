package lexer

import (
	"testing"

	"calc/internal/calcerr"
	"calc/internal/opctx"
)

func testTable(t *testing.T) *opctx.Table {
	t.Helper()
	tbl := opctx.New()
	tbl.MustAddOp(opctx.Operator{Name: "+", Placement: opctx.Infix, Arity: 2, Precedence: 1})
	tbl.MustAddOp(opctx.Operator{Name: "-", Placement: opctx.Infix, Arity: 2, Precedence: 1})
	tbl.MustAddOp(opctx.Operator{Name: "*", Placement: opctx.Infix, Arity: 2, Precedence: 2})
	tbl.MustAddOp(opctx.Operator{Name: "mod", Placement: opctx.Infix, Arity: 2, Precedence: 2})
	tbl.MustAddOp(opctx.Operator{Name: "sin", Placement: opctx.Function, Arity: 1})
	return tbl
}

func TestScanTokensBasic(t *testing.T) {
	tbl := testTable(t)
	tokens, err := NewScanner("1 + 2*3", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantTypes := []TokenType{TokenNumber, TokenOperator, TokenNumber, TokenOperator, TokenNumber}
	if len(tokens) != len(wantTypes) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(wantTypes), tokens)
	}
	for i, want := range wantTypes {
		if tokens[i].Type != want {
			t.Fatalf("token %d: got %v, want %v", i, tokens[i].Type, want)
		}
	}
}

func TestScanTokensModDoesNotMatchInsideLongerIdent(t *testing.T) {
	tbl := testTable(t)
	tokens, err := NewScanner("modulus", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Type != TokenIdent || tokens[0].Text != "modulus" {
		t.Fatalf("expected a single ident token 'modulus', got %+v", tokens)
	}
}

func TestScanTokensModMatchesAsOperatorWithBoundary(t *testing.T) {
	tbl := testTable(t)
	tokens, err := NewScanner("7 mod 3", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 3 || tokens[1].Type != TokenOperator || tokens[1].Text != "mod" {
		t.Fatalf("expected 'mod' to scan as an operator token, got %+v", tokens)
	}
}

func TestScanNumberWithExponent(t *testing.T) {
	tbl := testTable(t)
	tokens, err := NewScanner("1.5e3", tbl).ScanTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Number != 1500 {
		t.Fatalf("got %+v, want a single number token of 1500", tokens)
	}
}

func TestScanTokensMaxTokensExceeded(t *testing.T) {
	tbl := testTable(t)
	_, err := NewScanner("1 1 1 1 1", tbl).WithMaxTokens(3).ScanTokens()
	if !calcerr.Is(err, calcerr.MaxTokensExceeded) {
		t.Fatalf("got %v, want MaxTokensExceeded", err)
	}
}

func TestJoinRoundTrip(t *testing.T) {
	tbl := testTable(t)
	original := "1 + 2 * sin ( 3 )"
	tokens, err := NewScanner(original, tbl).ScanTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reassembled := Join(tokens)
	reparsed, err := NewScanner(reassembled, tbl).ScanTokens()
	if err != nil {
		t.Fatalf("unexpected error reparsing: %v", err)
	}
	if len(reparsed) != len(tokens) {
		t.Fatalf("round-trip token count mismatch: got %d, want %d", len(reparsed), len(tokens))
	}
	for i := range tokens {
		if tokens[i].Type != reparsed[i].Type || tokens[i].Text != reparsed[i].Text {
			t.Fatalf("round-trip mismatch at %d: %+v vs %+v", i, tokens[i], reparsed[i])
		}
	}
}
