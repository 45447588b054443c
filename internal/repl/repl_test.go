package repl

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"calc/internal/evalctx"
	"calc/internal/history"
	"calc/internal/rewrite"
	"calc/internal/store"
)

func newTestREPL() (*REPL, *bytes.Buffer) {
	var buf bytes.Buffer
	r := &REPL{
		Table:   evalctx.Default(),
		Ruleset: &rewrite.Ruleset{},
		History: history.New(),
		out:     &buf,
	}
	return r, &buf
}

func TestEvalLinePrintsResultAndRecordsHistory(t *testing.T) {
	r, buf := newTestREPL()

	r.evalLine("2+3")

	if !strings.Contains(buf.String(), "= 5") {
		t.Fatalf("expected output to show the evaluated result, got %q", buf.String())
	}
	entries := r.History.Entries()
	if len(entries) != 1 || entries[0].Input != "2+3" || entries[0].Value != 5 {
		t.Fatalf("got history %+v, want one entry for '2+3' = 5", entries)
	}
}

func TestEvalLineReportsParseError(t *testing.T) {
	r, buf := newTestREPL()

	r.evalLine("2+")

	entries := r.History.Entries()
	if len(entries) != 1 || entries[0].Error == "" {
		t.Fatalf("got history %+v, want one entry recording a parse error", entries)
	}
	if buf.Len() == 0 {
		t.Fatal("expected the parse error to be printed")
	}
}

func TestEvalLineAppliesRuleset(t *testing.T) {
	r, buf := newTestREPL()

	rule, err := rewrite.ParseRule("v_x+0 -> v_x", r.Table, r.Table)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	r.Ruleset.Rules = append(r.Ruleset.Rules, rule)

	r.evalLine("a+0")

	// "a" is a free variable, so evaluation fails and the simplified tree
	// is printed followed by the evaluation error in parentheses.
	if !strings.Contains(buf.String(), "a  (") {
		t.Errorf("expected the ruleset to simplify 'a+0' to 'a' before printing, got %q", buf.String())
	}
}

func TestCommandQuitSignalsDone(t *testing.T) {
	r, _ := newTestREPL()
	if done := r.command(":quit"); !done {
		t.Fatal("expected :quit to signal done")
	}
	if done := r.command(":exit"); !done {
		t.Fatal("expected :exit to signal done")
	}
}

func TestCommandHelpDoesNotQuit(t *testing.T) {
	r, buf := newTestREPL()
	if done := r.command(":help"); done {
		t.Fatal(":help should not signal done")
	}
	if !strings.Contains(buf.String(), "commands:") {
		t.Errorf("expected :help to print a command summary, got %q", buf.String())
	}
}

func TestCommandTreeRendersExpression(t *testing.T) {
	r, buf := newTestREPL()
	r.command(":tree 1+2")

	if !strings.Contains(buf.String(), "+ (infix, arity 2)") {
		t.Errorf("expected :tree to render the operator node, got %q", buf.String())
	}
}

func TestCommandTokensRendersTokenList(t *testing.T) {
	r, buf := newTestREPL()
	r.command(":tokens 1+2")

	out := buf.String()
	if !strings.Contains(out, "number") || !strings.Contains(out, "operator") {
		t.Errorf("expected :tokens to list token types, got %q", out)
	}
}

func TestCommandRulesListsRegisteredRules(t *testing.T) {
	r, buf := newTestREPL()
	rule, err := rewrite.ParseRule("v_x+0 -> v_x", r.Table, r.Table)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	r.Ruleset.Rules = append(r.Ruleset.Rules, rule)

	r.command(":rules")

	if !strings.Contains(buf.String(), "v_x+0 -> v_x") {
		t.Errorf("expected :rules to list the registered rule, got %q", buf.String())
	}
}

func TestCommandUnknownReportsMessage(t *testing.T) {
	r, buf := newTestREPL()
	if done := r.command(":bogus"); done {
		t.Fatal("an unknown command should not signal done")
	}
	if !strings.Contains(buf.String(), "unknown command") {
		t.Errorf("expected an unknown-command message, got %q", buf.String())
	}
}

func TestCommandDefineRegistersCompositeFunction(t *testing.T) {
	r, _ := newTestREPL()
	r.command(":define square(x) := x*x")

	if len(r.Ruleset.Rules) != 1 {
		t.Fatalf("got %d rules, want 1 after :define", len(r.Ruleset.Rules))
	}

	buf2 := &bytes.Buffer{}
	r.out = buf2
	r.evalLine("square(3)")
	if !strings.Contains(buf2.String(), "= 9") {
		t.Errorf("expected square(3) to evaluate to 9 via the defined composite, got %q", buf2.String())
	}
}

func TestCommandDefineRejectsMalformedText(t *testing.T) {
	r, buf := newTestREPL()
	r.command(":define square(x) x*x")

	if len(r.Ruleset.Rules) != 0 {
		t.Fatal("expected no rule to be registered for malformed :define text")
	}
	if buf.Len() == 0 {
		t.Fatal("expected an error message for malformed :define text")
	}
}

func TestCommandStepsRendersLastTrace(t *testing.T) {
	r, _ := newTestREPL()
	rule, err := rewrite.ParseRule("v_x+0 -> v_x", r.Table, r.Table)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	r.Ruleset.Rules = append(r.Ruleset.Rules, rule)

	r.evalLine("a+0")

	buf2 := &bytes.Buffer{}
	r.out = buf2
	r.command(":steps")

	if !strings.Contains(buf2.String(), "v_x+0 -> v_x") {
		t.Errorf("expected :steps to render the rule applied by the last evalLine, got %q", buf2.String())
	}
}

func TestCommandStepsEmptyWhenNothingEvaluatedYet(t *testing.T) {
	r, buf := newTestREPL()
	r.command(":steps")
	if buf.Len() != 0 {
		t.Errorf("expected :steps to print nothing before any evaluation, got %q", buf.String())
	}
}

func TestParseCompositeDef(t *testing.T) {
	name, params, body, err := parseCompositeDef("square(x) := x*x")
	if err != nil {
		t.Fatalf("parseCompositeDef: %v", err)
	}
	if name != "square" || len(params) != 1 || params[0] != "x" || body != "x*x" {
		t.Fatalf("got name=%q params=%v body=%q, want square/[x]/x*x", name, params, body)
	}
}

func TestParseCompositeDefMultipleParams(t *testing.T) {
	name, params, body, err := parseCompositeDef("avg2(a, b) := (a+b)/2")
	if err != nil {
		t.Fatalf("parseCompositeDef: %v", err)
	}
	if name != "avg2" || len(params) != 2 || params[0] != "a" || params[1] != "b" || body != "(a+b)/2" {
		t.Fatalf("got name=%q params=%v body=%q", name, params, body)
	}
}

func TestParseCompositeDefRejectsMissingArrow(t *testing.T) {
	if _, _, _, err := parseCompositeDef("square(x) x*x"); err == nil {
		t.Fatal("expected an error for a definition missing ':='")
	}
}

func TestParseCompositeDefRejectsMissingParens(t *testing.T) {
	if _, _, _, err := parseCompositeDef("square := x*x"); err == nil {
		t.Fatal("expected an error for a definition missing a parameter list")
	}
}

func TestDefinePersistsToStoreAndReloadsOnNew(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "calc.db")
	db, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	r, _ := newTestREPL()
	r.Store = db
	r.command(":define square(x) := x*x")

	reloaded, err := New(WithStore(db))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(reloaded.Ruleset.Rules) != 1 {
		t.Fatalf("got %d rules after reload, want 1 persisted composite", len(reloaded.Ruleset.Rules))
	}
}
