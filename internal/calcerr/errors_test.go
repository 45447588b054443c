package calcerr

import "testing"

func TestErrorStringIncludesDetail(t *testing.T) {
	err := Newf(ArgsMalformed, "expected 2 args, got %d", 3)
	got := err.Error()
	want := "malformed arguments: expected 2 args, got 3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestErrorStringWithSourceShowsCaret(t *testing.T) {
	err := New(MissingOperand).WithSource("1 + ", 5)
	got := err.Error()
	want := "missing operand\n  1 + \n      ^"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsMatchesKind(t *testing.T) {
	var err error = New(Empty)
	if !Is(err, Empty) {
		t.Error("expected Is to report true for a matching Kind")
	}
	if Is(err, MissingOperand) {
		t.Error("expected Is to report false for a non-matching Kind")
	}
}

func TestIsRejectsNonCalcError(t *testing.T) {
	if Is(errPlain{}, Empty) {
		t.Error("expected Is to report false for an error that isn't *Error")
	}
}

type errPlain struct{}

func (errPlain) Error() string { return "plain error" }

func TestCategoryOfGroupsKinds(t *testing.T) {
	cases := []struct {
		kind Kind
		want Category
	}{
		{MaxTokensExceeded, CategoryLexical},
		{MissingOperand, CategoryStructural},
		{FunctionWrongArity, CategorySemantic},
		{StackExceeded, CategoryResource},
		{ArgsMalformed, CategoryProgrammer},
		{Success, CategoryNone},
	}
	for _, c := range cases {
		if got := CategoryOf(c.kind); got != c.want {
			t.Errorf("CategoryOf(%s) = %q, want %q", c.kind, got, c.want)
		}
	}
}
