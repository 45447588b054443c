// Package calcerr is the error enumeration shared by the tokenizer, parser
// and rewrite engine. Errors are flat, fatal to the current operation but
// never to the process — the REPL resumes at the next input line.
//
// Adapted from sentra's internal/errors package: a typed error plus
// optional source-location context for caret diagnostics, but the Kind
// enumeration here is exactly the one spec.md §6 names.
package calcerr

import (
	"fmt"
	"strings"
)

// Kind is the stable, displayable error code.
type Kind string

const (
	Success                 Kind = "Success"
	MaxTokensExceeded       Kind = "MaxTokensExceeded"
	StackExceeded           Kind = "StackExceeded"
	UnexpectedSubExpression Kind = "UnexpectedSubExpression"
	ExcessOpeningParen      Kind = "ExcessOpeningParen"
	ExcessClosingParen      Kind = "ExcessClosingParen"
	UnexpectedDelimiter     Kind = "UnexpectedDelimiter"
	MissingOperator         Kind = "MissingOperator"
	MissingOperand          Kind = "MissingOperand"
	OutOfMemory             Kind = "OutOfMemory"
	FunctionWrongArity      Kind = "FunctionWrongArity"
	ChildrenExceeded        Kind = "ChildrenExceeded"
	Empty                   Kind = "Empty"
	ArgsMalformed           Kind = "ArgsMalformed"
)

// Category groups Kinds for diagnostics (spec §7).
type Category string

const (
	CategoryLexical        Category = "lexical"
	CategoryStructural     Category = "structural"
	CategorySemantic       Category = "semantic"
	CategoryResource       Category = "resource"
	CategoryProgrammer     Category = "programmer-error"
	CategoryNone           Category = ""
)

var categories = map[Kind]Category{
	MaxTokensExceeded:       CategoryLexical,
	ExcessOpeningParen:      CategoryStructural,
	ExcessClosingParen:      CategoryStructural,
	UnexpectedDelimiter:     CategoryStructural,
	UnexpectedSubExpression: CategoryStructural,
	MissingOperator:         CategoryStructural,
	MissingOperand:          CategoryStructural,
	Empty:                   CategoryStructural,
	FunctionWrongArity:      CategorySemantic,
	ChildrenExceeded:        CategorySemantic,
	StackExceeded:           CategoryResource,
	OutOfMemory:             CategoryResource,
	ArgsMalformed:           CategoryProgrammer,
}

// CategoryOf returns the diagnostic category for k, or CategoryNone.
func CategoryOf(k Kind) Category {
	return categories[k]
}

// messages gives each Kind a stable, human-readable description.
var messages = map[Kind]string{
	Success:                 "success",
	MaxTokensExceeded:       "too many tokens",
	StackExceeded:           "expression nesting too deep",
	UnexpectedSubExpression: "unexpected sub-expression",
	ExcessOpeningParen:      "unmatched opening parenthesis",
	ExcessClosingParen:      "unmatched closing parenthesis",
	UnexpectedDelimiter:     "unexpected delimiter",
	MissingOperator:         "missing operator between sub-expressions",
	MissingOperand:          "missing operand",
	OutOfMemory:             "out of memory",
	FunctionWrongArity:      "function called with wrong number of arguments",
	ChildrenExceeded:        "too many operands",
	Empty:                   "empty expression",
	ArgsMalformed:           "malformed arguments",
}

// SourceLocation pinpoints where in an input line an error occurred.
type SourceLocation struct {
	Line   int
	Column int
}

// Error is a calcerr error: a Kind plus optional source context. The
// tokenizer, parser, evaluator and single-rule parser return *Error so
// callers can switch on Kind; other packages (config, history, store,
// repl, opctx) and rewrite.ParseRuleset return ordinary or wrapped errors.
type Error struct {
	Kind     Kind
	Detail   string // optional extra context, e.g. the offending token
	Location SourceLocation
	Source   string // the source line, for caret display
}

// New builds an *Error of the given kind with no location context.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Newf builds an *Error with a formatted detail message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WithSource attaches the offending source line and column for caret
// diagnostics, mirroring sentra's SentraError.WithSource.
func (e *Error) WithSource(source string, column int) *Error {
	e.Source = source
	e.Location.Column = column
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(messages[e.Kind])
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Source != "" {
		sb.WriteString("\n  ")
		sb.WriteString(e.Source)
		if e.Location.Column > 0 {
			sb.WriteString("\n  ")
			sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			sb.WriteString("^")
		}
	}
	return sb.String()
}

// Is reports whether err is itself a *Error of the given kind. Wrapped
// errors are not unwrapped.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*Error)
	return ok && ce.Kind == kind
}
