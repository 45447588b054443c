// Package repl implements the interactive read-simplify-evaluate loop:
// tokenize, parse, apply the active ruleset to a fixed point, evaluate,
// and print, plus the :tree/:tokens/:rules/:define/:steps introspection
// and composite-definition commands.
//
// Adapted from sentra's internal/repl.Start (the prompt-loop shape) and
// from dekarrin-tunaq's internal/input.InteractiveCommandReader (the
// chzyer/readline-backed line reader with a bufio.Scanner fallback for
// piped, non-interactive input — detected with mattn/go-isatty, the same
// way funvibe-funxy's evaluator checks os.Stdout.Fd() before deciding
// whether to behave interactively).
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"calc/internal/eval"
	"calc/internal/evalctx"
	"calc/internal/history"
	"calc/internal/lexer"
	"calc/internal/node"
	"calc/internal/opctx"
	"calc/internal/parser"
	"calc/internal/rewrite"
	"calc/internal/store"
	"calc/internal/trace"
)

// compositeRuleset is the ruleset name composite (user-defined) functions
// are persisted under, distinct from rules loaded from a ruleset file.
const compositeRuleset = "composites"

// lineReader is satisfied by both the readline-backed interactive reader
// and the bufio.Scanner-backed piped-input fallback.
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

type readlineReader struct{ rl *readline.Instance }

func (r *readlineReader) ReadLine() (string, error) { return r.rl.Readline() }
func (r *readlineReader) Close() error               { return r.rl.Close() }

type scannerReader struct{ sc *bufio.Scanner }

func (r *scannerReader) ReadLine() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}
func (r *scannerReader) Close() error { return nil }

// REPL holds the state of one interactive session.
type REPL struct {
	Table   *opctx.Table
	Ruleset *rewrite.Ruleset
	History *history.Log
	Store   *store.Store

	prompt      string
	historyFile string
	out         io.Writer
	reader      lineReader
	lastSteps   trace.Recorder
}

// Option configures a REPL at construction time.
type Option func(*REPL)

// WithPrompt overrides the default prompt string.
func WithPrompt(prompt string) Option {
	return func(r *REPL) { r.prompt = prompt }
}

// WithHistoryFile sets the readline history file used for interactive
// sessions (ignored when stdin is not a TTY).
func WithHistoryFile(path string) Option {
	return func(r *REPL) { r.historyFile = path }
}

// WithStore attaches a persistence backend. When set, New loads any
// composite functions saved by a previous session before the first
// prompt, and the :define command saves new ones back to it.
func WithStore(s *store.Store) Option {
	return func(r *REPL) { r.Store = s }
}

// New builds a REPL reading from stdin and writing to stdout, choosing a
// readline-backed reader when stdin is a terminal and a plain
// bufio.Scanner otherwise.
func New(opts ...Option) (*REPL, error) {
	r := &REPL{
		Table:   evalctx.Default(),
		Ruleset: &rewrite.Ruleset{},
		History: history.New(),
		prompt:  "calc> ",
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.Store != nil {
		if err := r.loadPersistedComposites(); err != nil {
			return nil, fmt.Errorf("repl: load persisted composites: %w", err)
		}
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          r.prompt,
			HistoryFile:     r.historyFile,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return nil, fmt.Errorf("repl: init readline: %w", err)
		}
		r.reader = &readlineReader{rl: rl}
	} else {
		r.reader = &scannerReader{sc: bufio.NewScanner(os.Stdin)}
	}

	return r, nil
}

// Run drives the loop until EOF or an explicit ":quit".
func (r *REPL) Run() error {
	defer r.reader.Close()

	fmt.Fprintln(r.out, "calc | :help for commands, :quit to exit")
	for {
		line, err := r.reader.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if done := r.command(line); done {
				return nil
			}
			continue
		}

		r.evalLine(line)
	}
}

func (r *REPL) command(line string) (quit bool) {
	fields := strings.Fields(line)
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	switch fields[0] {
	case ":quit", ":exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, "commands: :quit :help :tree <expr> :tokens <expr> :rules :define <name(params) := body> :steps")
	case ":tree":
		r.showTree(rest)
	case ":tokens":
		r.showTokens(rest)
	case ":rules":
		for i, rule := range r.Ruleset.Rules {
			fmt.Fprintf(r.out, "%d: %s\n", i+1, rule)
		}
	case ":define":
		r.define(rest)
	case ":steps":
		fmt.Fprint(r.out, r.lastSteps.String())
	default:
		fmt.Fprintf(r.out, "unknown command %q\n", fields[0])
	}
	return false
}

func (r *REPL) showTree(expr string) {
	tree, err := r.parse(expr)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	fmt.Fprint(r.out, trace.NewFormatter().Tree(tree))
}

func (r *REPL) showTokens(expr string) {
	tokens, err := lexer.NewScanner(expr, r.Table).ScanTokens()
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	fmt.Fprint(r.out, trace.Tokens(tokens))
}

func (r *REPL) parse(expr string) (*node.Node, error) {
	tokens, err := lexer.NewScanner(expr, r.Table).ScanTokens()
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens, r.Table)
}

func (r *REPL) evalLine(line string) {
	tree, err := r.parse(line)
	if err != nil {
		fmt.Fprintln(r.out, err)
		r.record(line, nil, 0, nil, err)
		return
	}

	rec := &trace.Recorder{}
	tree, _ = rewrite.ApplyRulesetTraced(r.Ruleset, tree, func(rule *rewrite.Rule, before, after *node.Node) {
		rec.Record(rule.String(), before, after)
	})
	r.lastSteps = *rec

	value, evalErr := eval.Eval(tree)
	if evalErr != nil {
		fmt.Fprintf(r.out, "%s  (%s)\n", tree, evalErr)
	} else {
		fmt.Fprintf(r.out, "%s = %g\n", tree, value)
	}
	r.record(line, tree, value, rec, evalErr)
}

func (r *REPL) record(input string, tree *node.Node, value float64, rec *trace.Recorder, evalErr error) {
	entry := history.Entry{Timestamp: time.Now(), Input: input, Value: value}
	if tree != nil {
		entry.Tree = tree.String()
	}
	if evalErr != nil {
		entry.Error = evalErr.Error()
	}
	if rec != nil {
		for _, s := range rec.Steps {
			entry.Steps = append(entry.Steps, fmt.Sprintf("%s: %s -> %s", s.RuleSource, s.Before, s.After))
		}
	}
	r.History.Record(entry)
}

// define handles ":define name(p1, p2) := body", registering the
// composite function with r.Table and its expansion rule with r.Ruleset,
// then persisting the definition to r.Store (if attached) so it survives
// a restart.
func (r *REPL) define(text string) {
	name, params, body, err := parseCompositeDef(text)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	rule, err := rewrite.DefineComposite(r.Table, name, params, body)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.Ruleset.Rules = append(r.Ruleset.Rules, rule)

	if r.Store != nil {
		if _, err := r.Store.SaveRule(context.Background(), compositeRuleset, rule.Source); err != nil {
			fmt.Fprintf(r.out, "warning: composite %q was not persisted: %v\n", name, err)
		}
	}
}

// loadPersistedComposites re-registers every composite function r.Store
// has saved from a previous session, in the order it was saved.
func (r *REPL) loadPersistedComposites() error {
	records, err := r.Store.ListRules(context.Background(), compositeRuleset)
	if err != nil {
		return err
	}
	for _, rec := range records {
		name, params, body, err := parseCompositeDef(rec.Text)
		if err != nil {
			return fmt.Errorf("persisted composite %q: %w", rec.ID, err)
		}
		rule, err := rewrite.DefineComposite(r.Table, name, params, body)
		if err != nil {
			return fmt.Errorf("persisted composite %q: %w", rec.ID, err)
		}
		r.Ruleset.Rules = append(r.Ruleset.Rules, rule)
	}
	return nil
}

// parseCompositeDef parses "name(p1, p2) := body" into its name, parameter
// names and body text, the same shape original_source's
// add_composite_function call takes.
func parseCompositeDef(text string) (name string, params []string, body string, err error) {
	assignIdx := strings.Index(text, ":=")
	if assignIdx < 0 {
		return "", nil, "", fmt.Errorf("repl: composite definition missing ':=': %q", text)
	}
	head := strings.TrimSpace(text[:assignIdx])
	body = strings.TrimSpace(text[assignIdx+2:])

	open := strings.Index(head, "(")
	closeIdx := strings.LastIndex(head, ")")
	if open < 0 || closeIdx < open {
		return "", nil, "", fmt.Errorf("repl: composite definition missing parameter list: %q", text)
	}
	name = strings.TrimSpace(head[:open])
	if name == "" {
		return "", nil, "", fmt.Errorf("repl: composite definition missing a name: %q", text)
	}
	if paramsText := strings.TrimSpace(head[open+1 : closeIdx]); paramsText != "" {
		for _, p := range strings.Split(paramsText, ",") {
			params = append(params, strings.TrimSpace(p))
		}
	}
	return name, params, body, nil
}
