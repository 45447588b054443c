// Command calc is the symbolic-arithmetic calculator: an interactive REPL
// by default, plus subcommands for one-shot evaluation and running the
// websocket server.
//
// Adapted from sentra's cmd/sentra/main.go (the alias-map-then-dispatch
// shape) but using github.com/spf13/pflag for flag parsing, the way
// dekarrin-tunaq's cmd/tqi/main.go does.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"calc/internal/config"
	"calc/internal/eval"
	"calc/internal/evalctx"
	"calc/internal/lexer"
	"calc/internal/opctx"
	"calc/internal/parser"
	"calc/internal/repl"
	"calc/internal/rewrite"
	"calc/internal/store"
	"calc/internal/wsserver"
)

// loadRulesets parses every file named in cfg.RulesetFiles into a single
// Ruleset, applied in the order the files are listed.
func loadRulesets(cfg config.Config, table *opctx.Table) *rewrite.Ruleset {
	extended := evalctx.Extended(table)
	rs := &rewrite.Ruleset{}
	for _, path := range cfg.RulesetFiles {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("calc: open ruleset %s: %v", path, err)
		}
		fileRules, err := rewrite.ParseRuleset(f, table, extended)
		f.Close()
		if err != nil {
			log.Fatalf("calc: parse ruleset %s: %v", path, err)
		}
		rs.Rules = append(rs.Rules, fileRules.Rules...)
	}
	return rs
}

const version = "0.1.0"

// commandAliases lets short letters stand in for full subcommand names,
// mirroring sentra's cmd/sentra alias map.
var commandAliases = map[string]string{
	"r": "repl",
	"e": "eval",
	"s": "serve",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		runRepl(nil)
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Println("calc", version)
	case "--help", "-h", "help":
		usage()
	case "repl":
		runRepl(args[1:])
	case "eval":
		runEval(args[1:])
	case "serve":
		runServe(args[1:])
	default:
		// No recognised subcommand: treat the whole invocation as flags
		// for the default repl command (so "calc --config x.toml" works).
		runRepl(args)
	}
}

func usage() {
	fmt.Println(`calc - symbolic-arithmetic calculator

Usage:
  calc [repl]             start the interactive REPL (default)
  calc eval <expr>        evaluate a single expression and exit
  calc serve              run the websocket evaluation server
  calc --version          print the version
  calc --help             print this message`)
}

func loadConfig(flags *pflag.FlagSet) config.Config {
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("calc: %v", err)
	}
	return cfg
}

func runRepl(args []string) {
	flags := pflag.NewFlagSet("repl", pflag.ExitOnError)
	flags.String("config", "calc.toml", "path to configuration file")
	flags.Parse(args)

	cfg := loadConfig(flags)

	opts := []repl.Option{
		repl.WithPrompt(cfg.REPL.Prompt),
		repl.WithHistoryFile(cfg.REPL.HistoryFile),
	}
	db, err := store.Open(cfg.StoreDSN)
	if err != nil {
		log.Fatalf("calc: open store: %v", err)
	}
	defer db.Close()
	opts = append(opts, repl.WithStore(db))

	r, err := repl.New(opts...)
	if err != nil {
		log.Fatalf("calc: %v", err)
	}
	// Append configured ruleset files after any composites New already
	// loaded from the store, rather than replacing r.Ruleset outright.
	r.Ruleset.Rules = append(r.Ruleset.Rules, loadRulesets(cfg, r.Table).Rules...)
	if err := r.Run(); err != nil {
		log.Fatalf("calc: %v", err)
	}
}

func runEval(args []string) {
	flags := pflag.NewFlagSet("eval", pflag.ExitOnError)
	flags.String("config", "calc.toml", "path to configuration file")
	flags.Parse(args)

	cfg := loadConfig(flags)

	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "calc eval: expected an expression")
		os.Exit(2)
	}
	expr := flags.Arg(0)

	table := evalctx.Default()
	rs := loadRulesets(cfg, table)
	tokens, err := lexer.NewScanner(expr, table).ScanTokens()
	if err != nil {
		log.Fatalf("calc eval: %v", err)
	}
	tree, err := parser.Parse(tokens, table)
	if err != nil {
		log.Fatalf("calc eval: %v", err)
	}
	tree, _ = rewrite.ApplyRuleset(rs, tree)
	value, err := eval.Eval(tree)
	if err != nil {
		log.Fatalf("calc eval: %v", err)
	}
	fmt.Printf("%g\n", value)
}

func runServe(args []string) {
	flags := pflag.NewFlagSet("serve", pflag.ExitOnError)
	addr := flags.String("addr", ":8765", "address to listen on")
	flags.Parse(args)

	srv := wsserver.New()
	http.Handle("/ws", srv)
	log.Printf("calc: serving websocket evaluation on %s", *addr)
	server := &http.Server{
		Addr:         *addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
