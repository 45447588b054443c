// Package config loads calc.toml: the glue-operator name, startup
// ruleset files, persistence DSN, and REPL prompt/history settings.
//
// Adapted from dekarrin-tunaq's internal/tqw package, which decodes its
// world files with github.com/BurntSushi/toml's Unmarshal/Decode — the
// same library, used the same way, just against a different schema.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// REPL holds interactive-session settings.
type REPL struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"`
}

// Config is the top-level calc.toml schema.
type Config struct {
	GlueOperator string   `toml:"glue_operator"`
	RulesetFiles []string `toml:"ruleset_files"`
	StoreDSN     string   `toml:"store_dsn"`
	REPL         REPL     `toml:"repl"`
}

// Default returns the built-in configuration used when no calc.toml is
// present.
func Default() Config {
	return Config{
		GlueOperator: "*",
		StoreDSN:     "calc.db",
		REPL: REPL{
			Prompt:      "calc> ",
			HistoryFile: ".calc_history",
		},
	}
}

// Load reads and decodes the TOML file at path, starting from Default()
// so an incomplete file still produces a usable configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
