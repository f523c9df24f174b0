// Package cmd implements the CLI application to manage a plaintext ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/beancounters/beanledger"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"
)

// Commands is the list of subcommands a main package registers.
var Commands = []subcommands.Command{
	&openCmd{},
	&closeCmd{},
	&accountsCmd{},
	&addCmd{},
	&txCmd{},
	&rmCmd{},
	&clearCmd{flag: beanledger.FlagCleared},
	&clearCmd{flag: beanledger.FlagPending},
	&verifyCmd{},
	&fmtCmd{},
	&topicCmd{},
}

// As a CLI application it is short lived, so global flags are fine.

var dataDir = flag.String("C", "", "Path to the ledger data directory (default: $BEANLEDGER_DIR, then config file, then \"ledger\")")

// config is the optional on-disk configuration, read from
// $XDG_CONFIG_HOME/beanledger/config.yaml.
type config struct {
	Dir      string `yaml:"dir"`
	Currency string `yaml:"currency"` // assumed when a posting gives a number without a currency
}

// defaultCurrency returns the configured operating currency, or "".
func defaultCurrency() string {
	if c := os.Getenv("BEANLEDGER_CURRENCY"); c != "" {
		return c
	}
	c, err := loadConfig()
	if err != nil {
		return ""
	}
	return c.Currency
}

func loadConfig() (config, error) {
	var c config
	base, err := os.UserConfigDir()
	if err != nil {
		return c, nil
	}
	data, err := os.ReadFile(filepath.Join(base, "beanledger", "config.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("invalid config file: %w", err)
	}
	return c, nil
}

// openLedger resolves the data directory (flag, then environment, then
// config file, then "ledger") and opens the engine on it.
func openLedger() (*beanledger.Ledger, error) {
	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("BEANLEDGER_DIR")
	}
	if dir == "" {
		c, err := loadConfig()
		if err != nil {
			return nil, err
		}
		dir = c.Dir
	}
	if dir == "" {
		dir = "ledger"
	}
	return beanledger.OpenLedger(dir)
}

// printMarkdown renders markdown to the terminal, falling back to the raw
// text when rendering fails (e.g. output is not a terminal).
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

func usageError(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	return subcommands.ExitUsageError
}
