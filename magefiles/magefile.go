//go:build mage

// Package main contains Mage build targets for mc-trading developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "mc-trading"
	cmdPkg  = "./cmd/mc-trading"
	cfgFile = "mc-trading.yaml"
)

var binPath = filepath.Join(binDir, binName)

// sampleConfig is written by Init when no config file exists.
const sampleConfig = `db:
  path: mc_trading.db
  driver: sqlite3   # or "sqlite" for the pure Go driver
etl:
  source: client.jar
log:
  file: mc_trading_etl.log
  level: info
recorder:
  max_cost: 64
  max_trades: 4
`

// Init writes a starter mc-trading.yaml if one does not exist.
func Init() error {
	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Printf("%s already exists, leaving it alone.\n", cfgFile)
		return nil
	}
	if err := os.WriteFile(cfgFile, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfgFile, err)
	}
	fmt.Printf("Wrote %s\n", cfgFile)
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	if err := sh.RunV("go", "build", "-o", binPath, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", binPath)
	return nil
}

// Test runs all unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// BuildPureGo compiles the CLI without cgo. The resulting binary must be
// run with db.driver set to sqlite.
func BuildPureGo() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := binPath + "-purego"
	if err := sh.RunWithV(map[string]string{"CGO_ENABLED": "0"}, "go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (use MC_TRADING_DB_DRIVER=sqlite)\n", out)
	return nil
}

// Stats prints table row counts from the configured database and Go line
// counts for the repository.
func Stats() error {
	mg.Deps(Build)
	if err := sh.RunV(binPath, "stats"); err != nil {
		return err
	}

	prod, test, err := countGoLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	return nil
}

// countGoLines counts non-blank lines in Go files, split by test and
// production code. Hidden directories and underscore-prefixed ones are skipped.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}
