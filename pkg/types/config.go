// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Supported database drivers.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, requires cgo
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
)

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file (default "mc_trading.db").
	Path string `json:"path" yaml:"path"`

	// Driver selects the database/sql driver: sqlite3 or sqlite.
	Driver string `json:"driver" yaml:"driver"`
}

// ETLConfig holds settings for the extract-transform-load stage.
type ETLConfig struct {
	// Source is a client JAR, an extracted data directory, or a YAML seed file.
	Source string `json:"source" yaml:"source"`

	// Report, when set, is a path the normalized bundle is written to as YAML.
	Report string `json:"report,omitempty" yaml:"report,omitempty"`
}

// FetchConfig holds settings for downloading the client JAR.
type FetchConfig struct {
	// ManifestURL is the version manifest listing all releases.
	ManifestURL string `json:"manifest_url" yaml:"manifest_url"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is sent with every request (e.g. "mc-trading/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429 and 503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RecorderConfig holds limits enforced by the trade recorder.
type RecorderConfig struct {
	// MaxCost is the highest accepted emerald cost (default 64, one stack).
	MaxCost int `json:"max_cost" yaml:"max_cost"`

	// MaxTrades is the number of trades a librarian can hold (default 4).
	MaxTrades int `json:"max_trades" yaml:"max_trades"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// File receives JSON log lines in addition to the console. Empty disables it.
	File string `json:"file" yaml:"file"`

	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
}

// Config groups all settings read from mc-trading.yaml, the environment,
// and flags.
type Config struct {
	DB       StoreConfig    `json:"db" yaml:"db"`
	ETL      ETLConfig      `json:"etl" yaml:"etl"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch"`
	Recorder RecorderConfig `json:"recorder" yaml:"recorder"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// Defaults.
const (
	DefaultDBPath      = "mc_trading.db"
	DefaultSource      = "client.jar"
	DefaultLogFile     = "mc_trading_etl.log"
	DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest.json"
	DefaultMaxCost     = 64
	DefaultMaxTrades   = 4
)

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		DB:  StoreConfig{Path: DefaultDBPath, Driver: DriverMattn},
		ETL: ETLConfig{Source: DefaultSource},
		Fetch: FetchConfig{
			ManifestURL: DefaultManifestURL,
			Timeout:     5 * time.Minute,
			UserAgent:   "mc-trading/0.1",
			MaxRetries:  5,
		},
		Recorder: RecorderConfig{MaxCost: DefaultMaxCost, MaxTrades: DefaultMaxTrades},
		Log:      LogConfig{File: DefaultLogFile, Level: "info"},
	}
}
