// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mc-trading CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/internal/logging"
	"github.com/pdiddy/mc-trading/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is resolved from defaults, config file, environment, and flags
	// before any subcommand runs.
	cfg      types.Config
	logger   = zap.NewNop()
	closeLog = func() {}
)

// rootCmd is the base command for the mc-trading CLI.
var rootCmd = &cobra.Command{
	Use:   "mc-trading",
	Short: "Villager trade database for Minecraft",
	Long: `mc-trading extracts jobs and enchantments from the game client into a
SQLite database and records the enchanted book trades offered by librarian
villagers.

Run "etl" once per game version to populate reference data, then "record"
to enter trades as you find them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = configFrom(viper.GetViper())
		l, closeFn, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger, closeLog = l, closeFn
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./mc-trading.yaml or ~/.config/mc-trading/mc-trading.yaml)")
	pf.String("db", "", "SQLite database file (default mc_trading.db)")
	pf.String("db-driver", "", "database driver: sqlite3 (cgo) or sqlite (pure Go)")
	pf.String("log-file", "", "append JSON log lines to this file (default mc_trading_etl.log)")
	pf.String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("db.path", pf.Lookup("db"))
	viper.BindPFlag("db.driver", pf.Lookup("db-driver"))
	viper.BindPFlag("log.file", pf.Lookup("log-file"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mc-trading")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mc-trading"))
		}
	}

	viper.SetEnvPrefix("MC_TRADING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment variables are
// picked up even when no config file mentions the key.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("db.driver", d.DB.Driver)
	v.SetDefault("etl.source", d.ETL.Source)
	v.SetDefault("etl.report", d.ETL.Report)
	v.SetDefault("fetch.manifest_url", d.Fetch.ManifestURL)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("recorder.max_cost", d.Recorder.MaxCost)
	v.SetDefault("recorder.max_trades", d.Recorder.MaxTrades)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
}

func configFrom(v *viper.Viper) types.Config {
	return types.Config{
		DB: types.StoreConfig{
			Path:   v.GetString("db.path"),
			Driver: v.GetString("db.driver"),
		},
		ETL: types.ETLConfig{
			Source: v.GetString("etl.source"),
			Report: v.GetString("etl.report"),
		},
		Fetch: types.FetchConfig{
			ManifestURL: v.GetString("fetch.manifest_url"),
			Timeout:     v.GetDuration("fetch.timeout"),
			UserAgent:   v.GetString("fetch.user_agent"),
			MaxRetries:  v.GetInt("fetch.max_retries"),
		},
		Recorder: types.RecorderConfig{
			MaxCost:   v.GetInt("recorder.max_cost"),
			MaxTrades: v.GetInt("recorder.max_trades"),
		},
		Log: types.LogConfig{
			File:  v.GetString("log.file"),
			Level: v.GetString("log.level"),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}
