// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mc-trading/internal/fetch"
	"github.com/pdiddy/mc-trading/internal/normalize"
	"github.com/pdiddy/mc-trading/internal/source"
	"github.com/pdiddy/mc-trading/internal/store"
	"github.com/pdiddy/mc-trading/pkg/types"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Load jobs and enchantments from the game client into the database",
	Long: `ETL reads the client JAR (or an extracted data directory, or a YAML seed
file), normalizes the job and enchantment definitions it finds, and upserts
them into the database in a single transaction. Locations, villagers, and
recorded trades are never modified.

With --fetch the latest release client is downloaded to --source first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doFetch, _ := cmd.Flags().GetBool("fetch")
		return runETL(cmd.Context(), cfg, logger, cmd.OutOrStdout(), doFetch)
	},
}

func init() {
	etlCmd.Flags().String("source", "", "client JAR, data directory, or YAML seed (default client.jar)")
	etlCmd.Flags().String("report", "", "write the normalized bundle to this YAML file")
	etlCmd.Flags().Bool("fetch", false, "download the latest release client to --source before loading")

	viper.BindPFlag("etl.source", etlCmd.Flags().Lookup("source"))
	viper.BindPFlag("etl.report", etlCmd.Flags().Lookup("report"))

	rootCmd.AddCommand(etlCmd)
}

// etlReport is the YAML document written by --report.
type etlReport struct {
	RunID       string            `yaml:"run_id"`
	Source      string            `yaml:"source"`
	GeneratedAt time.Time         `yaml:"generated_at"`
	Summary     store.LoadSummary `yaml:"summary"`
	Bundle      *types.Bundle     `yaml:"bundle"`
}

func runETL(ctx context.Context, cfg types.Config, logger *zap.Logger, w io.Writer, doFetch bool) error {
	runID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating run id: %w", err)
	}
	log := logger.With(zap.String("run_id", runID.String()))
	src := cfg.ETL.Source
	if src == "" {
		src = types.DefaultSource
	}
	log.Info("etl started", zap.String("source", src), zap.String("db", cfg.DB.Path))

	if doFetch {
		if err := checkFetchDest(src); err != nil {
			return err
		}
		rel, err := fetch.New(cfg.Fetch, log).Latest(ctx, src)
		if err != nil {
			log.Error("fetch failed", zap.Error(err))
			return err
		}
		fmt.Fprintf(w, "Fetched client %s to %s\n", rel.Version, rel.Path)
	}

	records, err := source.Read(src)
	if err != nil {
		log.Error("reading source failed", zap.Error(err))
		return fmt.Errorf("reading %s: %w", src, err)
	}

	bundle, err := normalize.Normalize(records, log)
	if err != nil {
		log.Error("normalizing failed", zap.Error(err))
		return fmt.Errorf("normalizing %s: %w", src, err)
	}

	st, err := store.Open(cfg.DB, log)
	if err != nil {
		log.Error("opening database failed", zap.Error(err))
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Error("creating schema failed", zap.Error(err))
		return err
	}

	summary, err := st.Load(ctx, bundle)
	if err != nil {
		log.Error("load failed, nothing committed", zap.Error(err))
		return err
	}

	if cfg.ETL.Report != "" {
		report := etlReport{
			RunID:       runID.String(),
			Source:      src,
			GeneratedAt: time.Now().UTC(),
			Summary:     summary,
			Bundle:      bundle,
		}
		if err := writeReport(cfg.ETL.Report, report); err != nil {
			log.Error("writing report failed", zap.Error(err))
			return err
		}
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return err
	}

	log.Info("etl complete",
		zap.Int("records", len(records)),
		zap.Int("jobs", len(bundle.Jobs)),
		zap.Int("enchantments", len(bundle.Enchantments)),
		zap.Int("conflicts", len(bundle.Warnings)),
	)

	fmt.Fprintf(w, "ETL complete (run %s)\n", runID)
	fmt.Fprintf(w, "  Source records: %d\n", len(records))
	fmt.Fprintf(w, "  Jobs:           %d new, %d unchanged\n", summary.JobsInserted, summary.JobsUnchanged)
	fmt.Fprintf(w, "  Enchantments:   %d new, %d updated, %d unchanged\n",
		summary.EnchantmentsInserted, summary.EnchantmentsUpdated, summary.EnchantmentsUnchanged)
	if len(bundle.Warnings) > 0 {
		fmt.Fprintf(w, "  Conflicts:      %d\n", len(bundle.Warnings))
		for _, cw := range bundle.Warnings {
			fmt.Fprintf(w, "    %s\n", cw)
		}
	}
	if len(bundle.Templates) > 0 {
		fmt.Fprintf(w, "  Librarian book offers: %d\n", len(bundle.Templates))
	}
	printCounts(w, counts)
	return nil
}

// checkFetchDest rejects a download target that is not a client archive,
// so --fetch never overwrites a seed file or a data directory.
func checkFetchDest(src string) error {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".jar", ".zip":
	default:
		return fmt.Errorf("--fetch needs a .jar or .zip source, got %s", src)
	}
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return fmt.Errorf("--fetch needs a .jar or .zip source, %s is a directory", src)
	}
	return nil
}

func writeReport(path string, report etlReport) error {
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func printCounts(w io.Writer, counts map[string]int) {
	fmt.Fprintln(w, "Database rows:")
	for _, table := range store.Tables {
		fmt.Fprintf(w, "  %-17s %d\n", table, counts[table])
	}
}
