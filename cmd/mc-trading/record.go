// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/internal/recorder"
	"github.com/pdiddy/mc-trading/internal/store"
	"github.com/pdiddy/mc-trading/pkg/types"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record librarian enchanted book trades",
	Long: `Record walks through location, villager, and trade prompts, adding
locations and librarians as needed. Run "etl" first so jobs and enchantments
exist.

Passing --villager, --enchantment, --level, and --cost records a single
trade without prompting; the villager must already be registered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("villager") || flags.Changed("enchantment") || flags.Changed("level") || flags.Changed("cost") {
			if !(flags.Changed("villager") && flags.Changed("enchantment") && flags.Changed("level") && flags.Changed("cost")) {
				return fmt.Errorf("recording a single trade needs --villager, --enchantment, --level, and --cost")
			}
			var in recorder.TradeInput
			in.VillagerID, _ = flags.GetString("villager")
			in.Enchantment, _ = flags.GetString("enchantment")
			in.Level, _ = flags.GetInt("level")
			in.Cost, _ = flags.GetInt("cost")
			return recordOne(cmd.Context(), cfg, logger, cmd.OutOrStdout(), in)
		}
		return recordInteractive(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	recordCmd.Flags().String("villager", "", "villager id")
	recordCmd.Flags().String("enchantment", "", "enchantment name, e.g. mending")
	recordCmd.Flags().Int("level", 0, "enchantment level")
	recordCmd.Flags().Int("cost", 0, "price in emeralds")

	rootCmd.AddCommand(recordCmd)
}

func openStore(ctx context.Context, cfg types.Config, logger *zap.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func recordOne(ctx context.Context, cfg types.Config, logger *zap.Logger, w io.Writer, in recorder.TradeInput) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	obs, err := recorder.New(st, cfg.Recorder, logger).Record(ctx, in)
	if err != nil {
		logger.Error("trade rejected", zap.String("villager_id", in.VillagerID), zap.Error(err))
		return err
	}
	fmt.Fprintf(w, "Recorded trade #%d: %s %s %d for %d emeralds\n",
		obs.TradeID, obs.VillagerID, obs.Enchantment, obs.Level, obs.CostEmeralds)
	return nil
}

func recordInteractive(ctx context.Context, cfg types.Config, logger *zap.Logger, r io.Reader, w io.Writer) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	rec := recorder.New(st, cfg.Recorder, logger)
	return recorder.NewSession(rec, r, w).Run(ctx)
}
