// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts for each table",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.Counts(cmd.Context())
		if err != nil {
			return err
		}
		printCounts(cmd.OutOrStdout(), counts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
