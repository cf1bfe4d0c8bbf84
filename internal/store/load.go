// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// LoadSummary holds row counts from one Load.
type LoadSummary struct {
	JobsInserted          int `json:"jobs_inserted" yaml:"jobs_inserted"`
	JobsUnchanged         int `json:"jobs_unchanged" yaml:"jobs_unchanged"`
	EnchantmentsInserted  int `json:"enchantments_inserted" yaml:"enchantments_inserted"`
	EnchantmentsUpdated   int `json:"enchantments_updated" yaml:"enchantments_updated"`
	EnchantmentsUnchanged int `json:"enchantments_unchanged" yaml:"enchantments_unchanged"`
}

// Total returns the number of bundle rows processed.
func (s LoadSummary) Total() int {
	return s.JobsInserted + s.JobsUnchanged +
		s.EnchantmentsInserted + s.EnchantmentsUpdated + s.EnchantmentsUnchanged
}

func (s LoadSummary) String() string {
	return fmt.Sprintf("jobs: %d new, %d unchanged; enchantments: %d new, %d updated, %d unchanged",
		s.JobsInserted, s.JobsUnchanged,
		s.EnchantmentsInserted, s.EnchantmentsUpdated, s.EnchantmentsUnchanged)
}

// Load upserts the bundle's jobs and enchantments in one transaction.
// Jobs are insert-or-ignore; enchantments update only max_level on
// conflict, leaving any other column untouched. Any failure rolls back
// the whole bundle and is returned as a PersistenceError naming the
// offending key. Trades recorded against an enchantment whose max_level
// shrank are left as they are.
func (s *Store) Load(ctx context.Context, b *types.Bundle) (LoadSummary, error) {
	var summary LoadSummary
	if b == nil {
		return summary, &types.PersistenceError{Op: "load", Err: errors.New("nil bundle")}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, &types.PersistenceError{Op: "begin load", Err: err}
	}
	defer tx.Rollback()

	jobStmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (job) VALUES (?) ON CONFLICT(job) DO NOTHING`)
	if err != nil {
		return summary, &types.PersistenceError{Op: "prepare", Table: TableJobs, Err: err}
	}
	defer jobStmt.Close()

	for _, j := range b.Jobs {
		res, err := jobStmt.ExecContext(ctx, j.Name)
		if err != nil {
			return LoadSummary{}, &types.PersistenceError{Op: "upsert", Table: TableJobs, Key: j.Name, Err: err}
		}
		if n, _ := res.RowsAffected(); n > 0 {
			summary.JobsInserted++
		} else {
			summary.JobsUnchanged++
		}
	}

	existing := make(map[string]int)
	rows, err := tx.QueryContext(ctx, `SELECT enchantment, coalesce(max_level, 0) FROM enchantments`)
	if err != nil {
		return LoadSummary{}, &types.PersistenceError{Op: "read", Table: TableEnchantments, Err: err}
	}
	for rows.Next() {
		var name string
		var maxLevel int
		if err := rows.Scan(&name, &maxLevel); err != nil {
			rows.Close()
			return LoadSummary{}, &types.PersistenceError{Op: "read", Table: TableEnchantments, Err: err}
		}
		existing[name] = maxLevel
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return LoadSummary{}, &types.PersistenceError{Op: "read", Table: TableEnchantments, Err: err}
	}

	enchStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO enchantments (enchantment, max_level) VALUES (?, ?)
		 ON CONFLICT(enchantment) DO UPDATE SET max_level = excluded.max_level`)
	if err != nil {
		return LoadSummary{}, &types.PersistenceError{Op: "prepare", Table: TableEnchantments, Err: err}
	}
	defer enchStmt.Close()

	for _, e := range b.Enchantments {
		old, found := existing[e.Name]
		if found && old == e.MaxLevel {
			summary.EnchantmentsUnchanged++
			continue
		}

		if _, err := enchStmt.ExecContext(ctx, e.Name, e.MaxLevel); err != nil {
			return LoadSummary{}, &types.PersistenceError{Op: "upsert", Table: TableEnchantments, Key: e.Name, Err: err}
		}

		if !found {
			summary.EnchantmentsInserted++
			continue
		}
		summary.EnchantmentsUpdated++

		var stale int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM librarian_trades WHERE enchantment = ? AND enchantment_level > ?`,
			e.Name, e.MaxLevel,
		).Scan(&stale); err != nil {
			return LoadSummary{}, &types.PersistenceError{Op: "read", Table: TableTrades, Key: e.Name, Err: err}
		}
		s.logger.Info("enchantment max_level changed",
			zap.String("enchantment", e.Name),
			zap.Int("old", old),
			zap.Int("new", e.MaxLevel),
			zap.Int("trades_above_new_max", stale),
		)
	}

	if err := tx.Commit(); err != nil {
		return LoadSummary{}, &types.PersistenceError{Op: "commit load", Err: err}
	}

	s.logger.Debug("bundle loaded", zap.String("summary", summary.String()))
	return summary, nil
}
