// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/pkg/types"
)

var drivers = []string{types.DriverMattn, types.DriverModernc}

func testStore(t *testing.T, driver string) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{
		Path:   filepath.Join(t.TempDir(), "data", "mc_trading.db"),
		Driver: driver,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func forEachDriver(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, d := range drivers {
		t.Run(d, func(t *testing.T) { fn(t, testStore(t, d)) })
	}
}

func sampleBundle() *types.Bundle {
	return &types.Bundle{
		Jobs:         []types.Job{{Name: "librarian"}, {Name: "armorer"}},
		Enchantments: []types.Enchantment{{Name: "mending", MaxLevel: 1}, {Name: "sharpness", MaxLevel: 5}},
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"}, nil)
	assert.Error(t, err)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)

		require.NoError(t, s.EnsureSchema(ctx))

		counts, err := s.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[TableJobs])
		assert.Equal(t, 2, counts[TableEnchantments])
		assert.Equal(t, 0, counts[TableTrades])
	})
}

func TestEnsureSchema_Atomic(t *testing.T) {
	for _, d := range drivers {
		t.Run(d, func(t *testing.T) {
			ctx := context.Background()
			s, err := Open(types.StoreConfig{
				Path:   filepath.Join(t.TempDir(), "mc_trading.db"),
				Driver: d,
			}, zap.NewNop())
			require.NoError(t, err)
			defer s.Close()

			// An index named like the third table makes its CREATE fail.
			_, err = s.db.ExecContext(ctx, `CREATE TABLE scratch (x)`)
			require.NoError(t, err)
			_, err = s.db.ExecContext(ctx, `CREATE INDEX locations ON scratch (x)`)
			require.NoError(t, err)

			err = s.EnsureSchema(ctx)
			var perr *types.PersistenceError
			require.True(t, errors.As(err, &perr), "want PersistenceError, got %v", err)

			var n int
			require.NoError(t, s.db.QueryRowContext(ctx,
				`SELECT count(*) FROM sqlite_master WHERE type = 'table'
				 AND name IN ('jobs', 'enchantments', 'locations', 'villagers', 'librarian_trades')`,
			).Scan(&n))
			assert.Equal(t, 0, n, "no table created by a failed EnsureSchema")
		})
	}
}

func TestLoad_NilBundle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		summary, err := s.Load(context.Background(), nil)
		var perr *types.PersistenceError
		require.True(t, errors.As(err, &perr), "want PersistenceError, got %v", err)
		assert.Equal(t, LoadSummary{}, summary)
	})
}

func TestLoad_Idempotent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		first, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)
		assert.Equal(t, LoadSummary{JobsInserted: 2, EnchantmentsInserted: 2}, first)

		jobsBefore, _ := s.Jobs(ctx)
		enchBefore, _ := s.Enchantments(ctx)

		second, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)
		assert.Equal(t, LoadSummary{JobsUnchanged: 2, EnchantmentsUnchanged: 2}, second)
		assert.Equal(t, 4, second.Total())

		jobsAfter, _ := s.Jobs(ctx)
		enchAfter, _ := s.Enchantments(ctx)
		assert.Equal(t, jobsBefore, jobsAfter)
		assert.Equal(t, enchBefore, enchAfter)
	})
}

func TestLoad_UpdatesMaxLevel(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)

		summary, err := s.Load(ctx, &types.Bundle{
			Enchantments: []types.Enchantment{{Name: "sharpness", MaxLevel: 7}, {Name: "mending", MaxLevel: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.EnchantmentsUpdated)
		assert.Equal(t, 1, summary.EnchantmentsUnchanged)

		e, err := s.Enchantment(ctx, "sharpness")
		require.NoError(t, err)
		assert.Equal(t, 7, e.MaxLevel)
	})
}

func TestLoad_LeavesOperatorRowsAlone(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)

		require.NoError(t, s.AddLocation(ctx, types.Location{Name: "hall", X: 10, Z: -20}))
		require.NoError(t, s.AddVillager(ctx, types.Villager{ID: "v1", Location: "hall", Job: "librarian"}))
		_, err = s.InsertTrade(ctx, types.TradeObservation{VillagerID: "v1", Enchantment: "sharpness", Level: 5, CostEmeralds: 40})
		require.NoError(t, err)

		_, err = s.Load(ctx, &types.Bundle{Enchantments: []types.Enchantment{{Name: "sharpness", MaxLevel: 3}}})
		require.NoError(t, err)

		trades, err := s.Trades(ctx, "v1")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, 5, trades[0].Level)

		counts, err := s.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[TableLocations])
		assert.Equal(t, 1, counts[TableVillagers])
	})
}

func TestLoad_Atomic(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.db.ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON jobs
			WHEN NEW.job = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
		require.NoError(t, err)

		b := &types.Bundle{
			Jobs:         []types.Job{{Name: "armorer"}, {Name: "bad"}, {Name: "librarian"}},
			Enchantments: []types.Enchantment{{Name: "mending", MaxLevel: 1}},
		}
		_, err = s.Load(ctx, b)

		var perr *types.PersistenceError
		require.True(t, errors.As(err, &perr), "want PersistenceError, got %v", err)
		assert.Equal(t, TableJobs, perr.Table)
		assert.Equal(t, "bad", perr.Key)
		assert.Contains(t, err.Error(), "bad")

		counts, err := s.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, counts[TableJobs])
		assert.Equal(t, 0, counts[TableEnchantments])
	})
}

func TestReferentialIntegrity(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)
		require.NoError(t, s.AddLocation(ctx, types.Location{Name: "hall"}))

		tests := []struct {
			name string
			fn   func() error
		}{
			{"villager with unknown location", func() error {
				return s.AddVillager(ctx, types.Villager{ID: "v1", Location: "nowhere", Job: "librarian"})
			}},
			{"villager with unknown job", func() error {
				return s.AddVillager(ctx, types.Villager{ID: "v2", Location: "hall", Job: "wizard"})
			}},
			{"trade for unknown villager", func() error {
				_, err := s.InsertTrade(ctx, types.TradeObservation{VillagerID: "ghost", Enchantment: "mending", Level: 1, CostEmeralds: 10})
				return err
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.fn()
				var perr *types.PersistenceError
				assert.True(t, errors.As(err, &perr), "want PersistenceError, got %v", err)
			})
		}

		require.NoError(t, s.AddVillager(ctx, types.Villager{ID: "v3", Location: "hall", Job: "librarian"}))
		_, err = s.InsertTrade(ctx, types.TradeObservation{VillagerID: "v3", Enchantment: "frost_walker", Level: 1, CostEmeralds: 10})
		var perr *types.PersistenceError
		assert.True(t, errors.As(err, &perr), "want PersistenceError for unknown enchantment, got %v", err)

		n, err := s.TradeCount(ctx, "v3")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestLookups_NotFound(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		var nf *types.NotFoundError

		_, err := s.Villager(ctx, "nobody")
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "villager", nf.Entity)

		_, err = s.Enchantment(ctx, "nothing")
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "enchantment", nf.Entity)

		_, err = s.Location(ctx, "nowhere")
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "location", nf.Entity)

		err = s.MoveVillager(ctx, "nobody", "hall")
		require.True(t, errors.As(err, &nf))
	})
}

func TestVillagerLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Load(ctx, sampleBundle())
		require.NoError(t, err)

		require.NoError(t, s.AddLocation(ctx, types.Location{Name: "north", X: 1, Z: 2}))
		require.NoError(t, s.AddLocation(ctx, types.Location{Name: "south", X: 3, Z: -4}))

		locs, err := s.Locations(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.Location{{Name: "north", X: 1, Z: 2}, {Name: "south", X: 3, Z: -4}}, locs)

		require.NoError(t, s.AddVillager(ctx, types.Villager{ID: "bob", Location: "north", Job: "librarian"}))
		require.NoError(t, s.MoveVillager(ctx, "bob", "south"))

		v, err := s.Villager(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, types.Villager{ID: "bob", Location: "south", Job: "librarian"}, v)

		trade := types.TradeObservation{VillagerID: "bob", Enchantment: "mending", Level: 1, CostEmeralds: 12}
		has, err := s.HasTrade(ctx, trade)
		require.NoError(t, err)
		assert.False(t, has)

		first, err := s.InsertTrade(ctx, trade)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.TradeID)

		has, err = s.HasTrade(ctx, trade)
		require.NoError(t, err)
		assert.True(t, has)

		second, err := s.InsertTrade(ctx, trade)
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.TradeID)

		n, err := s.TradeCount(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
