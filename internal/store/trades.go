// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// Villager returns the villager with the given id.
func (s *Store) Villager(ctx context.Context, id string) (types.Villager, error) {
	var v types.Villager
	var loc, job sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT villager_id, location, job FROM villagers WHERE villager_id = ?`, id,
	).Scan(&v.ID, &loc, &job)
	if errors.Is(err, sql.ErrNoRows) {
		return v, &types.NotFoundError{Entity: "villager", Key: id}
	}
	if err != nil {
		return v, fmt.Errorf("querying villager %s: %w", id, err)
	}
	v.Location = loc.String
	v.Job = job.String
	return v, nil
}

// Enchantment returns the enchantment with the given name.
func (s *Store) Enchantment(ctx context.Context, name string) (types.Enchantment, error) {
	var e types.Enchantment
	var maxLevel sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT enchantment, max_level FROM enchantments WHERE enchantment = ?`, name,
	).Scan(&e.Name, &maxLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return e, &types.NotFoundError{Entity: "enchantment", Key: name}
	}
	if err != nil {
		return e, fmt.Errorf("querying enchantment %s: %w", name, err)
	}
	e.MaxLevel = int(maxLevel.Int64)
	return e, nil
}

// Locations returns every location ordered by name.
func (s *Store) Locations(ctx context.Context) ([]types.Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT location, coalesce(x_coord, 0), coalesce(z_coord, 0) FROM locations ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var out []types.Location
	for rows.Next() {
		var l types.Location
		if err := rows.Scan(&l.Name, &l.X, &l.Z); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Location returns the location with the given name.
func (s *Store) Location(ctx context.Context, name string) (types.Location, error) {
	var l types.Location
	err := s.db.QueryRowContext(ctx,
		`SELECT location, coalesce(x_coord, 0), coalesce(z_coord, 0) FROM locations WHERE location = ?`, name,
	).Scan(&l.Name, &l.X, &l.Z)
	if errors.Is(err, sql.ErrNoRows) {
		return l, &types.NotFoundError{Entity: "location", Key: name}
	}
	if err != nil {
		return l, fmt.Errorf("querying location %s: %w", name, err)
	}
	return l, nil
}

// AddLocation inserts a new location.
func (s *Store) AddLocation(ctx context.Context, l types.Location) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (location, x_coord, z_coord) VALUES (?, ?, ?)`, l.Name, l.X, l.Z)
	if err != nil {
		return &types.PersistenceError{Op: "insert", Table: TableLocations, Key: l.Name, Err: err}
	}
	s.logger.Info("location added", zap.String("location", l.Name), zap.Int("x", l.X), zap.Int("z", l.Z))
	return nil
}

// AddVillager inserts a new villager. The location and job must exist.
func (s *Store) AddVillager(ctx context.Context, v types.Villager) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO villagers (villager_id, location, job) VALUES (?, ?, ?)`, v.ID, v.Location, v.Job)
	if err != nil {
		return &types.PersistenceError{Op: "insert", Table: TableVillagers, Key: v.ID, Err: err}
	}
	s.logger.Info("villager added", zap.String("villager_id", v.ID), zap.String("location", v.Location), zap.String("job", v.Job))
	return nil
}

// MoveVillager reassigns a villager to another existing location.
func (s *Store) MoveVillager(ctx context.Context, id, location string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE villagers SET location = ? WHERE villager_id = ?`, location, id)
	if err != nil {
		return &types.PersistenceError{Op: "update", Table: TableVillagers, Key: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &types.NotFoundError{Entity: "villager", Key: id}
	}
	s.logger.Info("villager moved", zap.String("villager_id", id), zap.String("location", location))
	return nil
}

// TradeCount returns the number of trades recorded for a villager.
func (s *Store) TradeCount(ctx context.Context, villagerID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM librarian_trades WHERE villager_id = ?`, villagerID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting trades for %s: %w", villagerID, err)
	}
	return n, nil
}

// HasTrade reports whether an identical trade is already recorded.
func (s *Store) HasTrade(ctx context.Context, t types.TradeObservation) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM librarian_trades
		 WHERE villager_id = ? AND enchantment = ? AND enchantment_level = ? AND cost_emeralds = ?`,
		t.VillagerID, t.Enchantment, t.Level, t.CostEmeralds,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking trade for %s: %w", t.VillagerID, err)
	}
	return n > 0, nil
}

// InsertTrade stores one trade and returns it with its assigned id.
func (s *Store) InsertTrade(ctx context.Context, t types.TradeObservation) (types.TradeObservation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO librarian_trades (villager_id, enchantment, enchantment_level, cost_emeralds)
		 VALUES (?, ?, ?, ?)`,
		t.VillagerID, t.Enchantment, t.Level, t.CostEmeralds)
	if err != nil {
		return t, &types.PersistenceError{Op: "insert", Table: TableTrades, Key: t.VillagerID, Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return t, &types.PersistenceError{Op: "insert", Table: TableTrades, Key: t.VillagerID, Err: err}
	}
	t.TradeID = id

	s.logger.Info("trade recorded",
		zap.Int64("trade_id", id),
		zap.String("villager_id", t.VillagerID),
		zap.String("enchantment", t.Enchantment),
		zap.Int("level", t.Level),
		zap.Int("cost", t.CostEmeralds),
	)
	return t, nil
}

// Trades returns the trades recorded for a villager in insertion order.
func (s *Store) Trades(ctx context.Context, villagerID string) ([]types.TradeObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, villager_id, enchantment, enchantment_level, cost_emeralds
		 FROM librarian_trades WHERE villager_id = ? ORDER BY trade_id`, villagerID)
	if err != nil {
		return nil, fmt.Errorf("querying trades for %s: %w", villagerID, err)
	}
	defer rows.Close()

	var out []types.TradeObservation
	for rows.Next() {
		var t types.TradeObservation
		if err := rows.Scan(&t.TradeID, &t.VillagerID, &t.Enchantment, &t.Level, &t.CostEmeralds); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
