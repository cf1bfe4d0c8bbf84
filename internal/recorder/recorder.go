// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recorder validates and stores librarian trade observations,
// either one at a time or through an interactive prompt session.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// Store is the persistence the recorder needs. *store.Store satisfies it.
type Store interface {
	Villager(ctx context.Context, id string) (types.Villager, error)
	Enchantment(ctx context.Context, name string) (types.Enchantment, error)
	Locations(ctx context.Context) ([]types.Location, error)
	Location(ctx context.Context, name string) (types.Location, error)
	AddLocation(ctx context.Context, l types.Location) error
	AddVillager(ctx context.Context, v types.Villager) error
	MoveVillager(ctx context.Context, id, location string) error
	TradeCount(ctx context.Context, villagerID string) (int, error)
	HasTrade(ctx context.Context, t types.TradeObservation) (bool, error)
	InsertTrade(ctx context.Context, t types.TradeObservation) (types.TradeObservation, error)
}

// TradeInput is one trade as entered by the operator.
type TradeInput struct {
	VillagerID  string
	Enchantment string
	Level       int
	Cost        int
}

// Recorder validates trade input against the store before writing it.
type Recorder struct {
	store  Store
	cfg    types.RecorderConfig
	logger *zap.Logger
}

// New creates a Recorder. Zero limits in cfg fall back to the defaults.
func New(s Store, cfg types.RecorderConfig, logger *zap.Logger) *Recorder {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = types.DefaultMaxCost
	}
	if cfg.MaxTrades <= 0 {
		cfg.MaxTrades = types.DefaultMaxTrades
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: s, cfg: cfg, logger: logger}
}

// Validate checks that the villager exists, is a librarian, and has room
// for another trade, that the enchantment exists, that the level is within
// the enchantment's range, and that the cost is between 1 and the
// configured maximum. It returns the observation that Record would insert.
func (r *Recorder) Validate(ctx context.Context, in TradeInput) (types.TradeObservation, error) {
	id := cleanName(in.VillagerID)
	v, err := r.store.Villager(ctx, id)
	if err != nil {
		return types.TradeObservation{}, err
	}
	if v.Job != types.JobLibrarian {
		return types.TradeObservation{}, &types.ValidationError{
			Field:  "villager_id",
			Value:  id,
			Reason: fmt.Sprintf("villager is a %s, not a librarian", v.Job),
		}
	}
	n, err := r.store.TradeCount(ctx, id)
	if err != nil {
		return types.TradeObservation{}, err
	}
	if n >= r.cfg.MaxTrades {
		return types.TradeObservation{}, &types.ValidationError{
			Field:  "villager_id",
			Value:  id,
			Reason: fmt.Sprintf("already has %d trades recorded (limit %d)", n, r.cfg.MaxTrades),
		}
	}

	e, err := r.store.Enchantment(ctx, cleanName(in.Enchantment))
	if err != nil {
		return types.TradeObservation{}, err
	}
	if err := CheckLevel(e, in.Level); err != nil {
		return types.TradeObservation{}, err
	}
	if err := r.CheckCost(in.Cost); err != nil {
		return types.TradeObservation{}, err
	}

	return types.TradeObservation{
		VillagerID:   id,
		Enchantment:  e.Name,
		Level:        in.Level,
		CostEmeralds: in.Cost,
	}, nil
}

// Record validates the input and inserts one trade. Nothing is written
// unless every check passes.
func (r *Recorder) Record(ctx context.Context, in TradeInput) (types.TradeObservation, error) {
	obs, err := r.Validate(ctx, in)
	if err != nil {
		return obs, err
	}
	return r.store.InsertTrade(ctx, obs)
}

// CheckLevel reports a ValidationError if level is outside [1, e.MaxLevel].
func CheckLevel(e types.Enchantment, level int) error {
	if level < 1 || level > e.MaxLevel {
		return &types.ValidationError{
			Field:  "enchantment_level",
			Value:  strconv.Itoa(level),
			Reason: fmt.Sprintf("%s accepts levels 1 to %d", e.Name, e.MaxLevel),
		}
	}
	return nil
}

// CheckCost reports a ValidationError if cost is outside [1, MaxCost].
func (r *Recorder) CheckCost(cost int) error {
	if cost < 1 || cost > r.cfg.MaxCost {
		return &types.ValidationError{
			Field:  "cost_emeralds",
			Value:  strconv.Itoa(cost),
			Reason: fmt.Sprintf("must be between 1 and %d", r.cfg.MaxCost),
		}
	}
	return nil
}

// Recoverable reports whether err is operator error that a prompt can
// ask again about.
func Recoverable(err error) bool {
	var nf *types.NotFoundError
	var ve *types.ValidationError
	var pe *types.PersistenceError
	return errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &pe)
}

func cleanName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
