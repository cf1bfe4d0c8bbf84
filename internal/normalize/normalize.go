// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns RawRecords into a deduplicated Bundle of jobs,
// enchantments, and librarian trade templates.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// maxEmeraldCost caps every trade price at one stack of emeralds.
const maxEmeraldCost = 64

// Normalize validates each record against the schema for its kind and
// merges them into a Bundle. Records are applied in order: when two
// records disagree on an attribute of the same key the later value wins
// and a ConflictWarning is recorded. If any tradeable tag was read, only
// enchantments it lists are kept. The Bundle is returned complete or not
// at all.
func Normalize(records []types.RawRecord, logger *zap.Logger) (*types.Bundle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	n := normalizer{
		jobs:         make(map[string]bool),
		enchantments: make(map[string]*types.Enchantment),
		tradeable:    make(map[string]bool),
		logger:       logger,
	}

	for _, rec := range records {
		var err error
		switch rec.Kind {
		case types.KindJob:
			err = n.addJob(rec)
		case types.KindEnchantment:
			err = n.addEnchantment(rec)
		case types.KindTradeableTag:
			err = n.addTradeable(rec)
		default:
			err = &types.ParseError{Source: rec.Source, Field: "kind", Err: fmt.Errorf("unknown record kind %q", rec.Kind)}
		}
		if err != nil {
			return nil, err
		}
	}

	return n.bundle(), nil
}

type normalizer struct {
	jobs         map[string]bool
	enchantments map[string]*types.Enchantment
	tradeable    map[string]bool
	sawTags      bool
	warnings     []types.ConflictWarning
	dupes        int
	logger       *zap.Logger
}

func (n *normalizer) addJob(rec types.RawRecord) error {
	name, err := requireName(rec, types.FieldJob)
	if err != nil {
		return err
	}
	if n.jobs[name] {
		n.dupes++
	}
	n.jobs[name] = true
	return nil
}

func (n *normalizer) addEnchantment(rec types.RawRecord) error {
	name, err := requireName(rec, types.FieldEnchantment)
	if err != nil {
		return err
	}

	raw, ok := rec.Fields[types.FieldMaxLevel]
	if !ok {
		return &types.ParseError{Source: rec.Source, Field: types.FieldMaxLevel}
	}
	maxLevel, err := toInt(raw)
	if err != nil {
		return &types.ParseError{Source: rec.Source, Field: types.FieldMaxLevel, Err: err}
	}
	if maxLevel < 1 {
		return &types.ParseError{Source: rec.Source, Field: types.FieldMaxLevel, Err: fmt.Errorf("must be at least 1, got %d", maxLevel)}
	}

	items, _ := rec.Fields[types.FieldSupportedItems].(string)

	existing, ok := n.enchantments[name]
	if !ok {
		n.enchantments[name] = &types.Enchantment{Name: name, MaxLevel: maxLevel, SupportedItems: items}
		return nil
	}

	n.dupes++
	if existing.MaxLevel != maxLevel {
		n.conflict(types.ConflictWarning{
			Entity: "enchantment",
			Key:    name,
			Field:  types.FieldMaxLevel,
			Old:    strconv.Itoa(existing.MaxLevel),
			New:    strconv.Itoa(maxLevel),
			Source: rec.Source,
		})
		existing.MaxLevel = maxLevel
	}
	if items != "" && existing.SupportedItems != items {
		if existing.SupportedItems != "" {
			n.conflict(types.ConflictWarning{
				Entity: "enchantment",
				Key:    name,
				Field:  types.FieldSupportedItems,
				Old:    existing.SupportedItems,
				New:    items,
				Source: rec.Source,
			})
		}
		existing.SupportedItems = items
	}
	return nil
}

func (n *normalizer) addTradeable(rec types.RawRecord) error {
	values, ok := rec.Fields[types.FieldValues].([]any)
	if !ok {
		return &types.ParseError{Source: rec.Source, Field: types.FieldValues}
	}
	n.sawTags = true
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return &types.ParseError{Source: rec.Source, Field: types.FieldValues, Err: fmt.Errorf("non-string entry %v", v)}
		}
		n.tradeable[cleanName(s)] = true
	}
	return nil
}

func (n *normalizer) conflict(w types.ConflictWarning) {
	n.warnings = append(n.warnings, w)
	n.logger.Warn("conflicting source records, later value wins",
		zap.String("entity", w.Entity),
		zap.String("key", w.Key),
		zap.String("field", w.Field),
		zap.String("old", w.Old),
		zap.String("new", w.New),
		zap.String("source", w.Source),
	)
}

func (n *normalizer) bundle() *types.Bundle {
	b := &types.Bundle{Warnings: n.warnings}

	for name := range n.jobs {
		b.Jobs = append(b.Jobs, types.Job{Name: name})
	}
	sort.Slice(b.Jobs, func(i, j int) bool { return b.Jobs[i].Name < b.Jobs[j].Name })

	dropped := 0
	for name, e := range n.enchantments {
		if n.sawTags && !n.tradeable[name] {
			dropped++
			continue
		}
		b.Enchantments = append(b.Enchantments, *e)
	}
	sort.Slice(b.Enchantments, func(i, j int) bool { return b.Enchantments[i].Name < b.Enchantments[j].Name })

	if n.jobs[types.JobLibrarian] {
		b.Templates = LibrarianTemplates(b.Enchantments)
	}

	n.logger.Debug("normalized source records",
		zap.Int("jobs", len(b.Jobs)),
		zap.Int("enchantments", len(b.Enchantments)),
		zap.Int("not_tradeable", dropped),
		zap.Int("duplicates", n.dupes),
		zap.Int("conflicts", len(n.warnings)),
	)
	return b
}

// LibrarianTemplates returns one template per enchantment level using the
// enchanted book price rule.
func LibrarianTemplates(enchantments []types.Enchantment) []types.TradeTemplate {
	var templates []types.TradeTemplate
	for _, e := range enchantments {
		for level := 1; level <= e.MaxLevel; level++ {
			lo, hi := LibrarianCostRange(level)
			templates = append(templates, types.TradeTemplate{
				Job:         types.JobLibrarian,
				Enchantment: e.Name,
				Level:       level,
				MinCost:     lo,
				MaxCost:     hi,
			})
		}
	}
	return templates
}

// LibrarianCostRange returns the emerald price range of an enchanted book
// at the given level: 2 + 3·level plus up to 4 + 10·level, capped at one
// stack. Treasure enchantments cost double in game; that is not modelled.
func LibrarianCostRange(level int) (lo, hi int) {
	lo = 2 + 3*level
	hi = lo + 4 + 10*level
	return min(lo, maxEmeraldCost), min(hi, maxEmeraldCost)
}

func requireName(rec types.RawRecord, field string) (string, error) {
	s, ok := rec.Fields[field].(string)
	if !ok {
		return "", &types.ParseError{Source: rec.Source, Field: field}
	}
	name := cleanName(s)
	if name == "" {
		return "", &types.ParseError{Source: rec.Source, Field: field, Err: fmt.Errorf("empty name")}
	}
	return name, nil
}

func cleanName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// toInt accepts the integer representations produced by the JSON and YAML
// decoders.
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("not an integer: %v", t)
		}
		return int(t), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", t)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("not an integer: %v", v)
	}
}
