// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the entities, intermediate records, configuration,
// and error types shared by the ETL pipeline and the trade recorder.
package types

// RecordKind tags a RawRecord with the schema its fields follow.
type RecordKind string

const (
	KindJob          RecordKind = "job"
	KindEnchantment  RecordKind = "enchantment"
	KindTradeableTag RecordKind = "tradeable_tag"
)

// Field names used in RawRecord.Fields.
const (
	FieldJob            = "job"
	FieldEnchantment    = "enchantment"
	FieldMaxLevel       = "max_level"
	FieldSupportedItems = "supported_items"
	FieldValues         = "values"
)

// RawRecord is one untyped definition discovered in the source data. The
// normalizer validates Fields against the schema implied by Kind.
type RawRecord struct {
	Kind RecordKind `json:"kind" yaml:"kind"`

	// Source names where the record was read from, e.g. a JAR entry path
	// or "seed.yaml#3".
	Source string `json:"source" yaml:"source"`

	Fields map[string]any `json:"fields" yaml:"fields"`
}

// JobLibrarian is the only profession that sells enchanted books.
const JobLibrarian = "librarian"

// Job is a villager profession keyed by name.
type Job struct {
	Name string `json:"job" yaml:"job"`
}

// Enchantment is a tradeable enchantment keyed by name.
type Enchantment struct {
	Name     string `json:"enchantment" yaml:"enchantment"`
	MaxLevel int    `json:"max_level" yaml:"max_level"`

	// SupportedItems is the item tag the enchantment applies to. It is
	// reported but not persisted.
	SupportedItems string `json:"supported_items,omitempty" yaml:"supported_items,omitempty"`
}

// TradeTemplate is the price range a job offers for one enchantment level.
type TradeTemplate struct {
	Job         string `json:"job" yaml:"job"`
	Enchantment string `json:"enchantment" yaml:"enchantment"`
	Level       int    `json:"level" yaml:"level"`
	MinCost     int    `json:"min_cost" yaml:"min_cost"`
	MaxCost     int    `json:"max_cost" yaml:"max_cost"`
}

// Bundle is the complete normalized output of one ETL run. Slices are
// sorted by natural key.
type Bundle struct {
	Jobs         []Job             `json:"jobs" yaml:"jobs"`
	Enchantments []Enchantment     `json:"enchantments" yaml:"enchantments"`
	Templates    []TradeTemplate   `json:"templates,omitempty" yaml:"templates,omitempty"`
	Warnings     []ConflictWarning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Location is an operator-defined trading hall.
type Location struct {
	Name string `json:"location" yaml:"location"`
	X    int    `json:"x_coord" yaml:"x_coord"`
	Z    int    `json:"z_coord" yaml:"z_coord"`
}

// Villager is an individual villager registered at a location.
type Villager struct {
	ID       string `json:"villager_id" yaml:"villager_id"`
	Location string `json:"location" yaml:"location"`
	Job      string `json:"job" yaml:"job"`
}

// TradeObservation is one recorded librarian offer.
type TradeObservation struct {
	TradeID      int64  `json:"trade_id" yaml:"trade_id"`
	VillagerID   string `json:"villager_id" yaml:"villager_id"`
	Enchantment  string `json:"enchantment" yaml:"enchantment"`
	Level        int    `json:"enchantment_level" yaml:"enchantment_level"`
	CostEmeralds int    `json:"cost_emeralds" yaml:"cost_emeralds"`
}
