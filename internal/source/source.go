// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source reads villager-trade definitions out of the game's client
// data into untyped RawRecords. It understands a client JAR, an unpacked
// data directory, and a YAML seed file. Only the known entries are
// extracted; everything else in the source is skipped.
package source

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// Entry paths inside the client data, relative to the JAR root.
const (
	enchantmentPrefix = "data/minecraft/enchantment/"
	jobSiteTag        = "data/minecraft/tags/point_of_interest_type/acquirable_job_site.json"
)

// tradeableTags list the enchantment tags whose union is the set of
// enchantments a librarian can sell.
var tradeableTags = map[string]bool{
	"data/minecraft/tags/enchantment/tradeable.json":    true,
	"data/minecraft/tags/enchantment/non_treasure.json": true,
}

// entry is one named file inside a JAR or directory.
type entry struct {
	name string
	open func() (io.ReadCloser, error)
}

// Read extracts RawRecords from path. A directory is walked like an
// unpacked JAR, a .yaml or .yml file is read as a seed, and any other
// regular file is opened as a zip archive.
func Read(path string) ([]types.RawRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening source %s: %w", path, err)
	}

	if info.IsDir() {
		return ReadDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadSeed(path)
	default:
		return ReadJar(path)
	}
}

// ReadJar extracts RawRecords from a client JAR on disk.
func ReadJar(path string) ([]types.RawRecord, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer zr.Close()

	return extract(zipEntries(&zr.Reader))
}

// ReadZip extracts RawRecords from an in-memory archive.
func ReadZip(r io.ReaderAt, size int64) ([]types.RawRecord, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return extract(zipEntries(zr))
}

func zipEntries(zr *zip.Reader) []entry {
	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, entry{name: f.Name, open: f.Open})
	}
	return entries
}

// ReadDir extracts RawRecords from an unpacked JAR or datapack rooted at dir.
func ReadDir(dir string) ([]types.RawRecord, error) {
	var entries []entry
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{
			name: filepath.ToSlash(rel),
			open: func() (io.ReadCloser, error) { return os.Open(p) },
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking source directory %s: %w", dir, err)
	}
	return extract(entries)
}

// extract converts matched entries to records in read order.
func extract(entries []entry) ([]types.RawRecord, error) {
	var records []types.RawRecord
	for _, e := range entries {
		var parse func(string, map[string]any) ([]types.RawRecord, error)
		switch {
		case tradeableTags[e.name]:
			parse = parseTradeableTag
		case e.name == jobSiteTag:
			parse = parseJobSites
		case strings.HasPrefix(e.name, enchantmentPrefix) && path.Ext(e.name) == ".json":
			parse = parseEnchantment
		default:
			continue
		}

		doc, err := decodeJSON(e)
		if err != nil {
			return nil, err
		}
		recs, err := parse(e.name, doc)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func decodeJSON(e entry) (map[string]any, error) {
	rc, err := e.open()
	if err != nil {
		return nil, &types.ParseError{Source: e.name, Err: err}
	}
	defer rc.Close()

	var doc map[string]any
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, &types.ParseError{Source: e.name, Err: err}
	}
	return doc, nil
}

func parseTradeableTag(name string, doc map[string]any) ([]types.RawRecord, error) {
	ids, err := tagValues(name, doc)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return []types.RawRecord{{
		Kind:   types.KindTradeableTag,
		Source: name,
		Fields: map[string]any{types.FieldValues: values},
	}}, nil
}

func parseJobSites(name string, doc map[string]any) ([]types.RawRecord, error) {
	ids, err := tagValues(name, doc)
	if err != nil {
		return nil, err
	}
	records := make([]types.RawRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, types.RawRecord{
			Kind:   types.KindJob,
			Source: name,
			Fields: map[string]any{types.FieldJob: id},
		})
	}
	return records, nil
}

func parseEnchantment(name string, doc map[string]any) ([]types.RawRecord, error) {
	desc, _ := doc["description"].(map[string]any)
	translate, _ := desc["translate"].(string)
	if translate == "" {
		return nil, &types.ParseError{Source: name, Field: "description.translate"}
	}

	maxLevel, ok := doc[types.FieldMaxLevel]
	if !ok {
		return nil, &types.ParseError{Source: name, Field: types.FieldMaxLevel}
	}

	return []types.RawRecord{{
		Kind:   types.KindEnchantment,
		Source: name,
		Fields: map[string]any{
			types.FieldEnchantment:    lastSegment(translate, "."),
			types.FieldMaxLevel:       maxLevel,
			types.FieldSupportedItems: supportedItems(doc["supported_items"]),
		},
	}}, nil
}

// tagValues returns the ids listed in a tag file with the namespace
// stripped. References to other tags ("#...") are skipped.
func tagValues(name string, doc map[string]any) ([]string, error) {
	raw, ok := doc[types.FieldValues].([]any)
	if !ok {
		return nil, &types.ParseError{Source: name, Field: types.FieldValues}
	}

	var ids []string
	for _, v := range raw {
		var id string
		switch t := v.(type) {
		case string:
			id = t
		case map[string]any:
			// Optional entries: {"id": "minecraft:x", "required": false}.
			id, _ = t["id"].(string)
		}
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		ids = append(ids, lastSegment(id, ":"))
	}
	return ids, nil
}

func supportedItems(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return lastSegment(t, "/")
		}
	case []any:
		var items []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				items = append(items, lastSegment(lastSegment(s, "/"), ":"))
			}
		}
		if len(items) > 0 {
			return strings.Join(items, ",")
		}
	}
	return "unknown"
}

func lastSegment(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):]
	}
	return s
}
