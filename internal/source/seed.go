// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// seedKindKeys maps the key that identifies a seed entry to its kind.
// Entries are checked in this order.
var seedKindKeys = []struct {
	key  string
	kind types.RecordKind
}{
	{types.FieldJob, types.KindJob},
	{types.FieldEnchantment, types.KindEnchantment},
	{"tradeable", types.KindTradeableTag},
}

// ReadSeed reads a YAML seed file. The document is either a list of
// entries or a mapping with a "records" list:
//
//	records:
//	  - job: librarian
//	  - enchantment: mending
//	    max_level: 1
//	  - tradeable: [mending]
//
// An entry's kind comes from its "kind" key when present, otherwise from
// the first identifying key it carries. Entries matching no kind are skipped.
func ReadSeed(path string) ([]types.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return ParseSeed(filepath.Base(path), data)
}

// ParseSeed parses seed YAML; name labels the records' Source.
func ParseSeed(name string, data []byte) ([]types.RawRecord, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &types.ParseError{Source: name, Err: err}
	}

	var entries []any
	switch d := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		entries = d
	case map[string]any:
		list, ok := d["records"].([]any)
		if !ok {
			return nil, &types.ParseError{Source: name, Field: "records"}
		}
		entries = list
	default:
		return nil, &types.ParseError{Source: name, Err: fmt.Errorf("unexpected document type %T", doc)}
	}

	var records []types.RawRecord
	for i, e := range entries {
		fields, ok := e.(map[string]any)
		if !ok {
			continue
		}
		rec, ok := seedRecord(fmt.Sprintf("%s#%d", name, i), fields)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func seedRecord(src string, fields map[string]any) (types.RawRecord, bool) {
	if k, ok := fields["kind"].(string); ok {
		delete(fields, "kind")
		return types.RawRecord{Kind: types.RecordKind(k), Source: src, Fields: fields}, true
	}

	for _, sk := range seedKindKeys {
		v, ok := fields[sk.key]
		if !ok {
			continue
		}
		if sk.kind == types.KindTradeableTag {
			return types.RawRecord{
				Kind:   sk.kind,
				Source: src,
				Fields: map[string]any{types.FieldValues: v},
			}, true
		}
		return types.RawRecord{Kind: sk.kind, Source: src, Fields: fields}, true
	}
	return types.RawRecord{}, false
}
