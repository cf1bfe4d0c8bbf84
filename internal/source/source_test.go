// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// sampleFiles is a trimmed copy of the entries the reader cares about,
// plus a few it must ignore.
var sampleFiles = map[string]string{
	"data/minecraft/tags/enchantment/tradeable.json":    `{"values": ["#minecraft:non_treasure", "minecraft:mending"]}`,
	"data/minecraft/tags/enchantment/non_treasure.json": `{"values": ["minecraft:sharpness", {"id": "minecraft:efficiency", "required": false}]}`,
	"data/minecraft/enchantment/mending.json": `{
		"description": {"translate": "enchantment.minecraft.mending"},
		"max_level": 1,
		"supported_items": "#minecraft:enchantable/durability"
	}`,
	"data/minecraft/enchantment/sharpness.json": `{
		"description": {"translate": "enchantment.minecraft.sharpness"},
		"max_level": 5,
		"supported_items": "#minecraft:enchantable/sharp_weapon"
	}`,
	"data/minecraft/tags/point_of_interest_type/acquirable_job_site.json": `{"values": ["minecraft:librarian", "minecraft:armorer"]}`,
	"data/minecraft/recipe/stick.json":        `{"type": "minecraft:crafting_shaped"}`,
	"assets/minecraft/lang/en_us.json":        `not json at all`,
	"net/minecraft/client/Minecraft.class":    "\xca\xfe\xba\xbe",
}

func writeJar(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "client.jar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func byKind(records []types.RawRecord) map[types.RecordKind][]types.RawRecord {
	out := make(map[types.RecordKind][]types.RawRecord)
	for _, r := range records {
		out[r.Kind] = append(out[r.Kind], r)
	}
	return out
}

func TestRead_JarAndDirectory(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"jar", func(t *testing.T) string { return writeJar(t, sampleFiles) }},
		{"directory", func(t *testing.T) string { return writeTree(t, sampleFiles) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Read(tt.path(t))
			require.NoError(t, err)

			kinds := byKind(records)
			require.Len(t, kinds[types.KindJob], 2)
			require.Len(t, kinds[types.KindEnchantment], 2)
			require.Len(t, kinds[types.KindTradeableTag], 2)

			var jobs []any
			for _, r := range kinds[types.KindJob] {
				jobs = append(jobs, r.Fields[types.FieldJob])
			}
			assert.ElementsMatch(t, []any{"librarian", "armorer"}, jobs)

			ench := map[any]types.RawRecord{}
			for _, r := range kinds[types.KindEnchantment] {
				ench[r.Fields[types.FieldEnchantment]] = r
			}
			require.Contains(t, ench, "mending")
			assert.EqualValues(t, 1, ench["mending"].Fields[types.FieldMaxLevel])
			assert.Equal(t, "durability", ench["mending"].Fields[types.FieldSupportedItems])
			assert.Equal(t, "data/minecraft/enchantment/mending.json", ench["mending"].Source)

			var values []any
			for _, r := range kinds[types.KindTradeableTag] {
				values = append(values, r.Fields[types.FieldValues].([]any)...)
			}
			assert.ElementsMatch(t, []any{"mending", "sharpness", "efficiency"}, values)
		})
	}
}

func TestReadZip_InMemory(t *testing.T) {
	data, err := os.ReadFile(writeJar(t, sampleFiles))
	require.NoError(t, err)

	records, err := ReadZip(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, records, 6)
}

func TestRead_MissingFieldIsParseError(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantField string
	}{
		{
			name:      "enchantment without description",
			file:      "data/minecraft/enchantment/broken.json",
			content:   `{"max_level": 3}`,
			wantField: "description.translate",
		},
		{
			name:      "enchantment without max_level",
			file:      "data/minecraft/enchantment/broken.json",
			content:   `{"description": {"translate": "enchantment.minecraft.broken"}}`,
			wantField: types.FieldMaxLevel,
		},
		{
			name:      "job tag without values",
			file:      jobSiteTag,
			content:   `{"replace": false}`,
			wantField: types.FieldValues,
		},
		{
			name:    "malformed json",
			file:    "data/minecraft/enchantment/broken.json",
			content: `{"description": `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTree(t, map[string]string{tt.file: tt.content})

			_, err := Read(path)
			var perr *types.ParseError
			require.True(t, errors.As(err, &perr), "want ParseError, got %v", err)
			assert.Equal(t, tt.file, perr.Source)
			assert.Equal(t, tt.wantField, perr.Field)
		})
	}
}

func TestRead_IrrelevantContentSkipped(t *testing.T) {
	path := writeTree(t, map[string]string{
		"data/minecraft/recipe/stick.json": `{"type": "minecraft:crafting_shaped"}`,
		"pack.mcmeta":                      `garbage`,
	})

	records, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRead_MissingPath(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.jar"))
	require.Error(t, err)
}

func TestRead_DoesNotModifySource(t *testing.T) {
	path := writeJar(t, sampleFiles)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Read(path)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSupportedItems(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"#minecraft:enchantable/sword", "sword"},
		{[]any{"minecraft:bow", "minecraft:crossbow"}, "bow,crossbow"},
		{nil, "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, supportedItems(tt.in))
	}
}
