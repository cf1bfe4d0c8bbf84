// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mc-trading/internal/httputil"
	"github.com/pdiddy/mc-trading/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

var jarBytes = []byte("PK\x03\x04 pretend this is a jar")

func jarSHA1() string {
	sum := sha1.Sum(jarBytes)
	return hex.EncodeToString(sum[:])
}

// launcherServer mimics the manifest, version, and client endpoints.
func launcherServer(t *testing.T, clientSHA1 string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var ts *httptest.Server

	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mc-trading-test", r.Header.Get("User-Agent"))
		fmt.Fprintf(w, `{
			"latest": {"release": "1.21.4", "snapshot": "25w02a"},
			"versions": [
				{"id": "25w02a", "type": "snapshot", "url": "%[1]s/v/25w02a.json"},
				{"id": "1.21.4", "type": "release", "url": "%[1]s/v/1.21.4.json"}
			]
		}`, ts.URL)
	})
	mux.HandleFunc("/v/1.21.4.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"id": "1.21.4", "downloads": {"client": {"sha1": %q, "size": %d, "url": "%s/client.jar"}}}`,
			clientSHA1, len(jarBytes), ts.URL)
	})
	mux.HandleFunc("/client.jar", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(jarBytes)
	})

	ts = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testFetcher(ts *httptest.Server, path string) *Fetcher {
	return New(types.FetchConfig{
		ManifestURL: ts.URL + path,
		UserAgent:   "mc-trading-test",
		MaxRetries:  2,
	}, nil)
}

func TestLatest(t *testing.T) {
	ts := launcherServer(t, jarSHA1())
	dest := filepath.Join(t.TempDir(), "cache", "client.jar")

	rel, err := testFetcher(ts, "/manifest.json").Latest(context.Background(), dest)
	require.NoError(t, err)

	assert.Equal(t, "1.21.4", rel.Version)
	assert.Equal(t, ts.URL+"/client.jar", rel.URL)
	assert.Equal(t, int64(len(jarBytes)), rel.Size)
	assert.Equal(t, dest, rel.Path)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, jarBytes, got)

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLatest_ChecksumMismatch(t *testing.T) {
	ts := launcherServer(t, "0000000000000000000000000000000000000000")
	dir := t.TempDir()
	dest := filepath.Join(dir, "client.jar")

	_, err := testFetcher(ts, "/manifest.json").Latest(context.Background(), dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLatest_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing-release.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"latest": {"release": "9.9"}, "versions": [{"id": "1.0", "url": "x"}]}`)
	})
	mux.HandleFunc("/no-latest.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"versions": []}`)
	})
	mux.HandleFunc("/garbage.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `not json`)
	})
	mux.HandleFunc("/busy.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	tests := []struct {
		path string
		want string
	}{
		{"/missing-release.json", "not listed"},
		{"/no-latest.json", "no latest release"},
		{"/garbage.json", "decoding"},
		{"/busy.json", "HTTP 503"},
		{"/nope.json", "HTTP 404"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := testFetcher(ts, tt.path).Latest(context.Background(), filepath.Join(t.TempDir(), "client.jar"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f := New(types.FetchConfig{}, nil)
	assert.Equal(t, types.DefaultManifestURL, f.cfg.ManifestURL)
	assert.Equal(t, 5*time.Minute, f.client.Timeout)
	assert.NotEmpty(t, f.cfg.UserAgent)
}
