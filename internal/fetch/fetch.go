// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads the latest release client JAR using the
// version manifest published by the game's launcher servers.
package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/mc-trading/internal/httputil"
	"github.com/pdiddy/mc-trading/pkg/types"
)

// Release describes a downloaded client JAR.
type Release struct {
	Version string `json:"version" yaml:"version"`
	URL     string `json:"url" yaml:"url"`
	SHA1    string `json:"sha1" yaml:"sha1"`
	Size    int64  `json:"size" yaml:"size"`
	Path    string `json:"path" yaml:"path"`
}

type versionManifest struct {
	Latest struct {
		Release string `json:"release"`
	} `json:"latest"`
	Versions []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"versions"`
}

type versionInfo struct {
	ID        string `json:"id"`
	Downloads struct {
		Client struct {
			SHA1 string `json:"sha1"`
			Size int64  `json:"size"`
			URL  string `json:"url"`
		} `json:"client"`
	} `json:"downloads"`
}

// Fetcher resolves and downloads client JARs.
type Fetcher struct {
	client *http.Client
	cfg    types.FetchConfig
	logger *zap.Logger
}

// New creates a Fetcher. Empty fields in cfg fall back to the defaults.
func New(cfg types.FetchConfig, logger *zap.Logger) *Fetcher {
	def := types.DefaultConfig().Fetch
	if cfg.ManifestURL == "" {
		cfg.ManifestURL = def.ManifestURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Latest downloads the client JAR of the newest release to dest. The file
// is written to a temporary name in the same directory and renamed once
// its SHA-1 matches the published digest, so dest is never left
// half-written.
func (f *Fetcher) Latest(ctx context.Context, dest string) (Release, error) {
	var manifest versionManifest
	if err := f.getJSON(ctx, f.cfg.ManifestURL, &manifest); err != nil {
		return Release{}, fmt.Errorf("fetching version manifest: %w", err)
	}
	latest := manifest.Latest.Release
	if latest == "" {
		return Release{}, fmt.Errorf("version manifest has no latest release")
	}

	var versionURL string
	for _, v := range manifest.Versions {
		if v.ID == latest {
			versionURL = v.URL
			break
		}
	}
	if versionURL == "" {
		return Release{}, fmt.Errorf("release %s not listed in version manifest", latest)
	}

	var info versionInfo
	if err := f.getJSON(ctx, versionURL, &info); err != nil {
		return Release{}, fmt.Errorf("fetching version %s: %w", latest, err)
	}
	client := info.Downloads.Client
	if client.URL == "" {
		return Release{}, fmt.Errorf("version %s has no client download", latest)
	}

	rel := Release{Version: latest, URL: client.URL, SHA1: client.SHA1, Size: client.Size, Path: dest}
	f.logger.Info("downloading client", zap.String("version", latest), zap.String("url", client.URL), zap.Int64("size", client.Size))

	if err := f.download(ctx, rel); err != nil {
		return Release{}, fmt.Errorf("downloading client %s: %w", latest, err)
	}
	f.logger.Info("client downloaded", zap.String("version", latest), zap.String("path", dest))
	return rel, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.cfg.MaxRetries, f.logger)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return resp, nil
}

func (f *Fetcher) getJSON(ctx context.Context, url string, v any) error {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, rel Release) error {
	resp, err := f.get(ctx, rel.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(rel.Path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(rel.Path), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	h := sha1.New()
	_, copyErr := io.Copy(io.MultiWriter(tmpFile, h), resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if rel.SHA1 != "" {
		if got := hex.EncodeToString(h.Sum(nil)); got != rel.SHA1 {
			os.Remove(tmpPath)
			return fmt.Errorf("checksum mismatch: got sha1 %s, want %s", got, rel.SHA1)
		}
	}

	if err := os.Rename(tmpPath, rel.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
