// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file contains the client for the Kaggle datasets API. The client
// downloads the trending-video dataset archive, verifies it, and extracts the
// two payload files the pipeline consumes.
//
// Logic Flow:
//  1. Credentials are resolved from an explicit path, ~/.kaggle/kaggle.json,
//     or ./kaggle.json, in that order.
//  2. Every request passes through a client-side rate limiter and a bounded
//     retry loop covering transient HTTP statuses and transport errors.
//  3. Downloads land in the configured data directory; the archive is
//     sniffed to confirm it really is a zip before extraction, and removed
//     once the payload files are written.
//
// Structs:
//   - KaggleCredentials: The username/key pair read from kaggle.json.
//   - KaggleClient: The authenticated, rate-limited API client.
//
// Functions:
//   - NewKaggleClient: Factory that resolves credentials and builds the client.
//   - CheckDatasetVersion: Fetches the current dataset version number.
//   - DownloadDataset: Fetches and extracts the dataset payload files.
//   - GetDatasetInfo: Fetches the dataset metadata document.
package cloud

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/time/rate"
)

// sniffLen is how many leading bytes of the downloaded archive are read for
// file-type detection. filetype needs at most 262 bytes for its matchers.
const sniffLen = 262

// retryBaseDelay is the first backoff interval; each retry doubles it.
const retryBaseDelay = 500 * time.Millisecond

// KaggleCredentials holds the API token pair read from a kaggle.json file.
type KaggleCredentials struct {
	Username string `json:"username"` // The Kaggle account name.
	Key      string `json:"key"`      // The API key issued for that account.
}

// KaggleClient is an authenticated client for the Kaggle datasets API. All
// requests are throttled by a shared rate limiter and retried on transient
// failures up to the configured bound.
type KaggleClient struct {
	dataset KaggleDataset // The dataset coordinates and transport policy.
	dataDir string        // Where downloaded payload files are written.
	creds   KaggleCredentials
	client  *http.Client
	limiter *rate.Limiter
}

// NewKaggleClient resolves API credentials and constructs a client for the
// dataset named in the configuration.
//
// Inputs:
//   - config: The loaded application configuration.
//
// Outputs:
//   - *KaggleClient: The ready-to-use client.
//   - error: An error when no usable kaggle.json can be found or parsed.
func NewKaggleClient(config *Config) (*KaggleClient, error) {
	creds, err := loadKaggleCredentials(config.Kaggle.CredentialsFile)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(config.Kaggle.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := config.Kaggle.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &KaggleClient{
		dataset: config.Kaggle,
		dataDir: config.Application.DataDir,
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// loadKaggleCredentials reads kaggle.json from the first location that has
// one: the explicit path when set, then ~/.kaggle/kaggle.json, then the
// working directory.
func loadKaggleCredentials(explicit string) (KaggleCredentials, error) {
	var paths []string
	if explicit != "" {
		paths = append(paths, explicit)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".kaggle", "kaggle.json"))
	}
	paths = append(paths, "kaggle.json")

	for _, p := range paths {
		if !fileExists(p) {
			continue
		}
		payload, err := os.ReadFile(p)
		if err != nil {
			return KaggleCredentials{}, fmt.Errorf("failed to read credentials file %s: %w", p, err)
		}
		var creds KaggleCredentials
		if err := json.Unmarshal(payload, &creds); err != nil {
			return KaggleCredentials{}, fmt.Errorf("failed to parse credentials file %s: %w", p, err)
		}
		if creds.Username == "" || creds.Key == "" {
			return KaggleCredentials{}, fmt.Errorf("credentials file %s is missing username or key", p)
		}
		return creds, nil
	}
	return KaggleCredentials{}, fmt.Errorf("no kaggle.json found; looked in %s", strings.Join(paths, ", "))
}

// retryableStatus reports whether an HTTP status code indicates a transient
// condition worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get issues an authenticated GET against the given URL with rate limiting
// and bounded retries. The caller owns the response body on success.
//
// Inputs:
//   - ctx: The request context, honored by the limiter, the backoff sleeps,
//     and the request itself.
//   - url: The fully formed request URL.
//
// Outputs:
//   - *http.Response: The successful response.
//   - error: The terminal error once retries are exhausted.
func (k *KaggleClient) get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= k.dataset.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			slog.WarnContext(ctx, "retrying kaggle request",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := k.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(k.creds.Username, k.creds.Key)

		resp, err := k.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if retryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("kaggle request to %s returned status %d", url, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("kaggle request to %s returned status %d", url, resp.StatusCode)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("kaggle request failed after %d retries: %w", k.dataset.MaxRetries, lastErr)
}

// CheckDatasetVersion fetches the dataset metadata and returns the current
// version number as reported by the API.
//
// Inputs:
//   - ctx: The request context.
//
// Outputs:
//   - string: The current version number, e.g. "115".
//   - error: An error when the metadata cannot be fetched or parsed.
func (k *KaggleClient) CheckDatasetVersion(ctx context.Context) (string, error) {
	resp, err := k.get(ctx, k.dataset.ViewURL())
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var meta struct {
		CurrentVersionNumber json.Number `json:"currentVersionNumber"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("failed to decode dataset metadata: %w", err)
	}
	return meta.CurrentVersionNumber.String(), nil
}

// GetDatasetInfo fetches the full dataset metadata document as a generic map,
// useful for operator-facing inspection commands.
//
// Inputs:
//   - ctx: The request context.
//
// Outputs:
//   - map[string]any: The decoded metadata document.
//   - error: An error when the metadata cannot be fetched or parsed.
func (k *KaggleClient) GetDatasetInfo(ctx context.Context) (map[string]any, error) {
	resp, err := k.get(ctx, k.dataset.ViewURL())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var meta map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode dataset metadata: %w", err)
	}
	return meta, nil
}

// DownloadDataset fetches the dataset archive and extracts the table and
// category-map payload files into the data directory. When both payload
// files already exist and force is false the download is skipped entirely.
//
// Inputs:
//   - ctx: The request context.
//   - force: When true, re-download even if the payload files exist.
//
// Outputs:
//   - csvPath: The local path of the extracted table payload.
//   - jsonPath: The local path of the extracted category-map payload.
//   - error: An error on transport, verification, or extraction failure.
func (k *KaggleClient) DownloadDataset(ctx context.Context, force bool) (csvPath string, jsonPath string, err error) {
	if err := os.MkdirAll(k.dataDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create data directory %s: %w", k.dataDir, err)
	}
	csvPath = filepath.Join(k.dataDir, k.dataset.CSVFileName)
	jsonPath = filepath.Join(k.dataDir, k.dataset.JSONFileName)

	if !force && fileExists(csvPath) && fileExists(jsonPath) {
		slog.InfoContext(ctx, "dataset payload files already present, skipping download",
			slog.String("csv", csvPath), slog.String("json", jsonPath))
		return csvPath, jsonPath, nil
	}

	// Warn, but do not fail, when a newer dataset version exists than the
	// one the configuration pins.
	if current, verr := k.CheckDatasetVersion(ctx); verr != nil {
		slog.WarnContext(ctx, "could not check dataset version", slog.Any("error", verr))
	} else if current != "" && current != k.dataset.DatasetVersion {
		slog.WarnContext(ctx, "dataset version drift",
			slog.String("pinned", k.dataset.DatasetVersion),
			slog.String("current", current))
	}

	resp, err := k.get(ctx, k.dataset.DownloadURL())
	if err != nil {
		return "", "", err
	}
	defer func() { _ = resp.Body.Close() }()

	archive, err := os.CreateTemp(k.dataDir, "dataset-*.zip")
	if err != nil {
		return "", "", fmt.Errorf("failed to create archive file: %w", err)
	}
	archivePath := archive.Name()
	defer func() { _ = os.Remove(archivePath) }()

	written, err := io.Copy(archive, resp.Body)
	if cerr := archive.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to write archive: %w", err)
	}
	slog.InfoContext(ctx, "dataset archive downloaded",
		slog.String("path", archivePath), slog.Int64("bytes", written))

	// Verify the payload really is a zip before handing it to the extractor.
	head, err := readFileHead(archivePath, sniffLen)
	if err != nil {
		return "", "", err
	}
	if !filetype.Is(head, "zip") {
		return "", "", fmt.Errorf("downloaded archive is not a zip file")
	}

	if err := k.extractPayloads(archivePath, csvPath, jsonPath); err != nil {
		return "", "", err
	}
	return csvPath, jsonPath, nil
}

// readFileHead reads up to n leading bytes of a file.
func readFileHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	head := make([]byte, n)
	read, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:read], nil
}

// extractPayloads pulls the two configured payload files out of the archive.
// Both must be present; anything else in the archive is ignored.
func (k *KaggleClient) extractPayloads(archivePath, csvPath, jsonPath string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = reader.Close() }()

	targets := map[string]string{
		k.dataset.CSVFileName:  csvPath,
		k.dataset.JSONFileName: jsonPath,
	}
	found := 0
	for _, entry := range reader.File {
		dest, ok := targets[filepath.Base(entry.Name)]
		if !ok {
			continue
		}
		if err := extractEntry(entry, dest); err != nil {
			return err
		}
		found++
	}
	if found != len(targets) {
		return fmt.Errorf("archive is missing expected payload files %s and/or %s",
			k.dataset.CSVFileName, k.dataset.JSONFileName)
	}
	return nil
}

// extractEntry writes a single archive entry to the destination path.
func extractEntry(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	_, err = io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return nil
}
