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

// Package cloud_test contains unit tests for the cloud package. This file
// tests the Kaggle dataset client against a local HTTP server: credential
// use, transient-status retries, version lookup, and archive extraction.
package cloud_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSVPayload = "video_id,title,category_id,views,likes,dislikes\nvid-001,A,1,10,2,1\n"
const testJSONPayload = `{"1": "Film & Animation"}`

// writeCredentials drops a kaggle.json into a temp dir and returns its path.
func writeCredentials(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kaggle.json")
	err := os.WriteFile(path, []byte(`{"username": "tester", "key": "secret"}`), 0o600)
	require.NoError(t, err)
	return path
}

// buildArchive assembles an in-memory zip holding the two payload files.
func buildArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	csvEntry, err := zw.Create("GBvideos.csv")
	require.NoError(t, err)
	_, err = csvEntry.Write([]byte(testCSVPayload))
	require.NoError(t, err)
	jsonEntry, err := zw.Create("GB_category_id.json")
	require.NoError(t, err)
	_, err = jsonEntry.Write([]byte(testJSONPayload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// newTestClient builds a KaggleClient pointed at the test server.
func newTestClient(t *testing.T, baseURL string) (*cloud.KaggleClient, string) {
	t.Helper()
	config := cloud.NewConfig()
	config.Kaggle.BaseURL = baseURL
	config.Kaggle.CredentialsFile = writeCredentials(t)
	config.Kaggle.MaxRetries = 2
	config.Kaggle.TimeoutSeconds = 5
	config.Kaggle.RequestsPerSecond = 100
	dataDir := t.TempDir()
	config.Application.DataDir = dataDir

	client, err := cloud.NewKaggleClient(config)
	require.NoError(t, err)
	return client, dataDir
}

// TestCheckDatasetVersion verifies the metadata lookup and that requests
// carry the basic-auth credentials.
func TestCheckDatasetVersion(t *testing.T) {
	var sawAuth atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		sawAuth.Store(ok && user == "tester" && key == "secret")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currentVersionNumber": 115}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	version, err := client.CheckDatasetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "115", version)
	assert.True(t, sawAuth.Load(), "request must carry basic auth")
}

// TestGetDatasetInfo verifies the full metadata document comes back as a
// generic map, so inspection commands can print fields the client does not
// model explicitly.
func TestGetDatasetInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"currentVersionNumber": 115,
			"title": "Trending YouTube Video Statistics",
			"totalBytes": 524288
		}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	meta, err := client.GetDatasetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Trending YouTube Video Statistics", meta["title"])
	assert.EqualValues(t, 115, meta["currentVersionNumber"])
}

// TestDownloadDatasetExtractsPayloads verifies the end-to-end download path:
// fetch, zip verification, and extraction of both payload files.
func TestDownloadDatasetExtractsPayloads(t *testing.T) {
	archive := buildArchive(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/datasets/view/") {
			_, _ = w.Write([]byte(`{"currentVersionNumber": 115}`))
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	client, dataDir := newTestClient(t, server.URL)
	csvPath, jsonPath, err := client.DownloadDataset(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dataDir, "GBvideos.csv"), csvPath)
	csvContent, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, testCSVPayload, string(csvContent))

	jsonContent, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, testJSONPayload, string(jsonContent))

	// The temporary archive is removed after extraction.
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// TestDownloadDatasetRetriesTransientStatus verifies that a 503 is retried
// and the download eventually succeeds within the retry limit.
func TestDownloadDatasetRetriesTransientStatus(t *testing.T) {
	archive := buildArchive(t)
	var downloadCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/datasets/view/") {
			_, _ = w.Write([]byte(`{"currentVersionNumber": 115}`))
			return
		}
		if downloadCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	_, _, err := client.DownloadDataset(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), downloadCalls.Load())
}

// TestDownloadDatasetRejectsNonZip verifies that a payload failing the file
// type sniff is rejected before extraction.
func TestDownloadDatasetRejectsNonZip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/datasets/view/") {
			_, _ = w.Write([]byte(`{"currentVersionNumber": 115}`))
			return
		}
		_, _ = w.Write([]byte("<html>an error page, not a zip</html>"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	_, _, err := client.DownloadDataset(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a zip")
}

// TestDownloadDatasetSkipsWhenPresent verifies that existing payload files
// short-circuit the download unless force is set.
func TestDownloadDatasetSkipsWhenPresent(t *testing.T) {
	var calls atomic.Int32
	archive := buildArchive(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if strings.Contains(r.URL.Path, "/datasets/view/") {
			_, _ = w.Write([]byte(`{"currentVersionNumber": 115}`))
			return
		}
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	client, dataDir := newTestClient(t, server.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "GBvideos.csv"), []byte(testCSVPayload), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "GB_category_id.json"), []byte(testJSONPayload), 0o644))

	_, _, err := client.DownloadDataset(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())

	// A forced run goes back to the network.
	_, _, err = client.DownloadDataset(context.Background(), true)
	require.NoError(t, err)
	assert.Greater(t, calls.Load(), int32(0))
}
