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

// Package workflow_test runs the full analysis pipeline end-to-end against a
// local HTTP server standing in for the Kaggle API: download, load, clean,
// and chart rendering, with the cloud exports disabled.
package workflow_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/cloud"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/workflow"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/telemetry"
	test "github.com/jaycherian/gcp-go-trend-analysis/internal/testutil"
)

// Shared tracer and logger for the suite.
const tName = "github.com/jaycherian/gcp-go-trend-analysis/tests/workflow"

var (
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

// TestMain initializes structured logging once for all tests in this
// package before handing control to the test runner.
func TestMain(m *testing.M) {
	telemetry.SetupLogging()
	os.Exit(m.Run())
}

// buildArchive assembles an in-memory zip holding the shared test fixtures
// under the file names the dataset client expects.
func buildArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	csvEntry, err := zw.Create("GBvideos.csv")
	require.NoError(t, err)
	_, err = csvEntry.Write([]byte(test.GetTestTableCSV()))
	require.NoError(t, err)
	jsonEntry, err := zw.Create("GB_category_id.json")
	require.NoError(t, err)
	_, err = jsonEntry.Write([]byte(test.GetTestCategoryNestedJSON()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// newDatasetServer starts an httptest server that answers the version lookup
// and serves the fixture archive on the download path.
func newDatasetServer(t *testing.T) *httptest.Server {
	t.Helper()
	archive := buildArchive(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/datasets/view/") {
			_, _ = w.Write([]byte(`{"currentVersionNumber": 115}`))
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)
	return server
}

// newLocalConfig builds a configuration pointed at the test server with all
// cloud exports disabled and temp dirs for data and chart output.
func newLocalConfig(t *testing.T, baseURL string) *cloud.Config {
	t.Helper()
	credPath := filepath.Join(t.TempDir(), "kaggle.json")
	err := os.WriteFile(credPath, []byte(`{"username": "tester", "key": "secret"}`), 0o600)
	require.NoError(t, err)

	config := cloud.NewConfig()
	config.Kaggle.BaseURL = baseURL
	config.Kaggle.CredentialsFile = credPath
	config.Kaggle.RequestsPerSecond = 100
	config.Application.DataDir = t.TempDir()
	config.Application.OutputDir = t.TempDir()
	config.Storage.ChartBucket = ""
	config.BigQueryDataSource.DatasetName = ""
	return config
}

// runPipeline builds and executes the workflow, returning it and the context
// after the run.
func runPipeline(t *testing.T, config *cloud.Config, options workflow.Options) (*workflow.TrendAnalysisWorkflow, cor.Context) {
	t.Helper()
	kaggleClient, err := cloud.NewKaggleClient(config)
	require.NoError(t, err)

	pipeline := workflow.NewTrendAnalysisPipeline(config, nil, kaggleClient, options)
	ctx, span := tracer.Start(context.Background(), t.Name())
	defer span.End()

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	t.Cleanup(chCtx.Close)
	pipeline.Execute(chCtx)
	logger.InfoContext(ctx, "pipeline run finished",
		"test", t.Name(), "errors", len(chCtx.GetErrors()))
	return pipeline, chCtx
}

// TestTrendAnalysisPipeline runs the full local workflow and checks the
// resulting dataset state and the rendered chart files.
func TestTrendAnalysisPipeline(t *testing.T) {
	server := newDatasetServer(t)
	config := newLocalConfig(t, server.URL)

	pipeline, chCtx := runPipeline(t, config, workflow.Options{})
	require.False(t, chCtx.HasErrors(), "pipeline errors: %v", chCtx.GetErrors())

	// The cleaning pass keeps five of the seven fixture rows.
	svc := pipeline.Dataset()
	summary := svc.Summary()
	assert.False(t, summary.NoData)
	assert.Equal(t, 5, summary.TotalVideos)
	assert.Equal(t, int64(4250000), summary.TotalViews)

	top, err := svc.TopN("views", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "vid-006", top[0].VideoID)

	// Every chart the renderer produces must land in the output dir.
	for _, name := range []string{
		"category_video_counts.png",
		"category_total_views.png",
		"category_engagement.png",
		"top_videos_views.png",
		"top_videos_likes.png",
		"top_videos_engagement_rate.png",
		"views_vs_engagement.png",
		"engagement_rate_distribution.png",
	} {
		info, err := os.Stat(filepath.Join(config.Application.OutputDir, name))
		require.NoError(t, err, "missing chart %s", name)
		assert.Greater(t, info.Size(), int64(100))
	}
}

// TestTrendAnalysisPipelineSkipCharts verifies that a run with visualization
// disabled still loads and cleans the dataset but writes no files to the
// output directory.
func TestTrendAnalysisPipelineSkipCharts(t *testing.T) {
	server := newDatasetServer(t)
	config := newLocalConfig(t, server.URL)

	pipeline, chCtx := runPipeline(t, config, workflow.Options{SkipCharts: true})
	require.False(t, chCtx.HasErrors(), "pipeline errors: %v", chCtx.GetErrors())

	assert.Equal(t, 5, pipeline.Dataset().Summary().TotalVideos)
	entries, err := os.ReadDir(config.Application.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestTrendAnalysisPipelineOutputDirOverride verifies the per-run output
// directory option takes precedence over the configured one.
func TestTrendAnalysisPipelineOutputDirOverride(t *testing.T) {
	server := newDatasetServer(t)
	config := newLocalConfig(t, server.URL)
	override := t.TempDir()

	_, chCtx := runPipeline(t, config, workflow.Options{OutputDir: override})
	require.False(t, chCtx.HasErrors(), "pipeline errors: %v", chCtx.GetErrors())

	_, err := os.Stat(filepath.Join(override, "views_vs_engagement.png"))
	assert.NoError(t, err)
}
