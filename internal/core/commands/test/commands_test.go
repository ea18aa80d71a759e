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

// Package commands_test tests the individual pipeline commands against the
// shared fixtures: the loader and cleaner working through a cor.Context.
package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/commands"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
	test "github.com/jaycherian/gcp-go-trend-analysis/internal/testutil"
)

const csvParam = "__csv_path__"
const jsonParam = "__json_path__"

// writePayloads drops the shared fixtures into a temp dir and returns their
// paths.
func writePayloads(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "videos.csv")
	jsonPath := filepath.Join(dir, "categories.json")
	assert.Nil(t, os.WriteFile(csvPath, []byte(test.GetTestTableCSV()), 0o644))
	assert.Nil(t, os.WriteFile(jsonPath, []byte(test.GetTestCategoryNestedJSON()), 0o644))
	return csvPath, jsonPath
}

// newContext builds a cor.Context preloaded with the payload path params.
func newContext(t *testing.T, csvPath string, jsonPath string) cor.Context {
	t.Helper()
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	t.Cleanup(chCtx.Close)
	chCtx.Add(csvParam, csvPath)
	chCtx.Add(jsonParam, jsonPath)
	return chCtx
}

// TestKaggleDatasetDownloadExecutableUpFront verifies the acquisition
// command is runnable on a context that holds nothing yet — it starts the
// pipeline's data flow, so it must not wait on a piped input.
func TestKaggleDatasetDownloadExecutableUpFront(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	t.Cleanup(chCtx.Close)

	cmd := commands.NewKaggleDatasetDownload("kaggle-dataset-download", nil, false, csvParam, jsonParam)
	assert.True(t, cmd.IsExecutable(chCtx))
}

// TestDatasetLoaderCommand verifies the loader reads both payload files,
// fills the service, and publishes the table on the context.
func TestDatasetLoaderCommand(t *testing.T) {
	csvPath, jsonPath := writePayloads(t)
	chCtx := newContext(t, csvPath, jsonPath)

	svc := services.NewDatasetService()
	loader := commands.NewDatasetLoader("dataset-loader", svc, csvParam, jsonParam)
	assert.True(t, loader.IsExecutable(chCtx))

	loader.Execute(chCtx)
	assert.False(t, chCtx.HasErrors())
	assert.NotNil(t, svc.Table())
	assert.Equal(t, 7, svc.Table().Len())
	assert.NotNil(t, chCtx.Get(cor.CtxOut))
}

// TestDatasetLoaderCommandMissingPayload verifies that a missing payload
// path keeps the command from executing at all.
func TestDatasetLoaderCommandMissingPayload(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	t.Cleanup(chCtx.Close)
	chCtx.Add(csvParam, "/tmp/does-not-matter.csv")

	loader := commands.NewDatasetLoader("dataset-loader", services.NewDatasetService(), csvParam, jsonParam)
	assert.False(t, loader.IsExecutable(chCtx))
}

// TestDatasetLoaderCommandUnreadableFile verifies that a path to a
// nonexistent file surfaces as a context error.
func TestDatasetLoaderCommandUnreadableFile(t *testing.T) {
	_, jsonPath := writePayloads(t)
	chCtx := newContext(t, filepath.Join(t.TempDir(), "missing.csv"), jsonPath)

	loader := commands.NewDatasetLoader("dataset-loader", services.NewDatasetService(), csvParam, jsonParam)
	loader.Execute(chCtx)
	assert.True(t, chCtx.HasErrors())
}

// TestTableCleanerCommand verifies the cleaner command runs the full
// cleaning pipeline over a loaded service.
func TestTableCleanerCommand(t *testing.T) {
	csvPath, jsonPath := writePayloads(t)
	chCtx := newContext(t, csvPath, jsonPath)

	svc := services.NewDatasetService()
	loader := commands.NewDatasetLoader("dataset-loader", svc, csvParam, jsonParam)
	loader.Execute(chCtx)
	assert.False(t, chCtx.HasErrors())

	cleaner := commands.NewTableCleaner("table-cleaner", svc)
	cleaner.Execute(chCtx)
	assert.False(t, chCtx.HasErrors())

	// Five of the seven fixture rows survive the cleaning pass.
	summary := svc.Summary()
	assert.Equal(t, 5, summary.TotalVideos)
	assert.Equal(t, int64(4250000), summary.TotalViews)
}

// TestTableCleanerCommandWithoutLoad verifies the cleaner reports an error
// when no dataset has been loaded.
func TestTableCleanerCommandWithoutLoad(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	t.Cleanup(chCtx.Close)

	cleaner := commands.NewTableCleaner("table-cleaner", services.NewDatasetService())
	cleaner.Execute(chCtx)
	assert.True(t, chCtx.HasErrors())
}
