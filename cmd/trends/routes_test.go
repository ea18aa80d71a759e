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

// This file tests the REST surface: the status mapping of the typed errors
// and the shape of successful responses.
package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
	test "github.com/jaycherian/gcp-go-trend-analysis/internal/testutil"
)

// newRouter builds a test engine with the analysis routes bound to svc.
func newRouter(svc *services.DatasetService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	apiV1 := r.Group("/api/v1")
	TrendsRouter(apiV1, svc)
	return r
}

// loadedService returns a service with the shared fixtures loaded and
// cleaned.
func loadedService(t *testing.T) *services.DatasetService {
	t.Helper()
	svc := services.NewDatasetService()
	require.NoError(t, svc.Load([]byte(test.GetTestTableCSV()), []byte(test.GetTestCategoryNestedJSON())))
	require.NoError(t, svc.Clean())
	return svc
}

// doGet runs one request against the router and returns the recorder.
func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

// TestTopVideosEndpoint verifies the ranking endpoint's happy path and its
// default metric and count.
func TestTopVideosEndpoint(t *testing.T) {
	r := newRouter(loadedService(t))

	w := doGet(r, "/api/v1/videos/top?metric=views&count=2")
	require.Equal(t, http.StatusOK, w.Code)

	var out []*model.VideoRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "vid-006", out[0].VideoID)
	assert.Equal(t, "vid-001", out[1].VideoID)

	// Defaults: views, ten records (clamped to the table size here).
	w = doGet(r, "/api/v1/videos/top")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 5)
}

// TestTopVideosUnknownMetric verifies the 400 mapping for an unrankable
// metric name.
func TestTopVideosUnknownMetric(t *testing.T) {
	r := newRouter(loadedService(t))
	w := doGet(r, "/api/v1/videos/top?metric=description")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "description")
}

// TestNotLoadedMapping verifies the 409 mapping before any dataset load,
// and that the summary still answers 200 with its sentinel.
func TestNotLoadedMapping(t *testing.T) {
	r := newRouter(services.NewDatasetService())

	assert.Equal(t, http.StatusConflict, doGet(r, "/api/v1/videos/top").Code)
	assert.Equal(t, http.StatusConflict, doGet(r, "/api/v1/categories/stats").Code)

	w := doGet(r, "/api/v1/summary")
	require.Equal(t, http.StatusOK, w.Code)
	var summary model.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.NoData)
}

// TestCategoryStatsEndpoint verifies the rollup endpoint's response shape
// and ordering.
func TestCategoryStatsEndpoint(t *testing.T) {
	r := newRouter(loadedService(t))
	w := doGet(r, "/api/v1/categories/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats []*model.CategoryStat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Len(t, stats, 5)
	assert.Equal(t, "Gaming", stats[0].CategoryName)
	assert.Equal(t, int64(2000000), stats[0].TotalViews)
}

// TestSummaryEndpoint verifies the summary response after a load.
func TestSummaryEndpoint(t *testing.T) {
	r := newRouter(loadedService(t))
	w := doGet(r, "/api/v1/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var summary model.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.False(t, summary.NoData)
	assert.Equal(t, 5, summary.TotalVideos)
	assert.Equal(t, int64(4250000), summary.TotalViews)
}
