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

// This file tests the cleaning and metric pipeline: the step tallies, the
// step ordering guarantees, the category join, the derived-metric formulas
// with their zero-denominator substitutions, and idempotence.
package services_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
	test "github.com/jaycherian/gcp-go-trend-analysis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadSample parses the shared CSV and nested category fixtures.
func loadSample(t *testing.T) (*model.VideoTable, *model.CategoryMap) {
	t.Helper()
	table, err := services.ParseVideoTable([]byte(test.GetTestTableCSV()))
	require.NoError(t, err)
	cats, err := services.ParseCategoryMap([]byte(test.GetTestCategoryNestedJSON()))
	require.NoError(t, err)
	return table, cats
}

// TestCleanTallies runs the full pipeline over the sample payloads and
// checks every diagnostics counter and the surviving row count.
func TestCleanTallies(t *testing.T) {
	table, cats := loadSample(t)
	cleaned, stats, err := services.Clean(table, cats)
	require.NoError(t, err)

	// One duplicate vid-001 removed, one title-less row dropped, and two
	// cells filled: the unparseable view count and the empty like count.
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.Equal(t, 1, stats.RowsDropped)
	assert.Equal(t, 2, stats.ValuesFilled)
	assert.Equal(t, 5, cleaned.Len())

	// The input table is never mutated.
	assert.Equal(t, 7, table.Len())
	assert.False(t, table.Records[0].Views.Valid)
}

// TestCleanCoercionBeforeDrop verifies the ordering guarantee: a row whose
// numeric cell cannot be parsed survives with the cell zero-filled rather
// than being dropped.
func TestCleanCoercionBeforeDrop(t *testing.T) {
	table, cats := loadSample(t)
	cleaned, _, err := services.Clean(table, cats)
	require.NoError(t, err)

	var steak *model.VideoRecord
	for _, r := range cleaned.Records {
		if r.VideoID == "vid-003" {
			steak = r
		}
	}
	require.NotNil(t, steak, "the row with an unparseable view count must survive")
	assert.True(t, steak.Views.Valid)
	assert.Equal(t, int64(0), steak.Views.Value)
}

// TestCleanCategoryJoin verifies category id normalization, the name join,
// and the Unknown fallback for unmapped ids.
func TestCleanCategoryJoin(t *testing.T) {
	table, cats := loadSample(t)
	cleaned, _, err := services.Clean(table, cats)
	require.NoError(t, err)
	assert.True(t, cleaned.CategoriesJoined)

	byID := make(map[string]*model.VideoRecord)
	for _, r := range cleaned.Records {
		byID[r.VideoID] = r
	}

	// "20.0" normalizes to "20" and joins to Gaming.
	assert.Equal(t, "20", byID["vid-006"].CategoryID)
	assert.Equal(t, "Gaming", byID["vid-006"].CategoryName)
	// Category 26 has no mapping in the fixture.
	assert.Equal(t, services.UnknownCategoryName, byID["vid-003"].CategoryName)
}

// TestCleanSkipsJoinWithoutMapping verifies that an empty category mapping
// skips the join entirely instead of labeling every row Unknown.
func TestCleanSkipsJoinWithoutMapping(t *testing.T) {
	table, _ := loadSample(t)
	empty := &model.CategoryMap{Names: map[string]string{}, Format: model.CategoryFormatUnknown}

	cleaned, _, err := services.Clean(table, empty)
	require.NoError(t, err)
	assert.False(t, cleaned.CategoriesJoined)
	for _, r := range cleaned.Records {
		assert.Empty(t, r.CategoryName)
	}
}

// TestCleanDerivedMetrics checks the engagement formulas against hand
// calculations, including both zero-denominator substitutions.
func TestCleanDerivedMetrics(t *testing.T) {
	table, cats := loadSample(t)
	cleaned, _, err := services.Clean(table, cats)
	require.NoError(t, err)

	byID := make(map[string]*model.VideoRecord)
	for _, r := range cleaned.Records {
		byID[r.VideoID] = r
	}

	// 1,000,000 views, 50,000 likes, 5,000 dislikes.
	phone := byID["vid-001"]
	assert.Equal(t, int64(55000), phone.TotalEngagement)
	assert.InDelta(t, 5.5, phone.EngagementRate, 1e-9)
	assert.InDelta(t, 100.0*50000.0/55000.0, phone.LikeRatio, 1e-9)

	// Zero views after the fill: the rate divides by the substituted 1.
	steak := byID["vid-003"]
	assert.Equal(t, int64(1600), steak.TotalEngagement)
	assert.InDelta(t, 160000.0, steak.EngagementRate, 1e-9)

	// Zero engagement: the like ratio divides by the substituted 1.
	zero := &model.VideoTable{Records: []*model.VideoRecord{{
		VideoID:    "vid-zero",
		Title:      "Nothing Happening",
		CategoryID: "1",
		Views:      model.NewCount(10),
		Likes:      model.NewCount(0),
		Dislikes:   model.NewCount(0),
	}}}
	cleanedZero, _, err := services.Clean(zero, cats)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cleanedZero.Records[0].TotalEngagement)
	assert.InDelta(t, 0.0, cleanedZero.Records[0].LikeRatio, 1e-9)
}

// TestCleanIdempotent verifies that cleaning an already-clean table changes
// nothing.
func TestCleanIdempotent(t *testing.T) {
	table, cats := loadSample(t)
	once, _, err := services.Clean(table, cats)
	require.NoError(t, err)
	twice, stats, err := services.Clean(once, cats)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.DuplicatesRemoved+stats.RowsDropped+stats.ValuesFilled)
	require.Equal(t, once.Len(), twice.Len())
	for i := range once.Records {
		assert.Equal(t, *once.Records[i], *twice.Records[i])
	}
}

// TestCleanNilTable verifies that cleaning before a load fails loudly.
func TestCleanNilTable(t *testing.T) {
	_, _, err := services.Clean(nil, nil)
	var notLoaded *model.NotLoadedError
	assert.ErrorAs(t, err, &notLoaded)
}

// TestNormalizeCategoryID covers the three source forms of the category id
// column.
func TestNormalizeCategoryID(t *testing.T) {
	assert.Equal(t, "10", services.NormalizeCategoryID("10"))
	assert.Equal(t, "10", services.NormalizeCategoryID("10.0"))
	assert.Equal(t, "10", services.NormalizeCategoryID(" 10 "))
	assert.Equal(t, "abc", services.NormalizeCategoryID("abc"))
	assert.Equal(t, "", services.NormalizeCategoryID("  "))
}
