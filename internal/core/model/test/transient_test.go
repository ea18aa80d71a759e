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

// Package model_test contains unit tests for the data models defined in the
// model package. This file tests the numeric cell type, the metric name
// resolution used by the ranking operation, and the category map helpers.
package model_test

import (
	"encoding/json"
	"testing"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestCountConstructors verifies that a settled cell carries its value and
// that a raw cell stays unsettled until the cleaning pipeline coerces it.
func TestCountConstructors(t *testing.T) {
	settled := model.NewCount(42)
	assert.True(t, settled.Valid)
	assert.Equal(t, int64(42), settled.Value)
	assert.Equal(t, "42", settled.Raw)

	raw := model.RawCount("123")
	assert.False(t, raw.Valid)
	assert.Equal(t, "123", raw.Raw)
	assert.Equal(t, int64(0), raw.Value)
}

// TestCountMarshalJSON verifies that cells render as bare numbers and that
// an unsettled cell renders as 0 rather than its raw text.
func TestCountMarshalJSON(t *testing.T) {
	settled, err := json.Marshal(model.NewCount(7))
	assert.NoError(t, err)
	assert.Equal(t, "7", string(settled))

	raw, err := json.Marshal(model.RawCount("garbage"))
	assert.NoError(t, err)
	assert.Equal(t, "0", string(raw))
}

// TestMetricValue verifies that every numeric column name resolves and that
// an arbitrary field name does not.
func TestMetricValue(t *testing.T) {
	rec := &model.VideoRecord{
		Views:           model.NewCount(1000),
		Likes:           model.NewCount(100),
		Dislikes:        model.NewCount(10),
		CommentCount:    model.NewCount(5),
		TotalEngagement: 110,
		EngagementRate:  11.0,
		LikeRatio:       90.91,
	}

	for metric, want := range map[string]float64{
		"views":            1000,
		"likes":            100,
		"dislikes":         10,
		"comment_count":    5,
		"total_engagement": 110,
		"engagement_rate":  11.0,
		"like_ratio":       90.91,
	} {
		got, ok := rec.MetricValue(metric)
		assert.True(t, ok, "metric %s should resolve", metric)
		assert.Equal(t, want, got, "metric %s", metric)
	}

	// Non-numeric fields are not rankable.
	_, ok := rec.MetricValue("title")
	assert.False(t, ok)
	_, ok = rec.MetricValue("nonexistent")
	assert.False(t, ok)
}

// TestCategoryMapHelpers verifies the nil-safe length and lookup helpers.
func TestCategoryMapHelpers(t *testing.T) {
	var empty *model.CategoryMap
	assert.Equal(t, 0, empty.Len())
	_, ok := empty.Lookup("10")
	assert.False(t, ok)

	m := &model.CategoryMap{
		Names:  map[string]string{"10": "Music"},
		Format: model.CategoryFormatFlat,
	}
	assert.Equal(t, 1, m.Len())
	name, ok := m.Lookup("10")
	assert.True(t, ok)
	assert.Equal(t, "Music", name)
	assert.Equal(t, "flat", m.Format.String())
}

// TestToRow verifies that the persistent projection carries the settled
// values and derived metrics of a cleaned record.
func TestToRow(t *testing.T) {
	rec := &model.VideoRecord{
		VideoID:         "vid-001",
		Title:           "A Title",
		CategoryID:      "28",
		CategoryName:    "Science & Technology",
		Views:           model.NewCount(1000000),
		Likes:           model.NewCount(50000),
		Dislikes:        model.NewCount(5000),
		CommentCount:    model.NewCount(12000),
		TotalEngagement: 55000,
		EngagementRate:  5.5,
		LikeRatio:       90.91,
	}
	row := rec.ToRow()
	assert.Equal(t, "vid-001", row.VideoID)
	assert.Equal(t, "Science & Technology", row.CategoryName)
	assert.Equal(t, int64(1000000), row.Views)
	assert.Equal(t, int64(55000), row.TotalEngagement)
	assert.Equal(t, 5.5, row.EngagementRate)
}
