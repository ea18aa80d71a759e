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

// Package services contains the application services built on the core data
// model. This file defines the DatasetService, the stateful facade over one
// run's table: load, clean, and the three read operations (top-N ranking,
// per-category rollups, whole-table summary).
//
// The service is written for one writer, then many readers: Load and Clean
// happen once during pipeline execution, after which every operation treats
// the table as immutable. TopN sorts a copied slice, CategoryStats builds
// fresh result rows, and Summary reads scalars, so concurrent readers (the
// HTTP surface) need no locking.
//
// Note the deliberate asymmetry, inherited as a contract: TopN and
// CategoryStats fail with NotLoadedError before a load, while Summary
// returns a NoData sentinel instead of failing.
package services

import (
	"log/slog"
	"math"
	"sort"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
)

// DatasetService owns the in-memory dataset for a single run.
type DatasetService struct {
	table      *model.VideoTable  // The current table; raw after Load, settled after Clean.
	categories *model.CategoryMap // The immutable category mapping.
	stats      model.CleanStats   // Diagnostics from the last Clean.
	cleaned    bool               // Whether Clean has run on the current table.
}

// NewDatasetService creates an empty service; call Load before anything else.
func NewDatasetService() *DatasetService {
	return &DatasetService{}
}

// Load parses and validates the two payloads. On any failure the service
// state is left untouched, so a failed load never leaves a partial table
// behind.
//
// Inputs:
//   - tablePayload: Raw bytes of the row-oriented video table (CSV).
//   - mapPayload: Raw bytes of the category mapping (JSON).
//
// Outputs:
//   - error: A MalformedInputError, SchemaError, or EmptyDatasetError.
func (s *DatasetService) Load(tablePayload []byte, mapPayload []byte) error {
	table, err := ParseVideoTable(tablePayload)
	if err != nil {
		return err
	}
	cats, err := ParseCategoryMap(mapPayload)
	if err != nil {
		return err
	}

	s.table = table
	s.categories = cats
	s.cleaned = false
	s.stats = model.CleanStats{}
	return nil
}

// Clean runs the cleaning and metric pipeline over the loaded table and
// replaces it with the cleaned copy.
//
// Outputs:
//   - error: A NotLoadedError when Load has not succeeded yet.
func (s *DatasetService) Clean() error {
	cleaned, stats, err := Clean(s.table, s.categories)
	if err != nil {
		return err
	}
	s.table = cleaned
	s.stats = stats
	s.cleaned = true
	return nil
}

// Table exposes the current table for the rendering layer. Callers must
// treat it as read-only.
func (s *DatasetService) Table() *model.VideoTable {
	return s.table
}

// Categories exposes the immutable category mapping.
func (s *DatasetService) Categories() *model.CategoryMap {
	return s.categories
}

// CleanStats returns the diagnostics counters from the last Clean.
func (s *DatasetService) CleanStats() model.CleanStats {
	return s.stats
}

// TopN returns the n records with the largest value of the named metric,
// descending, ties broken by original table order. n may exceed the table
// size; the result is then simply the whole table, ranked.
//
// Inputs:
//   - metric: A numeric column name (views, likes, dislikes, comment_count,
//     total_engagement, engagement_rate, like_ratio).
//   - n: How many records to return.
//
// Outputs:
//   - []*model.VideoRecord: At most min(n, size) records.
//   - error: NotLoadedError before a load, UnknownMetricError for a
//     non-numeric field name.
func (s *DatasetService) TopN(metric string, n int) ([]*model.VideoRecord, error) {
	if s.table == nil {
		return nil, &model.NotLoadedError{}
	}
	if _, ok := (&model.VideoRecord{}).MetricValue(metric); !ok {
		return nil, &model.UnknownMetricError{Metric: metric}
	}
	if n < 0 {
		n = 0
	}

	// Rank a copy; the table itself must never be reordered.
	ranked := make([]*model.VideoRecord, len(s.table.Records))
	copy(ranked, s.table.Records)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, _ := ranked[i].MetricValue(metric)
		vj, _ := ranked[j].MetricValue(metric)
		return vi > vj
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	slog.Info("ranked top videos", "metric", metric, "count", len(ranked))
	return ranked, nil
}

// CategoryStats groups the table by category name and computes per-category
// rollups, each statistic rounded to two decimal places, ordered by
// descending total views. When the table carries no category names (the
// mapping was empty so the join never ran) the result is empty, which is
// distinct from the NotLoadedError raised before a load.
//
// Outputs:
//   - []*model.CategoryStat: One row per distinct category name.
//   - error: NotLoadedError before a load.
func (s *DatasetService) CategoryStats() ([]*model.CategoryStat, error) {
	if s.table == nil {
		return nil, &model.NotLoadedError{}
	}
	if !s.table.CategoriesJoined {
		slog.Warn("category names not available")
		return []*model.CategoryStat{}, nil
	}

	type bucket struct {
		count          int
		views          int64
		likes          int64
		engagementRate float64
	}
	// Buckets keep first-appearance order so equal view totals sort
	// deterministically below.
	order := make([]string, 0)
	buckets := make(map[string]*bucket)
	for _, r := range s.table.Records {
		b, ok := buckets[r.CategoryName]
		if !ok {
			b = &bucket{}
			buckets[r.CategoryName] = b
			order = append(order, r.CategoryName)
		}
		b.count++
		b.views += r.Views.Value
		b.likes += r.Likes.Value
		b.engagementRate += r.EngagementRate
	}

	out := make([]*model.CategoryStat, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		out = append(out, &model.CategoryStat{
			CategoryName:      name,
			VideoCount:        b.count,
			AvgViews:          round2(float64(b.views) / float64(b.count)),
			TotalViews:        b.views,
			AvgLikes:          round2(float64(b.likes) / float64(b.count)),
			TotalLikes:        b.likes,
			AvgEngagementRate: round2(b.engagementRate / float64(b.count)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalViews > out[j].TotalViews
	})

	slog.Info("generated category statistics", "categories", len(out))
	return out, nil
}

// Summary returns the whole-table snapshot. Unlike TopN and CategoryStats,
// an absent table is not an error here: the result carries the NoData
// sentinel instead. That asymmetry is part of the contract and is preserved
// on purpose.
func (s *DatasetService) Summary() model.Summary {
	if s.table == nil {
		return model.Summary{NoData: true}
	}

	out := model.Summary{TotalVideos: s.table.Len()}

	var engagementSum float64
	distinct := make(map[string]struct{})
	for _, r := range s.table.Records {
		out.TotalViews += r.Views.Value
		out.TotalLikes += r.Likes.Value
		engagementSum += r.EngagementRate
		if s.table.CategoriesJoined {
			distinct[r.CategoryName] = struct{}{}
		}
	}
	out.TotalCategories = len(distinct)
	if out.TotalVideos > 0 {
		out.AvgViews = float64(out.TotalViews) / float64(out.TotalVideos)
		out.AvgEngagementRate = engagementSum / float64(out.TotalVideos)
	}
	return out
}

// round2 rounds to two decimal places, the precision every rollup reports.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
