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
// model. This file is the cleaning and metric pipeline: seven explicit steps
// run in a fixed order over a copy of the loaded table. The order matters:
// coercion runs before the identity drop so a malformed numeric never
// deletes a row, and the fill runs after the drop so only surviving rows are
// settled. Each step is its own function so each rule stays independently
// testable rather than an implicit side effect of a table library.
//
// Steps, in order:
//  1. Deduplicate by video_id, first occurrence wins.
//  2. Coerce the four numeric columns; failures become missing, not errors.
//  3. Drop rows missing video_id, title, or category_id.
//  4. Zero-fill numeric cells that are still missing.
//  5. Normalize category_id to a canonical string.
//  6. Join category names; unmapped ids become "Unknown".
//  7. Derive total_engagement, engagement_rate, and like_ratio.
package services

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
)

// UnknownCategoryName is the fallback display name joined onto records whose
// category id has no mapping.
const UnknownCategoryName = "Unknown"

// Clean runs the full cleaning and metric pipeline over a loaded table. It
// is pure with respect to its input: the returned table is a fresh copy and
// the input is never mutated. Cleaning an already-clean table is a no-op.
//
// Inputs:
//   - in: The loaded (validated) video table.
//   - cats: The category mapping; may be empty, in which case the name join
//     is skipped entirely.
//
// Outputs:
//   - *model.VideoTable: The cleaned table.
//   - model.CleanStats: Diagnostics counters (logged, not used for logic).
//   - error: A NotLoadedError when in is nil.
func Clean(in *model.VideoTable, cats *model.CategoryMap) (*model.VideoTable, model.CleanStats, error) {
	var stats model.CleanStats
	if in == nil {
		return nil, stats, &model.NotLoadedError{}
	}

	out := copyTable(in)

	stats.DuplicatesRemoved = dedupeByVideoID(out)
	coerceNumericCells(out)
	stats.RowsDropped = dropMissingIdentity(out)
	stats.ValuesFilled = fillMissingCounts(out)
	normalizeCategoryIDs(out)
	joinCategoryNames(out, cats)
	deriveEngagementMetrics(out)

	slog.Info("data cleaning completed",
		"final_count", out.Len(),
		"duplicates_removed", stats.DuplicatesRemoved,
		"rows_dropped", stats.RowsDropped,
		"values_filled", stats.ValuesFilled)
	return out, stats, nil
}

// copyTable makes a record-deep copy so the pipeline never mutates its input.
func copyTable(in *model.VideoTable) *model.VideoTable {
	out := &model.VideoTable{Records: make([]*model.VideoRecord, 0, in.Len())}
	for _, r := range in.Records {
		clone := *r
		out.Records = append(out.Records, &clone)
	}
	return out
}

// dedupeByVideoID removes rows whose video_id was already seen, keeping the
// first occurrence, and returns the number removed.
func dedupeByVideoID(t *model.VideoTable) int {
	seen := make(map[string]struct{}, t.Len())
	kept := t.Records[:0]
	removed := 0
	for _, r := range t.Records {
		if _, dup := seen[r.VideoID]; dup {
			removed++
			continue
		}
		seen[r.VideoID] = struct{}{}
		kept = append(kept, r)
	}
	t.Records = kept
	return removed
}

// coerceNumericCells parses the raw text of every numeric cell. A cell that
// fails to parse stays missing; that is not an error at this stage.
func coerceNumericCells(t *model.VideoTable) {
	for _, r := range t.Records {
		coerceCell(&r.Views)
		coerceCell(&r.Likes)
		coerceCell(&r.Dislikes)
		coerceCell(&r.CommentCount)
	}
}

// coerceCell settles one cell from its raw text. Integral float forms
// ("123.0") coerce; anything non-numeric stays missing.
func coerceCell(c *model.Count) {
	if c.Valid {
		return
	}
	raw := strings.TrimSpace(c.Raw)
	if raw == "" {
		return
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		c.Value = v
		c.Valid = true
		return
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) {
		c.Value = int64(f)
		c.Valid = true
	}
}

// dropMissingIdentity removes rows missing any identity field. This is the
// only step that removes rows for their content, and it runs after coercion.
func dropMissingIdentity(t *model.VideoTable) int {
	kept := t.Records[:0]
	dropped := 0
	for _, r := range t.Records {
		if strings.TrimSpace(r.VideoID) == "" ||
			strings.TrimSpace(r.Title) == "" ||
			strings.TrimSpace(r.CategoryID) == "" {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	t.Records = kept
	return dropped
}

// fillMissingCounts settles every still-missing numeric cell to zero and
// returns how many cells it filled.
func fillMissingCounts(t *model.VideoTable) int {
	filled := 0
	for _, r := range t.Records {
		for _, c := range []*model.Count{&r.Views, &r.Likes, &r.Dislikes, &r.CommentCount} {
			if !c.Valid {
				c.Value = 0
				c.Valid = true
				filled++
			}
		}
	}
	return filled
}

// normalizeCategoryIDs rewrites every category_id into canonical string form
// so the category-name join is an exact match.
func normalizeCategoryIDs(t *model.VideoTable) {
	for _, r := range t.Records {
		r.CategoryID = NormalizeCategoryID(r.CategoryID)
	}
}

// NormalizeCategoryID returns the canonical string form of a category id.
// The source column arrives as a string, an integer, or an integral float
// depending on how the table was serialized; all three forms collapse to the
// same key ("10", 10, and "10.0" all normalize to "10").
func NormalizeCategoryID(in string) string {
	s := strings.TrimSpace(in)
	if s == "" {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// joinCategoryNames maps category ids to display names. The join runs only
// when the mapping is non-empty; unmapped ids get the "Unknown" fallback.
func joinCategoryNames(t *model.VideoTable, cats *model.CategoryMap) {
	if cats.Len() == 0 {
		return
	}
	t.CategoriesJoined = true
	for _, r := range t.Records {
		if name, ok := cats.Lookup(r.CategoryID); ok {
			r.CategoryName = name
		} else {
			r.CategoryName = UnknownCategoryName
		}
	}
}

// deriveEngagementMetrics computes the derived columns. A zero denominator
// (views, or total engagement) is substituted with 1, so zero-view and
// zero-engagement rows yield a small finite rate instead of dividing by
// zero. That substitution is a behavioral contract, not a convenience.
func deriveEngagementMetrics(t *model.VideoTable) {
	for _, r := range t.Records {
		r.TotalEngagement = r.Likes.Value + r.Dislikes.Value

		views := r.Views.Value
		if views == 0 {
			views = 1
		}
		r.EngagementRate = float64(r.TotalEngagement) / float64(views) * 100

		engagement := r.TotalEngagement
		if engagement == 0 {
			engagement = 1
		}
		r.LikeRatio = float64(r.Likes.Value) / float64(engagement) * 100
	}
}
