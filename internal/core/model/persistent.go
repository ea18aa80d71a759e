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

// Package model defines the core data structures for the application.
// This file, `persistent.go`, contains the outward-facing projections of the
// cleaned table: the aggregate result rows served over the API and printed by
// the CLI, and the flattened row shape streamed to BigQuery when an export
// destination is configured.
package model

// CategoryStat is one per-category rollup row. All statistics are rounded to
// two decimal places, and the result set is ordered by descending TotalViews.
type CategoryStat struct {
	CategoryName      string  `json:"category_name" bigquery:"category_name"`
	VideoCount        int     `json:"video_count" bigquery:"video_count"`
	AvgViews          float64 `json:"avg_views" bigquery:"avg_views"`
	TotalViews        int64   `json:"total_views" bigquery:"total_views"`
	AvgLikes          float64 `json:"avg_likes" bigquery:"avg_likes"`
	TotalLikes        int64   `json:"total_likes" bigquery:"total_likes"`
	AvgEngagementRate float64 `json:"avg_engagement_rate" bigquery:"avg_engagement_rate"`
}

// Summary is the whole-table snapshot printed at the end of a run. When no
// table has been loaded it is returned with NoData set rather than an error;
// the ranking and rollup operations fail loudly instead. That asymmetry is
// part of the contract.
type Summary struct {
	NoData            bool    `json:"no_data,omitempty"` // Sentinel: nothing loaded.
	TotalVideos       int     `json:"total_videos"`
	TotalCategories   int     `json:"total_categories"` // Distinct category names; 0 when the join never ran.
	TotalViews        int64   `json:"total_views"`
	TotalLikes        int64   `json:"total_likes"`
	AvgViews          float64 `json:"avg_views"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
}

// VideoRow is the flattened, fully settled projection of a VideoRecord used
// for the BigQuery export. The struct tags drive the inserter's column
// mapping.
type VideoRow struct {
	VideoID         string  `json:"video_id" bigquery:"video_id"`
	Title           string  `json:"title" bigquery:"title"`
	CategoryID      string  `json:"category_id" bigquery:"category_id"`
	CategoryName    string  `json:"category_name" bigquery:"category_name"`
	Views           int64   `json:"views" bigquery:"views"`
	Likes           int64   `json:"likes" bigquery:"likes"`
	Dislikes        int64   `json:"dislikes" bigquery:"dislikes"`
	CommentCount    int64   `json:"comment_count" bigquery:"comment_count"`
	TotalEngagement int64   `json:"total_engagement" bigquery:"total_engagement"`
	EngagementRate  float64 `json:"engagement_rate" bigquery:"engagement_rate"`
	LikeRatio       float64 `json:"like_ratio" bigquery:"like_ratio"`
}

// ToRow flattens a cleaned record into its persistent projection.
func (r *VideoRecord) ToRow() *VideoRow {
	return &VideoRow{
		VideoID:         r.VideoID,
		Title:           r.Title,
		CategoryID:      r.CategoryID,
		CategoryName:    r.CategoryName,
		Views:           r.Views.Value,
		Likes:           r.Likes.Value,
		Dislikes:        r.Dislikes.Value,
		CommentCount:    r.CommentCount.Value,
		TotalEngagement: r.TotalEngagement,
		EngagementRate:  r.EngagementRate,
		LikeRatio:       r.LikeRatio,
	}
}
