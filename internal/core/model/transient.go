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
// This file, `transient.go`, contains the in-memory table types that the
// cleaning pipeline operates on. A freshly loaded table still carries the
// unparsed source text of every numeric cell; the pipeline's coercion and
// fill steps turn those cells into settled values. Nothing in this file is
// persisted directly; the persistent projections live in `persistent.go`.
package model

import (
	"encoding/json"
	"strconv"
)

// CategoryFormat identifies which of the recognized category-mapping payload
// shapes a parse resolved to. The dispatch happens exactly once, at parse
// time, and the result travels with the map so callers can tell a genuinely
// empty mapping apart from one whose shape was not recognized.
type CategoryFormat int

const (
	// CategoryFormatUnknown marks a payload that matched neither recognized
	// shape. The mapping is treated as empty, not as an error.
	CategoryFormatUnknown CategoryFormat = iota
	// CategoryFormatNested is the YouTube API shape: {"items": [{"id": ...,
	// "snippet": {"title": ...}}, ...]}.
	CategoryFormatNested
	// CategoryFormatFlat is the simple {"<id>": "<name>", ...} shape.
	CategoryFormatFlat
)

// String returns the human-readable name of the format for logs.
func (f CategoryFormat) String() string {
	switch f {
	case CategoryFormatNested:
		return "nested"
	case CategoryFormatFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// CategoryMap holds the id-to-display-name mapping joined onto the video
// table. It is built once per run and never mutated afterward.
type CategoryMap struct {
	Names  map[string]string // Category id to display name.
	Format CategoryFormat    // The payload shape the parse resolved to.
}

// Len returns the number of mapped categories.
func (m *CategoryMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Names)
}

// Lookup returns the display name for a canonical category id.
func (m *CategoryMap) Lookup(id string) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.Names[id]
	return name, ok
}

// Count is a numeric table cell. The loader stores only the raw source text;
// the pipeline's coercion step parses it, and the fill step settles any cell
// that failed to parse to zero. Keeping the raw text around means a malformed
// numeric never deletes a row at load time.
type Count struct {
	Raw   string // The unparsed source text, as read from the table payload.
	Value int64  // The coerced value. Meaningful only when Valid is true.
	Valid bool   // Whether Value holds a successfully coerced number.
}

// NewCount creates an already-settled cell, used by tests and derived rows.
func NewCount(value int64) Count {
	return Count{Value: value, Valid: true, Raw: strconv.FormatInt(value, 10)}
}

// RawCount creates an unsettled cell holding only source text.
func RawCount(raw string) Count {
	return Count{Raw: raw}
}

// MarshalJSON renders the cell as a bare number so API responses and
// exported rows look like ordinary integers. Unsettled cells render as 0.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("0"), nil
	}
	return json.Marshal(c.Value)
}

// VideoRecord is one row of the trending-video table: the identity fields,
// the four numeric cells, and the fields the cleaning pipeline derives.
type VideoRecord struct {
	VideoID      string `json:"video_id"`    // Unique key after deduplication.
	Title        string `json:"title"`       // Video title.
	CategoryID   string `json:"category_id"` // Canonical string form after normalization.
	Views        Count  `json:"views"`
	Likes        Count  `json:"likes"`
	Dislikes     Count  `json:"dislikes"`
	CommentCount Count  `json:"comment_count"`

	// Derived by the cleaning pipeline.
	CategoryName    string  `json:"category_name,omitempty"` // Display name, "Unknown" when unmapped.
	TotalEngagement int64   `json:"total_engagement"`        // likes + dislikes.
	EngagementRate  float64 `json:"engagement_rate"`         // total_engagement / max(views,1) * 100.
	LikeRatio       float64 `json:"like_ratio"`              // likes / max(total_engagement,1) * 100.
}

// MetricValue resolves a numeric field by its column name, for ranking.
// The second return is false when the name does not refer to a numeric field.
func (r *VideoRecord) MetricValue(metric string) (float64, bool) {
	switch metric {
	case "views":
		return float64(r.Views.Value), true
	case "likes":
		return float64(r.Likes.Value), true
	case "dislikes":
		return float64(r.Dislikes.Value), true
	case "comment_count":
		return float64(r.CommentCount.Value), true
	case "total_engagement":
		return float64(r.TotalEngagement), true
	case "engagement_rate":
		return r.EngagementRate, true
	case "like_ratio":
		return r.LikeRatio, true
	default:
		return 0, false
	}
}

// VideoTable is the ordered collection of video records for one run. After
// the cleaning pipeline completes it is held read-only; the aggregation
// operations never mutate it.
type VideoTable struct {
	Records []*VideoRecord // Rows in source order.
	// CategoriesJoined records whether the category-name join ran, which it
	// does exactly when the category map was non-empty. CategoryStats uses
	// it to distinguish "no names to group by" from "no table loaded".
	CategoriesJoined bool
}

// Len returns the number of rows in the table.
func (t *VideoTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// CleanStats carries the diagnostics counters the cleaning pipeline reports.
// They feed logs and the console summary only; no further logic reads them.
type CleanStats struct {
	DuplicatesRemoved int // Rows dropped by video_id deduplication.
	RowsDropped       int // Rows dropped for missing identity fields.
	ValuesFilled      int // Numeric cells zero-filled after failed coercion.
}
