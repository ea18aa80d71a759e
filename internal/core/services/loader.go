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
// model. This file is the table loader and validator: it parses the two byte
// payloads the transport hands over (the row-oriented video table and the
// nested category mapping) into in-memory structures and enforces the
// required-column contract. The loader performs no I/O itself.
//
// Failure kinds are deliberately distinct:
//   - MalformedInputError: the payload is empty or cannot be parsed at all.
//   - SchemaError: the table parsed but required columns are absent.
//   - EmptyDatasetError: the table parsed, the schema holds, but there are
//     zero data rows.
package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
)

// RequiredColumns is the column contract every table payload must satisfy.
// comment_count is intentionally absent: it is optional and zero-filled when
// missing.
var RequiredColumns = []string{"video_id", "title", "category_id", "views", "likes", "dislikes"}

// ParseVideoTable parses a CSV payload into a VideoTable. Numeric cells keep
// their raw source text; coercion belongs to the cleaning pipeline so that a
// malformed numeric never costs a row at load time.
//
// Inputs:
//   - payload: The raw bytes of the row-oriented table file.
//
// Outputs:
//   - *model.VideoTable: The parsed table, rows in source order.
//   - error: A MalformedInputError, SchemaError, or EmptyDatasetError.
func ParseVideoTable(payload []byte) (*model.VideoTable, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &model.MalformedInputError{Source: "table"}
	}

	reader := csv.NewReader(bytes.NewReader(payload))
	// The source dataset has ragged rows and embedded quotes in titles;
	// tolerate both and treat short rows as having empty trailing cells,
	// the same way the column-oriented loader it replaces did.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &model.MalformedInputError{Source: "table", Err: err}
	}
	if len(rows) == 0 {
		return nil, &model.MalformedInputError{Source: "table"}
	}

	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := colIndex[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slog.Error("table payload failed schema validation", "missing_columns", missing)
		return nil, &model.SchemaError{Missing: missing}
	}

	if len(rows) == 1 {
		return nil, &model.EmptyDatasetError{}
	}

	// cell returns a column value for a row, treating out-of-range indexes
	// (short rows) as empty.
	cell := func(row []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	table := &model.VideoTable{Records: make([]*model.VideoRecord, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		table.Records = append(table.Records, &model.VideoRecord{
			VideoID:      cell(row, "video_id"),
			Title:        cell(row, "title"),
			CategoryID:   cell(row, "category_id"),
			Views:        model.RawCount(cell(row, "views")),
			Likes:        model.RawCount(cell(row, "likes")),
			Dislikes:     model.RawCount(cell(row, "dislikes")),
			CommentCount: model.RawCount(cell(row, "comment_count")),
		})
	}

	slog.Info("loaded video records", "count", table.Len())
	return table, nil
}

// nestedCategoryPayload mirrors the YouTube API category list shape.
type nestedCategoryPayload struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// ParseCategoryMap parses the category-mapping payload and resolves its
// format exactly once. Two shapes are recognized: the nested
// items[].id/snippet.title structure and a flat id-to-name object. Anything
// else resolves to CategoryFormatUnknown with an empty mapping, which is a
// loggable condition but not an error.
//
// Inputs:
//   - payload: The raw bytes of the category mapping file.
//
// Outputs:
//   - *model.CategoryMap: The mapping plus its resolved format tag.
//   - error: A MalformedInputError when the payload is empty or not JSON.
func ParseCategoryMap(payload []byte) (*model.CategoryMap, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &model.MalformedInputError{Source: "category_map"}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, &model.MalformedInputError{Source: "category_map", Err: err}
	}

	// Dispatch on the presence of the "items" key, resolved here and only here.
	if _, ok := probe["items"]; ok {
		var nested nestedCategoryPayload
		if err := json.Unmarshal(payload, &nested); err != nil {
			return nil, &model.MalformedInputError{Source: "category_map", Err: err}
		}
		out := &model.CategoryMap{Names: make(map[string]string, len(nested.Items)), Format: model.CategoryFormatNested}
		for _, item := range nested.Items {
			if item.ID == "" {
				continue
			}
			out.Names[item.ID] = item.Snippet.Title
		}
		slog.Info("loaded video categories", "count", out.Len(), "format", out.Format.String())
		return out, nil
	}

	// Flat shape: every top-level value must be a string.
	flat := make(map[string]string, len(probe))
	for key, raw := range probe {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			slog.Warn("unrecognized category mapping shape; treating as empty", "key", key)
			return &model.CategoryMap{Names: map[string]string{}, Format: model.CategoryFormatUnknown}, nil
		}
		flat[key] = name
	}

	out := &model.CategoryMap{Names: flat, Format: model.CategoryFormatFlat}
	slog.Info("loaded video categories", "count", out.Len(), "format", out.Format.String())
	return out, nil
}
