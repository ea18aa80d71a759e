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
// This file contains the error taxonomy for the loading, cleaning, and
// aggregation stages. Every failure kind is a distinct type so callers can
// branch on them with errors.As; the core never formats user-facing text,
// it only returns these structured values. All of them are terminal for the
// current run: nothing at this layer retries.
package model

import (
	"fmt"
	"strings"
)

// MalformedInputError reports a payload that could not be parsed at all:
// empty bytes, broken CSV quoting, invalid JSON. It is distinct from an
// EmptyDatasetError, which means the payload parsed fine but held no rows.
type MalformedInputError struct {
	Source string // Which payload failed: "table" or "category_map".
	Err    error  // The underlying parse error, when one exists.
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s payload: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("malformed %s payload", e.Source)
}

// Unwrap exposes the underlying parse error to errors.Is/As chains.
func (e *MalformedInputError) Unwrap() error { return e.Err }

// SchemaError reports that the table payload parsed but is missing one or
// more required columns. Missing always names every absent column.
type SchemaError struct {
	Missing []string // The required column names absent from the header.
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// EmptyDatasetError reports that the table payload parsed and passed the
// column contract but contained zero data rows.
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string { return "no video data found" }

// NotLoadedError reports that an operation requiring a loaded table ran
// before a successful load.
type NotLoadedError struct{}

func (e *NotLoadedError) Error() string { return "no data loaded" }

// UnknownMetricError reports a ranking request for a field that is not a
// numeric column of the table.
type UnknownMetricError struct {
	Metric string // The requested field name.
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("metric '%s' not found in data", e.Metric)
}
