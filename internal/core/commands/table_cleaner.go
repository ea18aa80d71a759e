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

// This file defines the command that runs the cleaning pipeline over the
// loaded table: deduplication, numeric coercion, identity-row drops, count
// fills, category-name joins, and engagement-metric derivation, in that
// fixed order.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// TableCleaner is a command that cleans the loaded dataset in place.
type TableCleaner struct {
	cor.BaseCommand
	service *services.DatasetService // The dataset service whose table is cleaned.
}

// NewTableCleaner is the constructor for the TableCleaner command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - service: The DatasetService shared across the workflow.
//
// Outputs:
//   - *TableCleaner: A pointer to the newly instantiated command.
func NewTableCleaner(name string, service *services.DatasetService) *TableCleaner {
	return &TableCleaner{BaseCommand: *cor.NewBaseCommand(name), service: service}
}

// Execute runs the cleaning pipeline and logs its per-step tallies.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *TableCleaner) Execute(context cor.Context) {
	if err := s.service.Clean(); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("dataset clean failed: %w", err))
		return
	}
	stats := s.service.CleanStats()
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, s.service.Table())
	slog.InfoContext(context.GetContext(), "dataset cleaned",
		slog.Int("rows", s.service.Table().Len()),
		slog.Int("duplicates_removed", stats.DuplicatesRemoved),
		slog.Int("rows_dropped", stats.RowsDropped),
		slog.Int("values_filled", stats.ValuesFilled))
}
