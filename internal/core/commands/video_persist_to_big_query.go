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

// This file defines the command responsible for persisting the cleaned video
// rows to BigQuery.
//
// Logic Flow:
//  1. The cleaned table is flattened into BigQuery-taggable rows.
//  2. A streaming Inserter sends the rows in batches; the Go client library
//     maps struct fields onto table columns via the `bigquery` struct tags.
//  3. Errors update telemetry counters and abort the workflow.
package commands

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// insertBatchSize bounds how many rows go into a single streaming insert.
const insertBatchSize = 500

// VideoPersistToBigQuery is a command that saves cleaned video rows to a
// BigQuery table.
type VideoPersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client         // The client for interacting with the BigQuery service.
	dataset string                   // The name of the BigQuery dataset.
	table   string                   // The name of the target table within the dataset.
	service *services.DatasetService // The cleaned dataset to persist.
}

// NewVideoPersistToBigQuery is the constructor for the VideoPersistToBigQuery command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *bigquery.Client.
//   - dataset: The name of the BigQuery dataset.
//   - table: The name of the target table.
//   - service: The DatasetService shared across the workflow.
//
// Outputs:
//   - *VideoPersistToBigQuery: A pointer to the newly instantiated command.
func NewVideoPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string, service *services.DatasetService) *VideoPersistToBigQuery {
	return &VideoPersistToBigQuery{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		dataset:     dataset,
		table:       table,
		service:     service,
	}
}

// Execute streams the cleaned rows into the target table in batches.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *VideoPersistToBigQuery) Execute(context cor.Context) {
	table := s.service.Table()
	if table == nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), &model.NotLoadedError{})
		return
	}

	rows := make([]*model.VideoRow, 0, table.Len())
	for _, rec := range table.Records {
		rows = append(rows, rec.ToRow())
	}

	// The Inserter provides a streaming interface for inserting rows, which
	// is far more efficient than individual INSERT statements.
	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := inserter.Put(context.GetContext(), rows[start:end]); err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), fmt.Errorf("bigquery insert failed for rows %d..%d: %w", start, end, err))
			return
		}
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, len(rows))
	slog.InfoContext(context.GetContext(), "cleaned rows persisted to bigquery",
		slog.Int("rows", len(rows)),
		slog.String("dataset", s.dataset),
		slog.String("table", s.table))
}
