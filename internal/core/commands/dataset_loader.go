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

// This file defines the command that parses the downloaded payload files into
// the in-memory dataset. Both payloads are validated during the load: the
// table must carry the required header columns and at least one row, and the
// category map must be well-formed JSON in one of the recognized shapes. A
// failed load leaves the dataset service untouched.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// DatasetLoader is a command that reads the payload files and loads them into
// the shared DatasetService.
type DatasetLoader struct {
	cor.BaseCommand
	service       *services.DatasetService // The dataset service the payloads are loaded into.
	csvPathParam  string                   // The context key holding the table payload path.
	jsonPathParam string                   // The context key holding the category-map payload path.
}

// NewDatasetLoader is the constructor for the DatasetLoader command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - service: The DatasetService shared across the workflow.
//   - csvPathParam: The context parameter name for the CSV path input.
//   - jsonPathParam: The context parameter name for the JSON path input.
//
// Outputs:
//   - *DatasetLoader: A pointer to the newly instantiated command.
func NewDatasetLoader(name string, service *services.DatasetService, csvPathParam string, jsonPathParam string) *DatasetLoader {
	return &DatasetLoader{
		BaseCommand:   *cor.NewBaseCommand(name),
		service:       service,
		csvPathParam:  csvPathParam,
		jsonPathParam: jsonPathParam,
	}
}

// IsExecutable requires both payload paths to be present in the context.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True when both payload paths exist in the context.
func (s *DatasetLoader) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(s.csvPathParam) != nil &&
		context.Get(s.jsonPathParam) != nil
}

// Execute reads both payload files and loads them into the dataset service.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *DatasetLoader) Execute(context cor.Context) {
	csvPath := context.Get(s.csvPathParam).(string)
	jsonPath := context.Get(s.jsonPathParam).(string)

	tablePayload, err := os.ReadFile(csvPath)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to read table payload %s: %w", csvPath, err))
		return
	}
	mapPayload, err := os.ReadFile(jsonPath)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to read category map payload %s: %w", jsonPath, err))
		return
	}

	if err := s.service.Load(tablePayload, mapPayload); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("dataset load failed: %w", err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, s.service.Table())
	slog.InfoContext(context.GetContext(), "dataset loaded",
		slog.Int("rows", s.service.Table().Len()),
		slog.Int("categories", s.service.Categories().Len()),
		slog.String("category_format", s.service.Categories().Format.String()))
}
