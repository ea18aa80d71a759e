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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that acquires the dataset payload files from the Kaggle API.
//
// Logic Flow:
//  1. The command asks the Kaggle client for the dataset, which either reuses
//     the payload files already on disk or downloads and extracts the archive.
//  2. On success it publishes the local CSV and JSON paths into the workflow
//     context for the loader command downstream.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/cloud"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
)

// KaggleDatasetDownload is a command that fetches the dataset payload files.
type KaggleDatasetDownload struct {
	cor.BaseCommand
	client        *cloud.KaggleClient // The authenticated, rate-limited API client.
	force         bool                // Re-download even when the payload files exist.
	csvPathParam  string              // The context key receiving the table payload path.
	jsonPathParam string              // The context key receiving the category-map payload path.
}

// NewKaggleDatasetDownload is the constructor for the KaggleDatasetDownload command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *cloud.KaggleClient.
//   - force: When true, ignore payload files already on disk.
//   - csvPathParam: The context parameter name for the CSV path output.
//   - jsonPathParam: The context parameter name for the JSON path output.
//
// Outputs:
//   - *KaggleDatasetDownload: A pointer to the newly instantiated command.
func NewKaggleDatasetDownload(name string, client *cloud.KaggleClient, force bool, csvPathParam string, jsonPathParam string) *KaggleDatasetDownload {
	return &KaggleDatasetDownload{
		BaseCommand:   *cor.NewBaseCommand(name),
		client:        client,
		force:         force,
		csvPathParam:  csvPathParam,
		jsonPathParam: jsonPathParam,
	}
}

// IsExecutable requires only a live Go context. This command originates the
// chain's data flow, so unlike the default precondition it must not wait for
// a prior step's output to appear in the input slot.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True when the context is usable.
func (s *KaggleDatasetDownload) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute downloads (or reuses) the dataset and records the payload paths.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *KaggleDatasetDownload) Execute(context cor.Context) {
	csvPath, jsonPath, err := s.client.DownloadDataset(context.GetContext(), s.force)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("dataset download failed: %w", err))
		return
	}
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.csvPathParam, csvPath)
	context.Add(s.jsonPathParam, jsonPath)
	context.Add(cor.CtxOut, csvPath)
	slog.InfoContext(context.GetContext(), "dataset payload files ready",
		slog.String("csv", csvPath), slog.String("json", jsonPath))
}
