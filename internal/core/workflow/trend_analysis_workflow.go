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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the end-to-end trend analysis workflow: acquire, load, clean, render,
// and export.
package workflow

import (
	"time"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/cloud"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/charts"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/commands"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// Options tune the per-run behavior of the analysis workflow.
type Options struct {
	ForceDownload bool   // Re-download the dataset even when payload files exist.
	SkipCharts    bool   // Skip chart rendering (and therefore chart upload).
	OutputDir     string // Override for the configured chart output directory.
}

// TrendAnalysisWorkflow orchestrates the entire batch run over the trending
// dataset. It's structured as a Chain of Responsibility (cor.Chain) that
// executes a sequence of commands: dataset download, parse and validation,
// cleaning, chart rendering, and the optional cloud exports.
type TrendAnalysisWorkflow struct {
	cor.BaseCommand
	config       *cloud.Config
	clients      *cloud.ServiceClients
	kaggleClient *cloud.KaggleClient
	service      *services.DatasetService
	options      Options
	chain        cor.Chain // The underlying chain of commands to be executed.
}

// Dataset exposes the workflow's dataset service so callers can query the
// analysis results after a run.
func (m *TrendAnalysisWorkflow) Dataset() *services.DatasetService {
	return m.service
}

// Execute runs the entire analysis workflow by invoking the underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (m *TrendAnalysisWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// initializeChain builds the sequence of commands that make up this workflow.
// Each command is an atomic unit of work. The output of one command often
// serves as the input for the next, creating a processing pipeline.
// This method is called by the constructor.
func (m *TrendAnalysisWorkflow) initializeChain() {
	// Context parameter keys used to pass state between commands.
	const CSVPathParamName = "__csv_path__"
	const JSONPathParamName = "__json_path__"
	const ChartPathsParamName = "__chart_paths__"

	out := cor.NewBaseChain(m.GetName())

	// Step 1: Fetch the dataset archive from the Kaggle API (or reuse the
	// payload files already on disk) and record the local payload paths.
	out.AddCommand(commands.NewKaggleDatasetDownload(
		"kaggle-dataset-download",
		m.kaggleClient,
		m.options.ForceDownload,
		CSVPathParamName,
		JSONPathParamName))

	// Step 2: Parse and validate both payload files into the in-memory
	// dataset. Schema violations and malformed payloads stop the run here.
	out.AddCommand(commands.NewDatasetLoader(
		"dataset-loader",
		m.service,
		CSVPathParamName,
		JSONPathParamName))

	// Step 3: Run the cleaning pipeline: dedupe, coerce, drop, fill, join,
	// and derive the engagement metrics.
	out.AddCommand(commands.NewTableCleaner("table-cleaner", m.service))

	// Step 4: Render the analysis charts, unless the run asked to skip
	// visualization.
	if !m.options.SkipCharts {
		outputDir := m.config.Application.OutputDir
		if m.options.OutputDir != "" {
			outputDir = m.options.OutputDir
		}
		renderer := charts.NewRenderer(outputDir, m.config.Charts.Width, m.config.Charts.Height)
		out.AddCommand(commands.NewChartRenderer(
			"chart-renderer",
			m.service,
			renderer,
			m.config.Charts.TopVideoCount,
			m.config.Charts.TopCategories,
			ChartPathsParamName))

		// Step 5: Publish the rendered charts to GCS with signed URLs when a
		// chart bucket is configured.
		if m.clients != nil && m.clients.StorageClient != nil {
			artifacts := &services.ArtifactService{
				StorageClient: m.clients.StorageClient,
				IAMClient:     m.clients.IAMClient,
				SignerEmail:   m.config.Application.SignerServiceAccountEmail,
				Bucket:        m.config.Storage.ChartBucket,
			}
			ttl := time.Duration(m.config.Storage.SignedURLTTLMinutes) * time.Minute
			out.AddCommand(commands.NewChartUpload("chart-upload", artifacts, ttl, ChartPathsParamName))
		}
	}

	// Step 6: Persist the cleaned rows to BigQuery when a dataset is
	// configured, making the run's output queryable.
	if m.clients != nil && m.clients.BigQueryClient != nil {
		out.AddCommand(commands.NewVideoPersistToBigQuery(
			"write-to-bigquery",
			m.clients.BigQueryClient,
			m.config.BigQueryDataSource.DatasetName,
			m.config.BigQueryDataSource.VideosTable,
			m.service))
	}

	m.chain = out
}

// NewTrendAnalysisPipeline is the constructor for the TrendAnalysisWorkflow.
// It wires the dataset service and the configured exports into the command
// chain.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: The initialized GCP clients; may be nil for purely
//     local runs.
//   - kaggleClient: The authenticated dataset transport client.
//   - options: Per-run tuning flags.
//
// Returns:
//   - A pointer to a newly created and fully initialized TrendAnalysisWorkflow.
func NewTrendAnalysisPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	kaggleClient *cloud.KaggleClient,
	options Options) *TrendAnalysisWorkflow {

	pipeline := &TrendAnalysisWorkflow{
		BaseCommand:  *cor.NewBaseCommand("trend-analysis-pipeline"),
		config:       config,
		clients:      serviceClients,
		kaggleClient: kaggleClient,
		service:      services.NewDatasetService(),
		options:      options,
	}
	pipeline.initializeChain()
	return pipeline
}
