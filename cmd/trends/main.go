// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the trend analysis command line tool.
//
// The tool wraps the batch analysis pipeline behind three subcommands:
//
//   - analyze: Runs the full pipeline once: download the trending dataset,
//     load and validate it, clean it, derive the engagement metrics, render
//     the charts, and run the configured cloud exports. A human-readable
//     summary of the run is printed to the console.
//
//   - serve: Runs the acquisition and cleaning steps, then exposes the
//     analysis results over a REST API using the Gin framework, instrumented
//     with OpenTelemetry.
//
//   - info: Prints the dataset's current version and metadata document
//     without downloading anything.
//
// Functions:
//   - main: The entry point; builds and executes the cobra command tree.
//   - runAnalyze: The `analyze` subcommand body.
//   - runServe: The `serve` subcommand body.
//   - runInfo: The `info` subcommand body.
//   - printRunSummary: Writes the console report after an analysis run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/workflow"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/telemetry"
)

// main builds the command tree and dispatches to the chosen subcommand.
func main() {
	var forceDownload bool
	var skipViz bool
	var outputDir string
	var listenAddr string

	rootCmd := &cobra.Command{
		Use:   "trends",
		Short: "Analyze trending video statistics",
		Long: "trends downloads the trending-video dataset, cleans it, derives engagement\n" +
			"metrics, and reports rankings, per-category statistics, and charts.",
		SilenceUsage: true,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), workflow.Options{
				ForceDownload: forceDownload,
				SkipCharts:    skipViz,
				OutputDir:     outputDir,
			})
		},
	}
	analyzeCmd.Flags().BoolVar(&forceDownload, "force-download", false, "re-download the dataset even if payload files exist")
	analyzeCmd.Flags().BoolVar(&skipViz, "skip-viz", false, "skip chart rendering and upload")
	analyzeCmd.Flags().StringVar(&outputDir, "output-dir", "", "override the configured chart output directory")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and serve the analysis results over REST",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), forceDownload, listenAddr)
		},
	}
	serveCmd.Flags().BoolVar(&forceDownload, "force-download", false, "re-download the dataset even if payload files exist")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address the API server listens on")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print the dataset's current version and metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context())
		},
	}

	rootCmd.AddCommand(analyzeCmd, serveCmd, infoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup initializes logging, telemetry, and the shared application state, and
// returns the telemetry shutdown function.
func setup(ctx context.Context) func(context.Context) error {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	config := GetConfig()

	// Telemetry export needs a project to write to; purely local runs skip it.
	shutdown := func(context.Context) error { return nil }
	if config.Application.GoogleProjectId != "" {
		otelShutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
		if err != nil {
			slog.Error("Failed to setup OpenTelemetry", "error", err)
			log.Fatal(err)
		}
		shutdown = otelShutdown
		slog.Info("Tracing initialized")
	}

	InitState(ctx)
	slog.Info("Initialized State")
	return shutdown
}

// errorKind classifies a pipeline error for the operator-facing log line:
// data problems point at the payload, query problems at the caller, and
// everything else at credentials or the network.
func errorKind(err error) string {
	var malformed *model.MalformedInputError
	var schema *model.SchemaError
	var empty *model.EmptyDatasetError
	var notLoaded *model.NotLoadedError
	var unknownMetric *model.UnknownMetricError
	switch {
	case errors.As(err, &malformed), errors.As(err, &schema), errors.As(err, &empty):
		return "bad-data"
	case errors.As(err, &notLoaded), errors.As(err, &unknownMetric):
		return "bad-query"
	default:
		return "transport"
	}
}

// runPipeline executes the analysis workflow once and returns it for result
// queries.
func runPipeline(ctx context.Context, options workflow.Options) (*workflow.TrendAnalysisWorkflow, error) {
	runID := uuid.NewString()
	slog.InfoContext(ctx, "starting analysis run", slog.String("run_id", runID))

	pipeline := workflow.NewTrendAnalysisPipeline(state.config, state.cloud, state.kaggleClient, options)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	defer chainCtx.Close()

	pipeline.Execute(chainCtx)
	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			slog.ErrorContext(ctx, "pipeline step failed",
				slog.String("run_id", runID),
				slog.String("step", name),
				slog.String("kind", errorKind(err)),
				slog.Any("error", err))
		}
		return nil, fmt.Errorf("analysis run %s failed", runID)
	}
	slog.InfoContext(ctx, "analysis run complete", slog.String("run_id", runID))
	return pipeline, nil
}

// runAnalyze is the body of the `analyze` subcommand.
func runAnalyze(ctx context.Context, options workflow.Options) error {
	shutdown := setup(ctx)
	defer func() { _ = shutdown(context.Background()) }()
	defer state.cloud.Close()

	pipeline, err := runPipeline(ctx, options)
	if err != nil {
		return err
	}
	printRunSummary(pipeline.Dataset())
	return nil
}

// runInfo is the body of the `info` subcommand. It looks up the dataset's
// current version and metadata document from the Kaggle API and prints them,
// without downloading anything.
func runInfo(ctx context.Context) error {
	shutdown := setup(ctx)
	defer func() { _ = shutdown(context.Background()) }()
	defer state.cloud.Close()

	version, err := state.kaggleClient.CheckDatasetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to look up dataset version: %w", err)
	}
	meta, err := state.kaggleClient.GetDatasetInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch dataset metadata: %w", err)
	}
	doc, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format dataset metadata: %w", err)
	}

	fmt.Printf("Dataset:         %s/%s\n", state.config.Kaggle.OwnerSlug, state.config.Kaggle.DatasetSlug)
	fmt.Printf("Current version: %s\n", version)
	fmt.Println(string(doc))
	return nil
}

// runServe is the body of the `serve` subcommand. It runs the acquisition and
// cleaning steps without rendering, then serves the results until interrupted.
func runServe(ctx context.Context, forceDownload bool, listenAddr string) error {
	shutdown := setup(ctx)
	defer func() { _ = shutdown(context.Background()) }()
	defer state.cloud.Close()

	pipeline, err := runPipeline(ctx, workflow.Options{ForceDownload: forceDownload, SkipCharts: true})
	if err != nil {
		return err
	}

	r := gin.Default()
	// Trace incoming requests and allow cross-origin reads.
	r.Use(otelgin.Middleware(state.config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		TrendsRouter(apiV1, pipeline.Dataset())
	}

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready", "addr", listenAddr)

	// Block until an interrupt arrives, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}
	log.Println("Server exiting")
	return nil
}

// printRunSummary writes the human-readable run report: cleaning tallies, the
// dataset summary, the top videos by views, and the leading categories.
func printRunSummary(svc *services.DatasetService) {
	summary := svc.Summary()
	stats := svc.CleanStats()

	fmt.Println()
	fmt.Println("==================================================")
	fmt.Println(" TREND ANALYSIS SUMMARY")
	fmt.Println("==================================================")
	fmt.Printf("Duplicates removed:    %d\n", stats.DuplicatesRemoved)
	fmt.Printf("Rows dropped:          %d\n", stats.RowsDropped)
	fmt.Printf("Missing values filled: %d\n", stats.ValuesFilled)
	fmt.Println("--------------------------------------------------")
	if summary.NoData {
		fmt.Println("No data loaded.")
		return
	}
	fmt.Printf("Total videos:          %d\n", summary.TotalVideos)
	fmt.Printf("Total categories:      %d\n", summary.TotalCategories)
	fmt.Printf("Total views:           %d\n", summary.TotalViews)
	fmt.Printf("Total likes:           %d\n", summary.TotalLikes)
	fmt.Printf("Average views:         %.2f\n", summary.AvgViews)
	fmt.Printf("Average engagement:    %.2f%%\n", summary.AvgEngagementRate)

	if top, err := svc.TopN("views", 5); err == nil && len(top) > 0 {
		fmt.Println("--------------------------------------------------")
		fmt.Println("Top videos by views:")
		for i, rec := range top {
			fmt.Printf("  %d. %s (%d views)\n", i+1, rec.Title, rec.Views.Value)
		}
	}

	if categories, err := svc.CategoryStats(); err == nil && len(categories) > 0 {
		fmt.Println("--------------------------------------------------")
		fmt.Println("Leading categories by total views:")
		limit := 5
		if len(categories) < limit {
			limit = len(categories)
		}
		for _, cat := range categories[:limit] {
			fmt.Printf("  %-24s %6d videos  %12d views  %6.2f%% engagement\n",
				cat.CategoryName, cat.VideoCount, cat.TotalViews, cat.AvgEngagementRate)
		}
	}
	fmt.Println("==================================================")
}
