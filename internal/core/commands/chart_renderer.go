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

// This file defines the command that renders the analysis charts from the
// cleaned dataset: category bar charts, a top-videos chart per ranking
// metric, and the views-vs-engagement scatter plot. The written file paths
// are published into the context for the optional upload step.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/charts"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// TopVideoMetrics are the ranking metrics the renderer draws a top-videos
// chart for.
var TopVideoMetrics = []string{"views", "likes", "engagement_rate"}

// ChartRenderer is a command that draws the analysis charts to PNG files.
type ChartRenderer struct {
	cor.BaseCommand
	service        *services.DatasetService // The cleaned dataset the charts are drawn from.
	renderer       *charts.Renderer         // The PNG renderer.
	topVideos      int                      // Ranking depth for the top-videos charts.
	topCategories  int                      // How many categories the category charts show.
	chartPathParam string                   // The context key receiving the written chart paths.
}

// NewChartRenderer is the constructor for the ChartRenderer command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - service: The DatasetService shared across the workflow.
//   - renderer: A configured charts.Renderer.
//   - topVideos: The ranking depth for the top-videos charts.
//   - topCategories: How many categories the category charts show.
//   - chartPathParam: The context parameter name for the output path list.
//
// Outputs:
//   - *ChartRenderer: A pointer to the newly instantiated command.
func NewChartRenderer(name string, service *services.DatasetService, renderer *charts.Renderer, topVideos int, topCategories int, chartPathParam string) *ChartRenderer {
	return &ChartRenderer{
		BaseCommand:    *cor.NewBaseCommand(name),
		service:        service,
		renderer:       renderer,
		topVideos:      topVideos,
		topCategories:  topCategories,
		chartPathParam: chartPathParam,
	}
}

// Execute renders every chart and records the written paths.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *ChartRenderer) Execute(context cor.Context) {
	var paths []string

	stats, err := s.service.CategoryStats()
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("category statistics unavailable: %w", err))
		return
	}
	categoryPaths, err := s.renderer.RenderCategoryCharts(stats, s.topCategories)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}
	paths = append(paths, categoryPaths...)

	for _, metric := range TopVideoMetrics {
		ranked, err := s.service.TopN(metric, s.topVideos)
		if err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), fmt.Errorf("ranking by %s failed: %w", metric, err))
			return
		}
		path, err := s.renderer.RenderTopVideos(ranked, metric)
		if err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), err)
			return
		}
		if path != "" {
			paths = append(paths, path)
		}
	}

	scatterPath, err := s.renderer.RenderEngagementScatter(s.service.Table().Records)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}
	if scatterPath != "" {
		paths = append(paths, scatterPath)
	}

	histogramPath, err := s.renderer.RenderEngagementHistogram(s.service.Table().Records)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}
	if histogramPath != "" {
		paths = append(paths, histogramPath)
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.chartPathParam, paths)
	context.Add(cor.CtxOut, paths)
	slog.InfoContext(context.GetContext(), "charts rendered",
		slog.Int("count", len(paths)),
		slog.String("output_dir", s.renderer.OutputDir))
}
