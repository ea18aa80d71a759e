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

// Package charts renders the analysis outputs as static PNG images. The
// renderer draws bar charts for category and top-video rankings and a
// scatter plot relating view counts to engagement rates, writing each image
// under the configured output directory.
package charts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
)

// maxBarLabelLen bounds the category and title labels so bars stay readable.
const maxBarLabelLen = 24

// Renderer writes chart PNG files to the output directory.
type Renderer struct {
	OutputDir string // Destination directory, created on first render.
	Width     int    // Chart width in pixels.
	Height    int    // Chart height in pixels.
}

// NewRenderer creates a Renderer with the given output directory and canvas
// dimensions. Non-positive dimensions fall back to a readable default.
func NewRenderer(outputDir string, width int, height int) *Renderer {
	if width <= 0 {
		width = 1200
	}
	if height <= 0 {
		height = 800
	}
	return &Renderer{OutputDir: outputDir, Width: width, Height: height}
}

// truncateLabel shortens a label for use under a bar.
func truncateLabel(in string) string {
	runes := []rune(in)
	if len(runes) <= maxBarLabelLen {
		return in
	}
	return string(runes[:maxBarLabelLen-1]) + "…"
}

// writePNG renders any chart type that exposes the go-chart Render method to
// a file in the output directory.
func (r *Renderer) writePNG(name string, render func(w *os.File) error) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	path := filepath.Join(r.OutputDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file %s: %w", path, err)
	}
	err = render(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to render chart %s: %w", name, err)
	}
	return path, nil
}

// RenderCategoryCharts draws two bar charts from the per-category statistics:
// video counts per category and average engagement rate per category. At most
// topCategories categories are drawn, in the order the statistics arrive.
//
// Inputs:
//   - stats: The per-category aggregates, already sorted by total views.
//   - topCategories: How many leading categories to draw.
//
// Outputs:
//   - []string: The paths of the written images.
//   - error: An error when rendering or writing fails.
func (r *Renderer) RenderCategoryCharts(stats []*model.CategoryStat, topCategories int) ([]string, error) {
	if len(stats) == 0 {
		return nil, nil
	}
	if topCategories > 0 && len(stats) > topCategories {
		stats = stats[:topCategories]
	}

	countBars := make([]chart.Value, 0, len(stats))
	viewBars := make([]chart.Value, 0, len(stats))
	engagementBars := make([]chart.Value, 0, len(stats))
	for _, s := range stats {
		label := truncateLabel(s.CategoryName)
		countBars = append(countBars, chart.Value{Label: label, Value: float64(s.VideoCount)})
		viewBars = append(viewBars, chart.Value{Label: label, Value: float64(s.TotalViews)})
		engagementBars = append(engagementBars, chart.Value{Label: label, Value: s.AvgEngagementRate})
	}

	var paths []string
	countChart := chart.BarChart{
		Title:    "Trending Videos per Category",
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 50,
		Bars:     countBars,
	}
	p, err := r.writePNG("category_video_counts.png", func(w *os.File) error {
		return countChart.Render(chart.PNG, w)
	})
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)

	viewChart := chart.BarChart{
		Title:    "Total Views per Category",
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 50,
		Bars:     viewBars,
	}
	p, err = r.writePNG("category_total_views.png", func(w *os.File) error {
		return viewChart.Render(chart.PNG, w)
	})
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)

	engagementChart := chart.BarChart{
		Title:    "Average Engagement Rate per Category (%)",
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 50,
		Bars:     engagementBars,
	}
	p, err = r.writePNG("category_engagement.png", func(w *os.File) error {
		return engagementChart.Render(chart.PNG, w)
	})
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)
	return paths, nil
}

// RenderTopVideos draws a bar chart of the leading videos for one metric.
// Titles label the bars; the metric value sets the bar height.
//
// Inputs:
//   - records: The ranked videos, highest first.
//   - metric: The metric name the ranking used, shown in the title and the
//     output file name.
//
// Outputs:
//   - string: The path of the written image, empty when there is nothing to draw.
//   - error: An error when rendering or writing fails.
func (r *Renderer) RenderTopVideos(records []*model.VideoRecord, metric string) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	bars := make([]chart.Value, 0, len(records))
	for _, rec := range records {
		value, ok := rec.MetricValue(metric)
		if !ok {
			return "", &model.UnknownMetricError{Metric: metric}
		}
		bars = append(bars, chart.Value{Label: truncateLabel(rec.Title), Value: value})
	}
	bar := chart.BarChart{
		Title:    fmt.Sprintf("Top Videos by %s", metric),
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 40,
		Bars:     bars,
	}
	return r.writePNG(fmt.Sprintf("top_videos_%s.png", metric), func(w *os.File) error {
		return bar.Render(chart.PNG, w)
	})
}

// RenderEngagementScatter draws a scatter plot of view count against
// engagement rate across the whole table.
//
// Inputs:
//   - records: The cleaned video records.
//
// Outputs:
//   - string: The path of the written image, empty when there is nothing to draw.
//   - error: An error when rendering or writing fails.
func (r *Renderer) RenderEngagementScatter(records []*model.VideoRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	xs := make([]float64, 0, len(records))
	ys := make([]float64, 0, len(records))
	for _, rec := range records {
		xs = append(xs, float64(rec.Views.Value))
		ys = append(ys, rec.EngagementRate)
	}
	scatter := chart.Chart{
		Title:  "Views vs. Engagement Rate",
		Width:  r.Width,
		Height: r.Height,
		XAxis:  chart.XAxis{Name: "Views"},
		YAxis:  chart.YAxis{Name: "Engagement Rate (%)"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    chart.ColorBlue,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return r.writePNG("views_vs_engagement.png", func(w *os.File) error {
		return scatter.Render(chart.PNG, w)
	})
}

// histogramBins is the fixed bin count for the engagement distribution.
const histogramBins = 10

// RenderEngagementHistogram draws the distribution of engagement rates
// across the whole table as a fixed-bin histogram. The bin width scales to
// the largest observed rate.
//
// Inputs:
//   - records: The cleaned video records.
//
// Outputs:
//   - string: The path of the written image, empty when there is nothing to draw.
//   - error: An error when rendering or writing fails.
func (r *Renderer) RenderEngagementHistogram(records []*model.VideoRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	maxRate := 0.0
	for _, rec := range records {
		if rec.EngagementRate > maxRate {
			maxRate = rec.EngagementRate
		}
	}
	if maxRate <= 0 {
		maxRate = 1
	}

	binWidth := maxRate / histogramBins
	counts := make([]int, histogramBins)
	for _, rec := range records {
		bin := int(rec.EngagementRate / binWidth)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
	}

	bars := make([]chart.Value, 0, histogramBins)
	for i, count := range counts {
		lo := float64(i) * binWidth
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%.1f-%.1f", lo, lo+binWidth),
			Value: float64(count),
		})
	}

	histogram := chart.BarChart{
		Title:    "Engagement Rate Distribution (%)",
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 40,
		Bars:     bars,
	}
	return r.writePNG("engagement_rate_distribution.png", func(w *os.File) error {
		return histogram.Render(chart.PNG, w)
	})
}
