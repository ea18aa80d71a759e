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

// This file defines the command that publishes rendered chart files to Google
// Cloud Storage. Each uploaded artifact gets a time-limited signed URL, logged
// so operators can share a run's output without opening the bucket.
package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/cor"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// ChartUpload is a command that copies rendered charts into a GCS bucket and
// signs access URLs for them.
type ChartUpload struct {
	cor.BaseCommand
	artifacts      *services.ArtifactService // The upload and signing service.
	ttl            time.Duration             // Lifetime of the signed URLs.
	chartPathParam string                    // The context key holding the chart path list.
}

// NewChartUpload is the constructor for the ChartUpload command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - artifacts: A configured ArtifactService.
//   - ttl: The signed URL lifetime.
//   - chartPathParam: The context parameter name for the chart path list input.
//
// Outputs:
//   - *ChartUpload: A pointer to the newly instantiated command.
func NewChartUpload(name string, artifacts *services.ArtifactService, ttl time.Duration, chartPathParam string) *ChartUpload {
	return &ChartUpload{
		BaseCommand:    *cor.NewBaseCommand(name),
		artifacts:      artifacts,
		ttl:            ttl,
		chartPathParam: chartPathParam,
	}
}

// IsExecutable requires the chart path list to be present in the context.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True when rendered chart paths exist in the context.
func (s *ChartUpload) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(s.chartPathParam) != nil
}

// Execute uploads every rendered chart and logs a signed URL for each.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *ChartUpload) Execute(context cor.Context) {
	paths := context.Get(s.chartPathParam).([]string)
	uploaded := make([]string, 0, len(paths))
	for _, path := range paths {
		object, err := s.artifacts.Upload(context.GetContext(), path)
		if err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), fmt.Errorf("chart upload failed for %s: %w", path, err))
			return
		}
		url, err := s.artifacts.SignedURL(context.GetContext(), object, s.ttl)
		if err != nil {
			// The artifact is in the bucket; a signing failure only loses
			// the shareable link.
			slog.WarnContext(context.GetContext(), "could not sign artifact URL",
				slog.String("object", object), slog.Any("error", err))
		} else {
			slog.InfoContext(context.GetContext(), "chart artifact published",
				slog.String("object", object), slog.String("url", url))
		}
		uploaded = append(uploaded, object)
	}

	// A post-upload listing confirms the bucket state the run left behind.
	if objects, err := s.artifacts.ListCharts(context.GetContext()); err != nil {
		slog.WarnContext(context.GetContext(), "could not list bucket artifacts",
			slog.Any("error", err))
	} else {
		slog.InfoContext(context.GetContext(), "chart bucket state",
			slog.Int("uploaded", len(uploaded)), slog.Int("total", len(objects)))
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, uploaded)
}
