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

// Package main contains the API route definitions for the server. This file
// exposes the analysis results of an in-memory dataset over REST.
//
// Functions:
//   - TrendsRouter: Sets up the read-only analysis endpoints: top-video
//     rankings, per-category statistics, and the dataset summary.
package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/model"
	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// TrendsRouter sets up the API routes for querying the analysis results.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the routes will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//   - svc: The loaded and cleaned dataset service the handlers query.
//
// This function defines the following endpoints:
//   - GET /videos/top: Ranks videos by a metric query parameter.
//   - GET /categories/stats: Returns the per-category aggregates.
//   - GET /summary: Returns the dataset-wide summary.
func TrendsRouter(r *gin.RouterGroup, svc *services.DatasetService) {
	videos := r.Group("/videos")
	{
		// Handler for GET /videos/top?metric=<name>&count=<n>
		videos.GET("/top", func(c *gin.Context) {
			metric := c.DefaultQuery("metric", "views")
			count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
			if err != nil {
				count = 10
			}
			out, err := svc.TopN(metric, count)
			if err != nil {
				var unknownMetric *model.UnknownMetricError
				if errors.As(err, &unknownMetric) {
					c.JSON(http.StatusBadRequest, gin.H{"error": unknownMetric.Error()})
					return
				}
				var notLoaded *model.NotLoadedError
				if errors.As(err, &notLoaded) {
					c.JSON(http.StatusConflict, gin.H{"error": notLoaded.Error()})
					return
				}
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}

	categories := r.Group("/categories")
	{
		// Handler for GET /categories/stats
		categories.GET("/stats", func(c *gin.Context) {
			out, err := svc.CategoryStats()
			if err != nil {
				var notLoaded *model.NotLoadedError
				if errors.As(err, &notLoaded) {
					c.JSON(http.StatusConflict, gin.H{"error": notLoaded.Error()})
					return
				}
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}

	// Handler for GET /summary. The summary never fails: before a dataset is
	// loaded it reports its no-data form.
	r.GET("/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Summary())
	})
}
