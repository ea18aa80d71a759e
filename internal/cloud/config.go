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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, along with the remote-dataset transport and the
// Google Cloud service clients. This file centralizes the configuration
// structs. There is no process-wide settings object: the loaded Config is
// handed into each component at construction.
//
// Structs:
//   - KaggleDataset: Which dataset to fetch and the HTTP retry/rate policy.
//   - Storage: Optional GCS destination for rendered chart artifacts.
//   - BigQueryDataSource: Optional BigQuery destination for cleaned rows.
//   - Charts: Rendering dimensions and ranking depth.
//   - Config: The top-level aggregate.
//
// Functions:
//   - NewConfig: Constructor returning a Config with usable defaults.
package cloud

import "fmt"

// KaggleDataset identifies the remote dataset and the transport policy used
// to fetch it.
type KaggleDataset struct {
	BaseURL           string `toml:"base_url"`            // The Kaggle API root, e.g. "https://www.kaggle.com/api/v1".
	OwnerSlug         string `toml:"owner_slug"`          // The dataset owner, e.g. "datasnaek".
	DatasetSlug       string `toml:"dataset_slug"`        // The dataset name, e.g. "youtube-new".
	DatasetVersion    string `toml:"dataset_version"`     // The pinned dataset version number.
	CSVFileName       string `toml:"csv_file_name"`       // The table payload inside the archive, e.g. "GBvideos.csv".
	JSONFileName      string `toml:"json_file_name"`      // The category mapping inside the archive, e.g. "GB_category_id.json".
	CredentialsFile   string `toml:"credentials_file"`    // Optional explicit kaggle.json path; the usual lookup runs when empty.
	MaxRetries        int    `toml:"max_retries"`         // Bounded retry count for transient HTTP failures.
	TimeoutSeconds    int    `toml:"timeout_seconds"`     // Per-request timeout.
	RequestsPerSecond int    `toml:"requests_per_second"` // Client-side rate limit against the API.
}

// DownloadURL returns the archive download endpoint for the configured
// dataset and version.
func (k *KaggleDataset) DownloadURL() string {
	return fmt.Sprintf("%s/datasets/download/%s/%s?datasetVersionNumber=%s",
		k.BaseURL, k.OwnerSlug, k.DatasetSlug, k.DatasetVersion)
}

// ViewURL returns the dataset metadata endpoint, used for version lookup.
func (k *KaggleDataset) ViewURL() string {
	return fmt.Sprintf("%s/datasets/view/%s/%s", k.BaseURL, k.OwnerSlug, k.DatasetSlug)
}

// Storage configures the optional chart-artifact export. An empty bucket
// disables the export entirely.
type Storage struct {
	ChartBucket         string `toml:"chart_bucket"`           // Destination bucket for rendered charts.
	SignedURLTTLMinutes int    `toml:"signed_url_ttl_minutes"` // Lifetime of the signed URLs logged per artifact.
}

// BigQueryDataSource configures the optional cleaned-row export. An empty
// dataset name disables the export.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`      // The BigQuery dataset name.
	VideosTable string `toml:"videos_table"` // The table receiving cleaned video rows.
}

// Charts configures the static chart rendering.
type Charts struct {
	Width         int `toml:"width"`           // Chart width in pixels.
	Height        int `toml:"height"`          // Chart height in pixels.
	TopVideoCount int `toml:"top_video_count"` // Ranking depth for the top-videos charts.
	TopCategories int `toml:"top_categories"`  // How many categories the category charts show.
}

// Config is the top-level application configuration, loaded from TOML files.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`                         // The application/service name, used in telemetry.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project for the optional exports.
		DataDir                   string `toml:"data_dir"`                     // Where downloaded payload files live.
		OutputDir                 string `toml:"output_dir"`                   // Where rendered charts are written.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Service account used for signing artifact URLs.
	} `toml:"application"`
	Kaggle             KaggleDataset      `toml:"kaggle"`
	Storage            Storage            `toml:"storage"`
	BigQueryDataSource BigQueryDataSource `toml:"big_query_data_source"`
	Charts             Charts             `toml:"charts"`
}

// NewConfig creates a Config with defaults that let a run work from an
// empty configuration directory: the public trending dataset, conservative
// retry and rate limits, and local data/output directories.
func NewConfig() *Config {
	out := &Config{
		Kaggle: KaggleDataset{
			BaseURL:           "https://www.kaggle.com/api/v1",
			OwnerSlug:         "datasnaek",
			DatasetSlug:       "youtube-new",
			DatasetVersion:    "115",
			CSVFileName:       "GBvideos.csv",
			JSONFileName:      "GB_category_id.json",
			MaxRetries:        3,
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
		},
		Storage: Storage{SignedURLTTLMinutes: 60},
		Charts:  Charts{Width: 1200, Height: 800, TopVideoCount: 10, TopCategories: 10},
	}
	out.Application.Name = "trend-analysis"
	out.Application.DataDir = "data"
	out.Application.OutputDir = "outputs"
	return out
}
