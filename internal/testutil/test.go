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

// Package test provides utility functions and mock data to support the
// application's test suite. It helps in setting up a consistent test
// environment, loading test-specific configurations, and providing sample
// dataset payloads for the loader, cleaner, and aggregation tests.
package test

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/cloud"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs. This prevents the need to reload
// configuration files for every test, speeding up the test suite.
type StateManager struct {
	config *cloud.Config
}

// state is a package-level variable that holds the singleton instance of
// StateManager, ensuring that the configuration is loaded only once per test
// run.
var state = &StateManager{}

// HandleErr is a simple test helper function that checks if an error is not
// nil. If an error exists, it fails the test immediately by calling t.Errorf.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestTableCSV returns a small trending-video table payload exercising the
// interesting cleaning cases: a duplicate video id, a malformed view count, a
// row missing its title, an empty like count, and a category id written as an
// integral float.
//
// Returns:
//   - A string containing the CSV payload.
func GetTestTableCSV() string {
	return `video_id,title,category_id,views,likes,dislikes,comment_count
vid-001,First Look at the New Phone,28,1000000,50000,5000,12000
vid-002,Championship Highlights,17,500000,20000,1000,3000
vid-001,First Look at the New Phone,28,1000000,50000,5000,12000
vid-003,Cooking the Perfect Steak,26,not_a_number,1500,100,200
vid-004,,24,250000,9000,400,800
vid-005,Morning News Roundup,25,750000,,300,1500
vid-006,Indie Game Speedrun,20.0,2000000,150000,2500,30000
`
}

// GetTestCategoryNestedJSON returns a category mapping in the nested format,
// covering the categories the CSV sample references (plus one it does not).
//
// Returns:
//   - A string containing the JSON payload.
func GetTestCategoryNestedJSON() string {
	return `{
  "kind": "youtube#videoCategoryListResponse",
  "etag": "etag-001",
  "items": [
    { "kind": "youtube#videoCategory", "etag": "e1", "id": "17", "snippet": { "title": "Sports", "assignable": true } },
    { "kind": "youtube#videoCategory", "etag": "e2", "id": "20", "snippet": { "title": "Gaming", "assignable": true } },
    { "kind": "youtube#videoCategory", "etag": "e3", "id": "25", "snippet": { "title": "News & Politics", "assignable": true } },
    { "kind": "youtube#videoCategory", "etag": "e4", "id": "28", "snippet": { "title": "Science & Technology", "assignable": true } },
    { "kind": "youtube#videoCategory", "etag": "e5", "id": "1", "snippet": { "title": "Film & Animation", "assignable": true } }
  ]
}`
}

// GetTestCategoryFlatJSON returns the same category mapping in the flat
// format.
//
// Returns:
//   - A string containing the JSON payload.
func GetTestCategoryFlatJSON() string {
	return `{
  "17": "Sports",
  "20": "Gaming",
  "25": "News & Politics",
  "28": "Science & Technology",
  "1": "Film & Animation"
}`
}

// configDir locates the repository's configs directory by walking up from
// the working directory. Test binaries run inside their package directory,
// so a bare relative path would miss the files at the module root.
//
// Returns:
//   - The path of the first ancestor directory holding configs/.env.toml,
//     or "configs" when none is found.
func configDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "configs"
	}
	for {
		candidate := filepath.Join(dir, "configs")
		if _, err := os.Stat(filepath.Join(candidate, cloud.ConfigFileBaseName+cloud.ConfigFileExtension)); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "configs"
		}
		dir = parent
	}
}

// SetupOS configures the environment variables that the configuration loader
// (`cloud.LoadConfig`) depends on, directing it to the test-specific
// configuration files (e.g., `configs/.env.test.toml`).
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, configDir())
	if err != nil {
		return err
	}
	// The loader will look for ".env.test.toml" for overrides.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
// It ensures that the configuration is loaded from TOML files only once and
// is cached in the package-level `state` variable for subsequent calls.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
