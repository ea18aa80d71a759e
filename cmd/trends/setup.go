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

// Package main contains the setup and initialization logic for the
// application's state. This file is responsible for creating and managing a
// centralized state manager that holds the shared dependencies: the loaded
// configuration, the Google Cloud service clients, and the dataset transport
// client.
//
// Functions:
//   - SetupOS: Configures the environment variables the configuration loader
//     uses to find the TOML files, without clobbering values the operator set.
//   - GetConfig: A singleton function that loads the application's
//     configuration from TOML files. It ensures the configuration is loaded
//     only once.
//   - InitState: The core initialization function that creates the service
//     clients and the Kaggle transport client.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/cloud"
)

// StateManager holds the shared dependencies for the application, acting as a
// centralized container for service clients and configuration. This avoids
// the need for scattered globals and makes dependency management cleaner.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	kaggleClient *cloud.KaggleClient
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the environment variables that the configuration loader uses
// to find the TOML files, unless the operator already set them.
//
// Outputs:
//   - error: An error if setting any of the environment variables fails.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// It ensures that the configuration is loaded from the file system only once.
// On the first call, it sets up the OS environment and loads the
// configuration from the TOML files. Subsequent calls return the cached
// configuration.
//
// Outputs:
//   - *cloud.Config: A pointer to the loaded application configuration struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the application state: the Google Cloud service
// clients required by the configured exports and the authenticated Kaggle
// transport client.
//
// Inputs:
//   - ctx: The root context.Context for the application, used for managing
//     the lifecycle of client connections.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	kaggleClient, err := cloud.NewKaggleClient(config)
	if err != nil {
		log.Fatalf("failed to create kaggle client: %v\n", err)
	}
	state.kaggleClient = kaggleClient
}
