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

// This file is responsible for initializing and holding the client objects
// needed to communicate with Google Cloud services. It acts as a dependency
// injection container, creating a single, shared `ServiceClients` struct that
// can be passed throughout the application.
//
// The exports are optional: an analysis run with no chart bucket and no
// BigQuery dataset configured never touches Google Cloud, so the factory only
// creates the clients the configuration actually calls for.
//
// Structs:
//   - ServiceClients: A container struct holding the initialized Google Cloud
//     service clients, acting as a central state manager for external
//     connections.
//
// Functions:
//   - Close: A convenience method to gracefully shut down all client connections.
//   - NewCloudServiceClients: A factory function that creates and configures
//     the Google Cloud clients the configuration requires.
package cloud

import (
	"context"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
)

// ServiceClients is a struct that acts as a central container for the clients
// that interact with external Google Cloud services. This pattern is a form of
// dependency injection, making it easy to manage and share these client
// connections across the entire application. Any client whose export is not
// configured stays nil.
type ServiceClients struct {
	StorageClient  *storage.Client                   // Client for Google Cloud Storage (GCS), used for chart artifacts.
	BigQueryClient *bigquery.Client                  // Client for Google Cloud BigQuery, used for cleaned-row persistence.
	IAMClient      *credentials.IamCredentialsClient // Client for IAM to sign things like GCS URLs.
}

// Close is a utility method to gracefully shut down all the active client
// connections. While client connections are typically managed by the
// application's root context, this method provides an explicit way to release
// resources, which is especially useful in tests or for controlled shutdowns.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// NewCloudServiceClients is a factory function that initializes the Google
// Cloud service clients the provided configuration requires. It serves as the
// main entry point for setting up the application's external dependencies.
//
// Inputs:
//   - ctx: The root context.Context for the application, used to manage the
//     lifecycle of the clients.
//   - config: A pointer to the loaded application configuration (`Config`).
//
// Outputs:
//   - *ServiceClients: A pointer to the initialized ServiceClients struct.
//   - error: An error if any of the required clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{}

	// The storage client is only needed when chart artifacts are exported.
	if config.Storage.ChartBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		cloud.StorageClient = sc

		// Signed artifact URLs require the IAM credentials client to sign
		// on behalf of the configured service account.
		if config.Application.SignerServiceAccountEmail != "" {
			ic, err := credentials.NewIamCredentialsClient(ctx)
			if err != nil {
				return nil, err
			}
			cloud.IAMClient = ic
		}
	}

	// The BigQuery client is only needed when cleaned rows are persisted.
	if config.BigQueryDataSource.DatasetName != "" {
		bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			return nil, err
		}
		cloud.BigQueryClient = bc
	}

	return cloud, nil
}
