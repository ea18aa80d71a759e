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

// Package services contains the application services built on the core data
// model. This file defines the ArtifactService, which publishes rendered
// chart files to a Google Cloud Storage bucket and mints time-limited signed
// URLs for them, so a run's artifacts can be shared without exposing the
// bucket. The upload streams straight from disk, and signing goes through
// the IAM credentials SignBlob API using the configured service account.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// ArtifactService uploads chart artifacts to GCS and signs access URLs.
type ArtifactService struct {
	StorageClient *storage.Client                   // Client for Google Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Client for IAM SignBlob, used for URL signing.
	SignerEmail   string                            // Service account email the URLs are signed as.
	Bucket        string                            // Destination bucket for chart artifacts.
}

// Upload streams a local file into the configured bucket under its base
// name and returns the object name.
//
// Inputs:
//   - ctx: The context for the upload.
//   - path: The local path of the rendered chart file.
//
// Outputs:
//   - string: The created object's name.
//   - error: An error when the file cannot be read or the write fails.
func (s *ArtifactService) Upload(ctx context.Context, path string) (string, error) {
	dat, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer func() {
		if err := dat.Close(); err != nil {
			slog.Warn("failed to close artifact file", "path", path, "error", err)
		}
	}()

	object := filepath.Base(path)
	writer := s.StorageClient.Bucket(s.Bucket).Object(object).NewWriter(ctx)

	if _, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write artifact to gs://%s/%s: %w", s.Bucket, object, err)
	}
	// Close finalizes the upload; an unfinished writer leaves no object behind.
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize artifact gs://%s/%s: %w", s.Bucket, object, err)
	}

	slog.Info("uploaded chart artifact", "bucket", s.Bucket, "object", object)
	return object, nil
}

// SignedURL mints a V4 signed GET URL for an uploaded artifact. The signing
// bytes come from the IAM credentials SignBlob API, so no private key needs
// to live on the host.
//
// Inputs:
//   - ctx: The context for the signing call.
//   - object: The object name returned by Upload.
//   - expires: How long the URL stays valid.
//
// Outputs:
//   - string: The signed URL.
//   - error: An error when signing fails.
func (s *ArtifactService) SignedURL(ctx context.Context, object string, expires time.Duration) (string, error) {
	// A bucket can be configured without a signer. The upload still works;
	// only the shareable link is unavailable.
	if s.IAMClient == nil || s.SignerEmail == "" {
		return "", fmt.Errorf("no URL signer configured for gs://%s/%s: signer service account and IAM client are required", s.Bucket, object)
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodGet,
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	url, err := s.StorageClient.Bucket(s.Bucket).SignedURL(object, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for gs://%s/%s: %w", s.Bucket, object, err)
	}
	return url, nil
}

// ListCharts returns the names of the chart objects currently in the bucket.
//
// Inputs:
//   - ctx: The context for the listing.
//
// Outputs:
//   - []string: The object names found in the bucket.
//   - error: An error when the listing fails.
func (s *ArtifactService) ListCharts(ctx context.Context) ([]string, error) {
	var objects []string
	it := s.StorageClient.Bucket(s.Bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts in gs://%s: %w", s.Bucket, err)
		}
		objects = append(objects, attrs.Name)
	}
	return objects, nil
}
