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

// This file tests the ArtifactService's signing guard. The upload and
// listing paths need live GCS clients and are covered by integration runs.
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-trend-analysis/internal/core/services"
)

// TestSignedURLWithoutSigner verifies that a service configured with a
// bucket but no signer refuses to sign instead of dereferencing the missing
// IAM client. A bucket-only configuration is valid: uploads proceed and the
// caller treats the signing failure as the loss of a shareable link.
func TestSignedURLWithoutSigner(t *testing.T) {
	svc := &services.ArtifactService{Bucket: "trend-charts"}

	url, err := svc.SignedURL(context.Background(), "top_videos_views.png", time.Hour)
	require.Error(t, err)
	assert.Empty(t, url)
	assert.Contains(t, err.Error(), "no URL signer configured")
}

// TestSignedURLWithoutSignerEmail verifies the guard also covers a present
// IAM client with an empty signer identity.
func TestSignedURLWithoutSignerEmail(t *testing.T) {
	svc := &services.ArtifactService{Bucket: "trend-charts", SignerEmail: ""}

	_, err := svc.SignedURL(context.Background(), "category_engagement.png", time.Hour)
	assert.Error(t, err)
}
