// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsStorage struct {
	client   *gcs.Client
	bucket   string
	basePath string
}

func newGCS(ctx context.Context, c *Conf) (IStorage, error) {
	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &gcsStorage{client: client, bucket: c.Bucket, basePath: c.BasePath}, nil
}

func (g *gcsStorage) Upload(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	fullPath := getFullPath(g.basePath, key)
	w := g.client.Bucket(g.bucket).Object(fullPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", fullPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", fullPath, err)
	}
	return fullPath, nil
}

func (g *gcsStorage) Delete(ctx context.Context, fullKey string) error {
	return g.client.Bucket(g.bucket).Object(fullKey).Delete(ctx)
}

func (g *gcsStorage) Exists(ctx context.Context, fullKey string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(fullKey).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (g *gcsStorage) PresignedURL(_ context.Context, fullKey string, expiry time.Duration) (string, error) {
	return g.client.Bucket(g.bucket).SignedURL(fullKey, &gcs.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(expiry),
		Scheme:  gcs.SigningSchemeV4,
	})
}
