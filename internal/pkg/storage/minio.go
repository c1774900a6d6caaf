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
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioStorage struct {
	client   *minio.Client
	bucket   string
	basePath string
}

func newMinio(c *Conf) (IStorage, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseTLS,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &minioStorage{client: client, bucket: c.Bucket, basePath: c.BasePath}, nil
}

func (m *minioStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	fullPath := getFullPath(m.basePath, key)
	_, err := m.client.PutObject(ctx, m.bucket, fullPath, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", fullPath, err)
	}
	return fullPath, nil
}

func (m *minioStorage) Delete(ctx context.Context, fullKey string) error {
	return m.client.RemoveObject(ctx, m.bucket, fullKey, minio.RemoveObjectOptions{})
}

func (m *minioStorage) Exists(ctx context.Context, fullKey string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, fullKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

func (m *minioStorage) PresignedURL(ctx context.Context, fullKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, fullKey, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
