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
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossStorage struct {
	bucket   *oss.Bucket
	basePath string
}

func newOSS(c *Conf) (IStorage, error) {
	client, err := oss.New(c.Endpoint, c.AccessKey, c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}
	bucket, err := client.Bucket(c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open oss bucket %s: %w", c.Bucket, err)
	}
	return &ossStorage{bucket: bucket, basePath: c.BasePath}, nil
}

func (o *ossStorage) Upload(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	fullPath := getFullPath(o.basePath, key)
	if err := o.bucket.PutObject(fullPath, r, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("oss put %s: %w", fullPath, err)
	}
	return fullPath, nil
}

func (o *ossStorage) Delete(ctx context.Context, fullKey string) error {
	return o.bucket.DeleteObject(fullKey, oss.WithContext(ctx))
}

func (o *ossStorage) Exists(ctx context.Context, fullKey string) (bool, error) {
	return o.bucket.IsObjectExist(fullKey, oss.WithContext(ctx))
}

func (o *ossStorage) PresignedURL(_ context.Context, fullKey string, expiry time.Duration) (string, error) {
	return o.bucket.SignURL(fullKey, oss.HTTPGet, int64(expiry.Seconds()))
}
