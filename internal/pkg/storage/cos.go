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
	"net/http"
	"net/url"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type cosStorage struct {
	client    *cos.Client
	secretId  string
	secretKey string
	basePath  string
}

func newCOS(c *Conf) (IStorage, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", c.Bucket, c.Region)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse cos endpoint: %w", err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{SecretID: c.AccessKey, SecretKey: c.SecretKey},
	})
	return &cosStorage{client: client, secretId: c.AccessKey, secretKey: c.SecretKey, basePath: c.BasePath}, nil
}

func (s *cosStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	fullPath := getFullPath(s.basePath, key)
	_, err := s.client.Object.Put(ctx, fullPath, r, &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType,
			ContentLength: size,
		},
	})
	if err != nil {
		return "", fmt.Errorf("cos put %s: %w", fullPath, err)
	}
	return fullPath, nil
}

func (s *cosStorage) Delete(ctx context.Context, fullKey string) error {
	_, err := s.client.Object.Delete(ctx, fullKey)
	return err
}

func (s *cosStorage) Exists(ctx context.Context, fullKey string) (bool, error) {
	return s.client.Object.IsExist(ctx, fullKey)
}

func (s *cosStorage) PresignedURL(ctx context.Context, fullKey string, expiry time.Duration) (string, error) {
	u, err := s.client.Object.GetPresignedURL(ctx, http.MethodGet, fullKey, s.secretId, s.secretKey, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
