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

// Package storage keeps uploaded build artifacts in object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// 存储类型常量
const (
	Minio = "minio"
	S3    = "s3"
	Oss   = "oss"
	Gcs   = "gcs"
	Cos   = "cos"
)

// Conf 存储配置
type Conf struct {
	Provider  string `mapstructure:"provider"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseTLS    bool   `mapstructure:"useTLS"`
	BasePath  string `mapstructure:"basePath"`
	// CredentialsFile is the service account key used by GCS.
	CredentialsFile string `mapstructure:"credentialsFile"`
	// PresignExpirySeconds bounds download links handed out by the API.
	PresignExpirySeconds int `mapstructure:"presignExpirySeconds"`
}

func (c *Conf) SetDefaults() {
	if c.Provider == "" {
		c.Provider = Minio
	}
	if c.BasePath == "" {
		c.BasePath = "artifacts"
	}
	if c.PresignExpirySeconds <= 0 {
		c.PresignExpirySeconds = 3600
	}
}

func (c *Conf) PresignExpiry() time.Duration {
	return time.Duration(c.PresignExpirySeconds) * time.Second
}

// IStorage is the object store behind artifact staging. Keys are relative to BasePath.
type IStorage interface {
	// Upload stores size bytes from r and returns the full object key.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, fullKey string) error
	Exists(ctx context.Context, fullKey string) (bool, error)
	PresignedURL(ctx context.Context, fullKey string, expiry time.Duration) (string, error)
}

// NewStorage 根据配置创建存储提供者实例
func NewStorage(ctx context.Context, c *Conf) (IStorage, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	switch c.Provider {
	case Minio:
		return newMinio(c)
	case S3:
		return newS3(ctx, c)
	case Oss:
		return newOSS(c)
	case Gcs:
		return newGCS(ctx, c)
	case Cos:
		return newCOS(c)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.Provider)
	}
}

// getFullPath 组合 BasePath 和 objectName，返回完整的对象路径
func getFullPath(basePath, objectName string) string {
	basePath = strings.Trim(basePath, "/")
	objectName = strings.TrimPrefix(objectName, "/")
	if basePath == "" {
		return objectName
	}
	return path.Join(basePath, objectName)
}
