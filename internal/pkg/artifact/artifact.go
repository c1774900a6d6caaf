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

// Package artifact validates manually uploaded build artifacts.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

var extensions = map[model.Platform][]string{
	model.PlatformAndroid: {".apk", ".aab"},
	model.PlatformIOS:     {".ipa"},
	model.PlatformWeb:     {".zip"},
}

var contentTypes = map[string]string{
	".apk": "application/vnd.android.package-archive",
	".aab": "application/octet-stream",
	".ipa": "application/octet-stream",
	".zip": "application/zip",
}

// ErrTooLarge is returned by Reader once more than the limit has been read.
var ErrTooLarge = errors.New("artifact exceeds size limit")

// Extensions lists the accepted file extensions of p.
func Extensions(p model.Platform) []string {
	return slices.Clone(extensions[p])
}

// ContentType returns the MIME type stored with the object.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Rules holds the limits applied to every upload.
type Rules struct {
	MaxSizeBytes int64
}

// NewRules converts a megabyte limit; zero or less disables the limit.
func NewRules(maxSizeMB int) Rules {
	return Rules{MaxSizeBytes: int64(maxSizeMB) << 20}
}

// Validate checks the declared metadata of an upload before any bytes are stored.
// size may be -1 when the client did not declare it.
func (r Rules) Validate(p model.Platform, name string, size int64) error {
	if !p.Valid() {
		return errs.Validation("platform", "unknown platform %q", p)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.Validation("file", "artifact name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(extensions[p], ext) {
		return errs.Validation("file", "%s artifacts must be one of %s, got %q",
			p, strings.Join(extensions[p], ", "), ext)
	}
	if size == 0 {
		return errs.Validation("file", "artifact is empty")
	}
	if r.MaxSizeBytes > 0 && size > r.MaxSizeBytes {
		return errs.Validation("file", "artifact is %d bytes, limit is %d", size, r.MaxSizeBytes)
	}
	return nil
}

// ObjectKey is the storage key of an upload, unique per upload id.
func ObjectKey(releaseId string, stage model.Stage, p model.Platform, uploadId, name string) string {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(name)))
	return path.Join(releaseId, strings.ToLower(string(stage)), strings.ToLower(string(p)), uploadId, base)
}

// Reader hashes and counts bytes while they stream to storage.
type Reader struct {
	r     io.Reader
	h     hash.Hash
	n     int64
	limit int64
}

// NewReader wraps r; limit <= 0 disables the size check.
func NewReader(r io.Reader, limit int64) *Reader {
	return &Reader{r: r, h: sha256.New(), limit: limit}
}

func (d *Reader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
		if d.limit > 0 && d.n > d.limit {
			return n, fmt.Errorf("%w (%d bytes)", ErrTooLarge, d.limit)
		}
	}
	return n, err
}

// Size is the number of bytes read so far.
func (d *Reader) Size() int64 {
	return d.n
}

// Checksum is the hex SHA-256 of the bytes read so far.
func (d *Reader) Checksum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
