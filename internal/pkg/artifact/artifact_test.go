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

package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

func TestValidate(t *testing.T) {
	rules := NewRules(1)
	tests := []struct {
		name     string
		platform model.Platform
		file     string
		size     int64
		ok       bool
	}{
		{"apk", model.PlatformAndroid, "app-release.apk", 10, true},
		{"aab upper case", model.PlatformAndroid, "APP.AAB", 10, true},
		{"ipa", model.PlatformIOS, "App.ipa", 10, true},
		{"zip", model.PlatformWeb, "site.zip", 10, true},
		{"unknown size", model.PlatformWeb, "site.zip", -1, true},
		{"ipa on android", model.PlatformAndroid, "App.ipa", 10, false},
		{"apk on ios", model.PlatformIOS, "app.apk", 10, false},
		{"no extension", model.PlatformWeb, "site", 10, false},
		{"empty", model.PlatformAndroid, "app.apk", 0, false},
		{"too large", model.PlatformAndroid, "app.apk", 2 << 20, false},
		{"bad platform", model.Platform("WATCH"), "app.apk", 10, false},
		{"no name", model.PlatformAndroid, " ", 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Validate(tt.platform, tt.file, tt.size)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestReaderChecksumAndLimit(t *testing.T) {
	data := []byte(strings.Repeat("launchpad", 100))
	r := NewReader(bytes.NewReader(data), 0)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), r.Checksum())
	assert.Equal(t, int64(len(data)), r.Size())

	r = NewReader(bytes.NewReader(data), 100)
	_, err = io.ReadAll(r)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestObjectKeyAndContentType(t *testing.T) {
	assert.Equal(t, "r1/regression/ios/u1/App.ipa", ObjectKey("r1", model.StageRegression, model.PlatformIOS, "u1", "../../App.ipa"))
	assert.Equal(t, "application/vnd.android.package-archive", ContentType("x.APK"))
	assert.Equal(t, "application/octet-stream", ContentType("x.bin"))
	assert.Equal(t, []string{".apk", ".aab"}, Extensions(model.PlatformAndroid))
}
