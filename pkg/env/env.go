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

// Package env reads typed values from LAUNCHPAD_* environment variables with
// a fallback when the variable is unset or malformed.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Prefix is prepended by the Key helper.
const Prefix = "LAUNCHPAD_"

// Key returns the prefixed variable name, e.g. Key("CLI_TIMEOUT") is LAUNCHPAD_CLI_TIMEOUT.
func Key(name string) string {
	return Prefix + strings.ToUpper(name)
}

func GetEnvString(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return value
		}
	}
	return def
}

func GetEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if value, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return value
		}
	}
	return def
}

func GetEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if value, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && value > 0 {
			return value
		}
	}
	return def
}

// GetEnvStringSlice splits a comma separated value, dropping blank entries.
// An all-blank value yields def.
func GetEnvStringSlice(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
