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

// Package repotest opens throwaway SQLite-backed repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/id"
)

// New returns migrated repositories over a private in-memory database.
func New(tb testing.TB) *repo.Repositories {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	m, err := database.NewManager(database.Conf{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, id.GetUlid()),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = m.Close() })

	repos := repo.NewRepositories(database.NewDatabaseAdapter(m))
	if err := repos.AutoMigrate(context.Background()); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return repos
}
