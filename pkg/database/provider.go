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

package database

import (
	"github.com/google/wire"
	"gorm.io/gorm"
)

// ProviderSet provides database-related dependencies.
var ProviderSet = wire.NewSet(
	ProvideManager,
	ProvideIDatabase,
)

// IDatabase is what repositories embed to reach the connection.
type IDatabase interface {
	Database() *gorm.DB
}

type databaseAdapter struct {
	db *gorm.DB
}

func (a *databaseAdapter) Database() *gorm.DB {
	return a.db
}

// NewDatabaseAdapter exposes a Manager as IDatabase.
func NewDatabaseAdapter(m Manager) IDatabase {
	return &databaseAdapter{db: m.DB()}
}

// Wrap exposes an already opened connection as IDatabase.
func Wrap(db *gorm.DB) IDatabase {
	return &databaseAdapter{db: db}
}

func ProvideManager(conf *Conf) (Manager, error) {
	return NewManager(*conf)
}

func ProvideIDatabase(m Manager) IDatabase {
	return NewDatabaseAdapter(m)
}
