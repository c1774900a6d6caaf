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
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/arcentrix/launchpad/pkg/logger"
)

// Manager owns the service's single relational connection pool.
type Manager interface {
	DB() *gorm.DB
	Close() error
}

type managerImpl struct {
	db *gorm.DB
}

func (m *managerImpl) DB() *gorm.DB {
	return m.db
}

func (m *managerImpl) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", m.db.Dialector.Name(), err)
	}
	return nil
}

// NewManager opens the configured database and applies pool and resolver settings.
func NewManager(conf Conf) (Manager, error) {
	conf.SetDefaults()
	dsn, err := conf.PrimaryDSN()
	if err != nil {
		return nil, err
	}

	var gl gormlogger.Interface = gormlogger.Default.LogMode(gormlogger.Silent)
	if conf.OutPut {
		gl = NewGormLoggerAdapter(conf.SlowSQLMs, gormlogger.Info)
	}

	db, err := gorm.Open(dialector(conf.Driver, dsn), &gorm.Config{Logger: gl, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", conf.Driver, err)
	}

	if len(conf.Primary) > 0 || len(conf.Replicas) > 0 {
		rc := dbresolver.Config{TraceResolverMode: conf.OutPut}
		for _, d := range conf.Primary {
			rc.Sources = append(rc.Sources, dialector(conf.Driver, d))
		}
		for _, d := range conf.Replicas {
			rc.Replicas = append(rc.Replicas, dialector(conf.Driver, d))
		}
		err = db.Use(dbresolver.Register(rc).
			SetConnMaxIdleTime(conf.connMaxIdleTime()).
			SetConnMaxLifetime(conf.connMaxLifetime()).
			SetMaxIdleConns(conf.MaxIdleConns).
			SetMaxOpenConns(conf.MaxOpenConns))
		if err != nil {
			return nil, fmt.Errorf("failed to register dbresolver: %w", err)
		}
		logger.Infow("database read/write splitting enabled", "primary", len(conf.Primary), "replicas", len(conf.Replicas))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB handle: %w", err)
	}
	maxOpen := conf.MaxOpenConns
	if conf.Driver == DriverSQLite {
		// sqlite serializes writers; a single connection keeps in-memory databases shared.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(conf.connMaxLifetime())
	sqlDB.SetConnMaxIdleTime(conf.connMaxIdleTime())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping %s: %w", conf.Driver, err)
	}
	logger.Infow("database connected", "driver", conf.Driver)
	return &managerImpl{db: db}, nil
}

func dialector(driver, dsn string) gorm.Dialector {
	switch driver {
	case DriverPostgres:
		return postgres.Open(dsn)
	case DriverSQLite:
		return sqlite.Open(dsn)
	default:
		return mysql.Open(dsn)
	}
}
