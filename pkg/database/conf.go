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
	"time"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Conf is the database section of the service configuration.
type Conf struct {
	Driver string `mapstructure:"driver"`
	// DSN overrides the host/port/user fields when set. For sqlite it is the file path or a
	// "file::memory:" URI.
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`

	// Primary and Replicas are full DSNs registered with dbresolver.
	Primary  []string `mapstructure:"primary"`
	Replicas []string `mapstructure:"replicas"`

	MaxOpenConns int  `mapstructure:"maxOpenConns"`
	MaxIdleConns int  `mapstructure:"maxIdleConns"`
	MaxLifetime  int  `mapstructure:"maxLifetime"` // seconds
	MaxIdleTime  int  `mapstructure:"maxIdleTime"` // seconds
	OutPut       bool `mapstructure:"output"`
	SlowSQLMs    int  `mapstructure:"slowSqlMs"`
	AutoMigrate  bool `mapstructure:"autoMigrate"`
}

func (c *Conf) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMySQL
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		switch c.Driver {
		case DriverPostgres:
			c.Port = 5432
		default:
			c.Port = 3306
		}
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 50
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxLifetime <= 0 {
		c.MaxLifetime = 3600
	}
	if c.MaxIdleTime <= 0 {
		c.MaxIdleTime = 600
	}
	if c.SlowSQLMs <= 0 {
		c.SlowSQLMs = 500
	}
}

// PrimaryDSN builds the connection string for the configured driver.
func (c *Conf) PrimaryDSN() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName), nil
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.DBName), nil
	case DriverSQLite:
		return "", fmt.Errorf("sqlite requires dsn")
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func (c *Conf) connMaxLifetime() time.Duration {
	return time.Duration(c.MaxLifetime) * time.Second
}

func (c *Conf) connMaxIdleTime() time.Duration {
	return time.Duration(c.MaxIdleTime) * time.Second
}
