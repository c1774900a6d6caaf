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

package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/arcentrix/launchpad/internal/pkg/integration/cicd"
	"github.com/arcentrix/launchpad/internal/pkg/integration/jira"
	"github.com/arcentrix/launchpad/internal/pkg/integration/testrail"
	"github.com/arcentrix/launchpad/internal/pkg/notify"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/storage"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/http"
	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/metrics"
	"github.com/arcentrix/launchpad/pkg/scm"
	"github.com/arcentrix/launchpad/pkg/trace"
)

type StagingConfig struct {
	// MaxArtifactSizeMB rejects larger uploads; 0 disables the limit.
	MaxArtifactSizeMB int `mapstructure:"maxArtifactSizeMB"`
}

func (c *StagingConfig) SetDefaults() {
	if c.MaxArtifactSizeMB == 0 {
		c.MaxArtifactSizeMB = 1024
	}
}

// RedisConfig backs the cross-instance release lock. Disabled means the database
// lease alone keeps releases single-stepped.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:6379"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
}

type AppConfig struct {
	Log       logger.MultiConf             `mapstructure:"log"`
	Http      http.Http                    `mapstructure:"http"`
	Database  database.Conf                `mapstructure:"database"`
	Redis     RedisConfig                  `mapstructure:"redis"`
	Scheduler orchestrator.SchedulerConfig `mapstructure:"scheduler"`
	Staging   StagingConfig                `mapstructure:"staging"`
	Storage   storage.Conf                 `mapstructure:"storage"`
	Scm       []scm.ProviderConfig         `mapstructure:"scm"`
	Cicd      cicd.Config                  `mapstructure:"cicd"`
	Tickets   jira.Config                  `mapstructure:"tickets"`
	TestRuns  testrail.Config              `mapstructure:"testRuns"`
	Notify    notify.Config                `mapstructure:"notify"`
	Metrics   metrics.MetricsConfig        `mapstructure:"metrics"`
	Trace     trace.Conf                   `mapstructure:"trace"`
}

// SetDefaults fills every section.
func (c *AppConfig) SetDefaults() {
	c.Log.SetDefaults()
	c.Http.SetDefaults()
	c.Database.SetDefaults()
	c.Redis.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Staging.SetDefaults()
	c.Storage.SetDefaults()
	c.Cicd.SetDefaults()
	c.Tickets.SetDefaults()
	c.TestRuns.SetDefaults()
	c.Notify.SetDefaults()
	c.Metrics.SetDefaults()
	c.Trace.SetDefaults()
}

var (
	cfg  AppConfig
	mu   sync.RWMutex // 保护配置的读写
	once sync.Once
)

func NewConf(confDir string) *AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	c := cfg
	return &c
}

// GetConfig 获取当前配置（用于热重载场景）
func GetConfig() AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadConfigFile load config file
func LoadConfigFile(confDir string) (AppConfig, error) {
	config := viper.New()
	config.SetConfigFile(confDir) //文件名
	config.SetEnvPrefix("LAUNCHPAD")
	config.AutomaticEnv()
	if err := config.ReadInConfig(); err != nil {
		return AppConfig{}, fmt.Errorf("failed to read configuration file: %w", err)
	}

	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		logger.Infow("The configuration changes, re-analyze the configuration file", "file", e.Name)
		var next AppConfig
		if err := config.Unmarshal(&next); err != nil {
			logger.Errorw("failed to unmarshal configuration file", "error", err, "file", e.Name)
			return
		}
		next.SetDefaults()
		// components built at startup keep their settings; readers of GetConfig see the new ones
		mu.Lock()
		cfg = next
		mu.Unlock()
		logger.Infow("configuration reloaded successfully", "file", e.Name)
	})

	var loaded AppConfig
	if err := config.Unmarshal(&loaded); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}
	loaded.SetDefaults()
	mu.Lock()
	cfg = loaded
	mu.Unlock()
	logger.Infow("config file loaded",
		"path", confDir,
	)

	return loaded, nil
}
