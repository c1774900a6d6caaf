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
	"github.com/google/wire"

	"github.com/arcentrix/launchpad/internal/engine/service"
	"github.com/arcentrix/launchpad/internal/pkg/artifact"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/http"
	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/metrics"
)

// ProviderSet splits the application config into the sections components take.
var ProviderSet = wire.NewSet(
	NewConf,
	ProvideHttp,
	ProvideDatabase,
	ProvideLog,
	ProvideScheduler,
	ProvideMetrics,
	ProvideArtifactRules,
	ProvideCallbackSecret,
)

func ProvideHttp(c *AppConfig) *http.Http {
	return &c.Http
}

func ProvideDatabase(c *AppConfig) *database.Conf {
	return &c.Database
}

func ProvideLog(c *AppConfig) *logger.MultiConf {
	return &c.Log
}

func ProvideScheduler(c *AppConfig) orchestrator.SchedulerConfig {
	return c.Scheduler
}

func ProvideMetrics(c *AppConfig) metrics.MetricsConfig {
	return c.Metrics
}

func ProvideArtifactRules(c *AppConfig) artifact.Rules {
	return artifact.NewRules(c.Staging.MaxArtifactSizeMB)
}

func ProvideCallbackSecret(c *AppConfig) service.CallbackSecret {
	return service.CallbackSecret(c.Http.CallbackSecret)
}
