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

//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/arcentrix/launchpad/internal/engine/bootstrap"
	"github.com/arcentrix/launchpad/internal/engine/config"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/engine/router"
	"github.com/arcentrix/launchpad/internal/engine/service"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/metrics"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		// 配置层
		config.ProviderSet,
		// 日志层（依赖 config）
		logger.ProviderSet,
		// 数据库层（依赖 config）
		database.ProviderSet,
		// 仓储层（依赖 database）
		repo.ProviderSet,
		// 外部协作方、redis、对象存储（依赖 config, repo）
		bootstrap.ProviderSet,
		// 编排引擎与调度器
		orchestrator.ProviderSet,
		// 指标层
		metrics.ProviderSet,
		// 服务层（依赖 repo, engine, storage）
		service.ProviderSet,
		// 路由层（依赖 config, service, metrics）
		router.ProviderSet,
		// 应用层
		bootstrap.NewApp,
	))
}
