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

package service

import (
	"github.com/google/wire"

	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/artifact"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/storage"
)

// ProviderSet 提供服务层相关的依赖
var ProviderSet = wire.NewSet(
	ProvideServices,
)

// Services groups the services the HTTP layer calls.
type Services struct {
	Release  *ReleaseService
	Staging  *StagingService
	Callback *CallbackService
}

// ProvideServices 提供统一的 Services 实例
func ProvideServices(
	repos *repo.Repositories,
	engine *orchestrator.Engine,
	store storage.IStorage,
	rules artifact.Rules,
	callbackSecret CallbackSecret,
) *Services {
	return &Services{
		Release:  NewReleaseService(repos, engine),
		Staging:  NewStagingService(repos, store, rules),
		Callback: NewCallbackService(engine, string(callbackSecret)),
	}
}
