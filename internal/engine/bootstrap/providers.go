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

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/arcentrix/launchpad/internal/engine/config"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/integration/cicd"
	"github.com/arcentrix/launchpad/internal/pkg/integration/jira"
	"github.com/arcentrix/launchpad/internal/pkg/integration/testrail"
	"github.com/arcentrix/launchpad/internal/pkg/notify"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/storage"
	"github.com/arcentrix/launchpad/pkg/logger"

	// scm providers register themselves
	_ "github.com/arcentrix/launchpad/pkg/scm/github"
	_ "github.com/arcentrix/launchpad/pkg/scm/gitlab"
)

// ProviderSet builds the collaborators of the engine from the application config.
var ProviderSet = wire.NewSet(
	ProvideRedis,
	ProvideLocker,
	ProvideStorage,
	ProvideNotifier,
	ProvideEngineOptions,
)

// ProvideRedis returns nil when redis is disabled.
func ProvideRedis(c *config.AppConfig) (*redis.Client, func(), error) {
	if !c.Redis.Enabled {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		PoolSize: c.Redis.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", c.Redis.Addr, err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warnw("failed to close redis client", "error", err)
		}
	}
	return client, cleanup, nil
}

func ProvideLocker(client *redis.Client) *redislock.Client {
	if client == nil {
		return nil
	}
	return redislock.New(client)
}

// ProvideStorage returns nil when no bucket is configured; uploads are then refused.
func ProvideStorage(c *config.AppConfig) (storage.IStorage, error) {
	if c.Storage.Bucket == "" {
		logger.Warnw("artifact storage not configured, manual uploads are disabled")
		return nil, nil
	}
	return storage.NewStorage(context.Background(), &c.Storage)
}

func ProvideNotifier(c *config.AppConfig) (*notify.MultiNotifier, func(), error) {
	n, err := notify.New(c.Notify)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := n.Close(); err != nil {
			logger.Warnw("failed to close notifier", "error", err)
		}
	}
	return n, cleanup, nil
}

func ProvideEngineOptions(c *config.AppConfig, repos *repo.Repositories, notifier *notify.MultiNotifier) (orchestrator.Options, error) {
	if len(c.Scm) == 0 {
		return orchestrator.Options{}, errors.New("config: scm needs at least one provider")
	}
	if c.Tickets.BaseUrl == "" {
		return orchestrator.Options{}, errors.New("config: tickets.baseUrl is required")
	}
	if c.TestRuns.BaseUrl == "" {
		return orchestrator.Options{}, errors.New("config: testRuns.baseUrl is required")
	}
	sc, err := integration.NewScmSourceControl(c.Scm)
	if err != nil {
		return orchestrator.Options{}, err
	}
	opts := orchestrator.Options{
		Repos:     repos,
		Scm:       sc,
		Cicd:      cicd.NewDispatcher(c.Cicd),
		Tickets:   jira.New(c.Tickets),
		TestRuns:  testrail.New(c.TestRuns),
		Threshold: integration.NewThresholdEvaluator(),
	}
	if notifier != nil && notifier.Len() > 0 {
		opts.Notifier = notifier
	}
	return opts, nil
}
