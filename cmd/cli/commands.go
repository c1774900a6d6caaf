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

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/arcentrix/launchpad/internal/engine/bootstrap"
	"github.com/arcentrix/launchpad/internal/engine/config"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/env"
	"github.com/arcentrix/launchpad/pkg/logger"
)

// runtime is the subset of the server graph the commands need.
type runtime struct {
	Engine    *orchestrator.Engine
	Scheduler *orchestrator.Scheduler
	Repos     *repo.Repositories
}

func newRuntime(path string) (*runtime, func(), error) {
	conf := config.NewConf(path)
	if _, err := logger.ProvideManager(&conf.Log); err != nil {
		return nil, nil, err
	}
	db, err := database.ProvideManager(&conf.Database)
	if err != nil {
		return nil, nil, err
	}
	repos := repo.NewRepositories(database.ProvideIDatabase(db))
	notifier, closeNotifier, err := bootstrap.ProvideNotifier(conf)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	redis, closeRedis, err := bootstrap.ProvideRedis(conf)
	if err != nil {
		closeNotifier()
		_ = db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		closeRedis()
		closeNotifier()
		_ = db.Close()
		_ = logger.Sync()
	}
	opts, err := bootstrap.ProvideEngineOptions(conf, repos, notifier)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	engine := orchestrator.NewEngine(opts)
	return &runtime{
		Engine:    engine,
		Scheduler: orchestrator.NewScheduler(conf.Scheduler, engine, bootstrap.ProvideLocker(redis)),
		Repos:     repos,
	}, cleanup, nil
}

// withRuntime wraps a command body with runtime construction and a signal-aware context
// bounded by LAUNCHPAD_CLI_TIMEOUT.
func withRuntime(fn func(ctx context.Context, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, cleanup, err := newRuntime(configFile)
		if err != nil {
			return err
		}
		defer cleanup()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, env.GetEnvDuration(env.Key("CLI_TIMEOUT"), 5*time.Minute))
		defer cancel()
		return fn(ctx, rt, args)
	}
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single scheduler tick over every schedulable release",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, _ []string) error {
		return rt.Scheduler.TickOnce(ctx)
	}),
}

var output string

var describeCmd = &cobra.Command{
	Use:   "describe <releaseId>",
	Short: "Print a release with its cycles and tasks",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, args []string) error {
		view, err := rt.Engine.Describe(ctx, args[0])
		if err != nil {
			return err
		}
		out, err := sonic.ConfigStd.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		switch output {
		case "json":
		case "yaml":
			if out, err = yaml.JSONToYAML(out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown output format %q", output)
		}
		fmt.Println(string(out))
		return nil
	}),
}

func init() {
	describeCmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
}

var retryCmd = &cobra.Command{
	Use:   "retry <taskId>",
	Short: "Reset a failed task to PENDING",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, args []string) error {
		t, err := rt.Engine.RetryTask(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("task %s (%s) is %s\n", t.TaskId, t.TaskType, t.TaskStatus)
		return nil
	}),
}

var pauseCmd = &cobra.Command{
	Use:   "pause <releaseId>",
	Short: "Pause a running release",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, args []string) error {
		return rt.Engine.Pause(ctx, args[0])
	}),
}

var resumeCmd = &cobra.Command{
	Use:   "resume <releaseId>",
	Short: "Resume a paused release",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, args []string) error {
		return rt.Engine.Resume(ctx, args[0])
	}),
}
