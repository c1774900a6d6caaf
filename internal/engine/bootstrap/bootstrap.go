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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arcentrix/launchpad/internal/engine/config"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/engine/router"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/metrics"
	"github.com/arcentrix/launchpad/pkg/trace"
	tracecontext "github.com/arcentrix/launchpad/pkg/trace/context"
)

type App struct {
	HttpApp       *fiber.App
	Scheduler     *orchestrator.Scheduler
	Engine        *orchestrator.Engine
	MetricsServer *metrics.Server
	AppConf       *config.AppConfig
	Repos         *repo.Repositories
}

// InitAppFunc init app function type
type InitAppFunc func(configPath string) (*App, func(), error)

func NewApp(
	rt *router.Router,
	logs logger.IManager,
	scheduler *orchestrator.Scheduler,
	engine *orchestrator.Engine,
	metricsServer *metrics.Server,
	appConf *config.AppConfig,
	db database.Manager,
	repos *repo.Repositories,
) (*App, func(), error) {
	if err := metricsServer.Register(orchestrator.RegisterSchedulerMetrics); err != nil {
		logger.Warnw("failed to register scheduler metrics", "error", err)
	}
	if appConf.Database.AutoMigrate {
		if err := repos.AutoMigrate(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	logger.Infow("logger ready", "channels", logs.Names())

	app := &App{
		HttpApp:       rt.Router(),
		Scheduler:     scheduler,
		Engine:        engine,
		MetricsServer: metricsServer,
		AppConf:       appConf,
		Repos:         repos,
	}

	cleanup := func() {
		// stop metrics server
		logger.Info("Shutting down metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Errorw("Failed to stop metrics server", "error", err)
		}

		if err := db.Close(); err != nil {
			logger.Errorw("Failed to close database", "error", err)
		}
		_ = logger.Sync()
	}

	return app, cleanup, nil
}

// Bootstrap init app, return App instance and cleanup function
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	// Wire build App (所有依赖都由 wire 自动注入)
	app, cleanup, err := initApp(configFile)
	if err != nil {
		return nil, nil, err
	}

	// Initialize OpenTelemetry Tracing (在 Run 之前，确保拦截器/中间件生效)
	shutdownTrace, err := trace.Init(context.Background(), &app.AppConf.Trace)
	if err != nil {
		// 如果 trace 初始化失败，清理已创建的资源
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}

	return app, func() {
		cleanup()
		// shutdown OpenTelemetry tracing
		logger.Info("Shutting down OpenTelemetry tracing...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTrace(ctx); err != nil {
			logger.Errorw("Failed to shutdown OpenTelemetry tracing", "error", err)
		}
	}, nil
}

// Run start app and wait for exit signal, then gracefully shutdown
func Run(app *App, cleanup func()) {
	appConf := app.AppConf
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	// start metrics server
	if err := app.MetricsServer.Start(); err != nil {
		logger.Errorw("Metrics server failed", "error", err)
	}

	if err := app.Scheduler.Start(ctx); err != nil {
		logger.Errorw("Scheduler failed to start", "error", err)
		cleanup()
		os.Exit(1)
	}

	// start HTTP server (async)
	go tracecontext.RunWithContext(ctx, func(context.Context) {
		addr := appConf.Http.Addr()
		logger.Infow("HTTP listener started",
			"address", addr,
		)
		if err := app.HttpApp.Listen(addr); err != nil {
			logger.Errorw("HTTP listener failed",
				"address", addr,
				"error", err,
			)
			stop()
		}
	})

	<-ctx.Done()
	logger.Info("Received shutdown signal, shutting down gracefully...")

	// close components in order
	app.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(appConf.Http.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := app.HttpApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown error", "error", err)
	} else {
		logger.Info("HTTP server shut down gracefully")
	}

	cleanup()

	logger.Info("Server shutdown complete")
}
