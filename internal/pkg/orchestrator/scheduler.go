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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/trace"
	tracecontext "github.com/arcentrix/launchpad/pkg/trace/context"
)

// SchedulerConfig configures the periodic tick.
type SchedulerConfig struct {
	// CronSpec accepts seconds and descriptors, e.g. "@every 1m" or "0 */1 * * * *".
	CronSpec        string `mapstructure:"cronSpec"`
	MaxParallel     int    `mapstructure:"maxParallel"`
	LeaseTTLSeconds int    `mapstructure:"leaseTtlSeconds"`
	// Owner identifies this instance in leases; defaults to the host name.
	Owner      string `mapstructure:"owner"`
	LockPrefix string `mapstructure:"lockPrefix"`
}

func (c *SchedulerConfig) SetDefaults() {
	if c.CronSpec == "" {
		c.CronSpec = "@every 1m"
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = 8
	}
	if c.LeaseTTLSeconds <= 0 {
		c.LeaseTTLSeconds = 300
	}
	if c.Owner == "" {
		host, _ := os.Hostname()
		c.Owner = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if c.LockPrefix == "" {
		c.LockPrefix = "launchpad:release:"
	}
}

// Scheduler steps every schedulable release once per tick. Releases are stepped in
// parallel, each under a database lease and, when a locker is configured, a redis lock;
// the failure of one release never affects the others.
type Scheduler struct {
	engine *Engine
	cfg    SchedulerConfig
	locker *redislock.Client
	cron   *cron.Cron
	log    *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler builds a scheduler. locker may be nil for single-instance deployments.
func NewScheduler(cfg SchedulerConfig, engine *Engine, locker *redislock.Client) *Scheduler {
	cfg.SetDefaults()
	return &Scheduler{
		engine: engine,
		cfg:    cfg,
		locker: locker,
		log:    logger.Channel("scheduler"),
	}
}

// TickOnce steps all schedulable releases and returns once every step has finished.
// Only a failure to list releases is returned; per-release errors are logged.
func (s *Scheduler) TickOnce(ctx context.Context) error {
	ctx, span := trace.Tracer().Start(ctx, "scheduler.tick")
	defer span.End()
	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	jobs, err := s.engine.repos.CronJob.ListSchedulable(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("list schedulable releases: %w", err)
	}
	span.SetAttributes(attribute.Int("releases", len(jobs)))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxParallel)
	for _, job := range jobs {
		releaseId := job.ReleaseId
		g.Go(func() error {
			tracecontext.RunWithContext(ctx, func(ctx context.Context) {
				releaseSteps.WithLabelValues(s.stepRelease(ctx, releaseId)).Inc()
			})
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) stepRelease(ctx context.Context, releaseId string) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "release step panicked", "releaseId", releaseId, "panic", r)
			outcome = outcomeError
		}
	}()

	ttl := time.Duration(s.cfg.LeaseTTLSeconds) * time.Second
	now := s.engine.clock.Now().UnixMilli()
	ok, err := s.engine.repos.CronJob.AcquireLease(ctx, releaseId, s.cfg.Owner, now, ttl.Milliseconds())
	if err != nil {
		s.log.ErrorContext(ctx, "acquire release lease failed", "releaseId", releaseId, "error", err)
		return outcomeError
	}
	if !ok {
		return outcomeLeased
	}
	defer func() {
		if err := s.engine.repos.CronJob.ReleaseLease(context.WithoutCancel(ctx), releaseId, s.cfg.Owner); err != nil {
			s.log.WarnContext(ctx, "release lease not returned", "releaseId", releaseId, "error", err)
		}
	}()

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, s.cfg.LockPrefix+releaseId, ttl, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return outcomeLocked
		}
		if err != nil {
			s.log.ErrorContext(ctx, "obtain release lock failed", "releaseId", releaseId, "error", err)
			return outcomeError
		}
		defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()
	}

	if err := s.engine.Step(ctx, releaseId); err != nil {
		s.log.ErrorContext(ctx, "release step failed", "releaseId", releaseId, "error", err)
		return outcomeError
	}
	return outcomeStepped
}

// Start runs TickOnce on the configured schedule until Stop. A tick still running when
// the next one is due makes that one skip.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(s.cfg.CronSpec, func() {
		if err := s.TickOnce(ctx); err != nil {
			s.log.ErrorContext(ctx, "scheduler tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parse scheduler spec %q: %w", s.cfg.CronSpec, err)
	}
	c.Start()
	s.cron = c
	s.running = true
	s.log.InfoContext(ctx, "scheduler started", "spec", s.cfg.CronSpec, "owner", s.cfg.Owner)
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

