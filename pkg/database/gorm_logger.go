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
	"context"
	"errors"
	"time"

	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm"

	"github.com/arcentrix/launchpad/pkg/logger"
)

// gormLoggerAdapter routes gorm's logging through the service logger.
type gormLoggerAdapter struct {
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLoggerAdapter returns a gorm logger that reports queries slower than slowMs at WARN.
func NewGormLoggerAdapter(slowMs int, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{level: level, slow: time.Duration(slowMs) * time.Millisecond}
}

func (g *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormLoggerAdapter) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		logger.InfoContext(ctx, msg, "args", args)
	}
}

func (g *gormLoggerAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		logger.WarnContext(ctx, msg, "args", args)
	}
}

func (g *gormLoggerAdapter) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		logger.ErrorContext(ctx, msg, "args", args)
	}
}

func (g *gormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		logger.ErrorContext(ctx, "sql error", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.WarnContext(ctx, "slow sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		logger.DebugContext(ctx, "sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
