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

package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arcentrix/launchpad/pkg/logger"
)

// SlowRequest is the latency above which a successful request is still logged.
var SlowRequest = 300 * time.Millisecond

// AccessLogMiddleware logs mutating operations named by handlers through
// Locals(OPERATION), plus every failed or slow request.
func AccessLogMiddleware() fiber.Handler {
	log := logger.Channel("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()
		ctx := c.UserContext()
		rid := RequestId(c)

		if op, ok := c.Locals(OPERATION).(string); ok && op != "" {
			log.InfoContext(ctx, "operation", "operation", op, "requestId", rid, "ip", c.IP(), "path", c.Path(), "status", status)
		}
		switch {
		case err != nil:
			log.WarnContext(ctx, "request failed", "requestId", rid, "method", c.Method(), "path", c.Path(), "latency", latency, "error", err)
		case status >= fiber.StatusBadRequest:
			log.WarnContext(ctx, "request rejected", "requestId", rid, "method", c.Method(), "path", c.Path(), "status", status, "latency", latency)
		case latency >= SlowRequest:
			log.InfoContext(ctx, "slow request", "requestId", rid, "method", c.Method(), "path", c.Path(), "status", status,
				"latency", latency, "bytes", len(c.Response().Body()))
		}
		return err
	}
}
