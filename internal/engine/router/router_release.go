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

package router

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/service"
	"github.com/arcentrix/launchpad/pkg/http/middleware"
)

func (rt *Router) releaseRouter(r fiber.Router, authMiddleware fiber.Handler) {
	release := r.Group("/releases", authMiddleware)
	{
		release.Post("/", rt.createRelease)
		release.Get("/", rt.listReleases)
		release.Get("/:releaseId", rt.describeRelease)

		release.Post("/:releaseId/start", rt.startRelease)
		release.Post("/:releaseId/pause", rt.pauseRelease)
		release.Post("/:releaseId/resume", rt.resumeRelease)
		release.Post("/:releaseId/stages", rt.triggerStage)

		release.Put("/:releaseId/slots", rt.updateSlots)
		release.Patch("/:releaseId/config", rt.updateCronConfig)

		release.Post("/:releaseId/cycles/:cycleId/abandon", rt.abandonCycle)
		release.Post("/:releaseId/tasks/:taskId/retry", rt.retryTask)
	}
}

func (rt *Router) createRelease(c *fiber.Ctx) error {
	var req service.CreateReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		return parseFailed(c)
	}
	req.Version = strings.TrimSpace(req.Version)
	r, err := rt.Services.Release.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "create release")
	c.Locals(middleware.DETAIL, r)
	return nil
}

func (rt *Router) listReleases(c *fiber.Ctx) error {
	var statuses []model.ReleaseStatus
	for s := range strings.SplitSeq(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, model.ReleaseStatus(strings.ToUpper(s)))
		}
	}
	list, err := rt.Services.Release.List(c.UserContext(), c.Query("tenantId"), statuses...)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.DETAIL, fiber.Map{"releases": list, "count": len(list)})
	return nil
}

func (rt *Router) describeRelease(c *fiber.Ctx) error {
	view, err := rt.Services.Release.Describe(c.UserContext(), c.Params("releaseId"))
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.DETAIL, view)
	return nil
}

func (rt *Router) startRelease(c *fiber.Ctx) error {
	return rt.releaseAction(c, "start release", rt.Services.Release.Start)
}

func (rt *Router) pauseRelease(c *fiber.Ctx) error {
	return rt.releaseAction(c, "pause release", rt.Services.Release.Pause)
}

func (rt *Router) resumeRelease(c *fiber.Ctx) error {
	return rt.releaseAction(c, "resume release", rt.Services.Release.Resume)
}

func (rt *Router) releaseAction(c *fiber.Ctx, operation string, fn func(ctx context.Context, releaseId string) error) error {
	releaseId := c.Params("releaseId")
	if err := fn(c.UserContext(), releaseId); err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, operation)
	c.Locals(middleware.DETAIL, fiber.Map{"releaseId": releaseId})
	return nil
}

func (rt *Router) triggerStage(c *fiber.Ctx) error {
	var req service.TriggerStageRequest
	if err := c.BodyParser(&req); err != nil {
		return parseFailed(c)
	}
	releaseId := c.Params("releaseId")
	if err := rt.Services.Release.TriggerStage(c.UserContext(), releaseId, &req); err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "trigger stage")
	c.Locals(middleware.DETAIL, fiber.Map{"releaseId": releaseId, "stage": req.Stage})
	return nil
}

func (rt *Router) updateSlots(c *fiber.Ctx) error {
	var req service.UpdateSlotsRequest
	if err := c.BodyParser(&req); err != nil {
		return parseFailed(c)
	}
	slots, err := rt.Services.Release.UpdateUpcomingSlots(c.UserContext(), c.Params("releaseId"), &req)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "update regression slots")
	c.Locals(middleware.DETAIL, fiber.Map{"upcomingRegressions": slots})
	return nil
}

func (rt *Router) updateCronConfig(c *fiber.Ctx) error {
	var overlay model.CronConfig
	if err := c.BodyParser(&overlay); err != nil {
		return parseFailed(c)
	}
	cfg, err := rt.Services.Release.UpdateCronConfig(c.UserContext(), c.Params("releaseId"), overlay)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "update cron config")
	c.Locals(middleware.DETAIL, cfg)
	return nil
}

func (rt *Router) abandonCycle(c *fiber.Ctx) error {
	releaseId, cycleId := c.Params("releaseId"), c.Params("cycleId")
	if err := rt.Services.Release.AbandonCycle(c.UserContext(), releaseId, cycleId); err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "abandon cycle")
	c.Locals(middleware.DETAIL, fiber.Map{"releaseId": releaseId, "cycleId": cycleId})
	return nil
}

func (rt *Router) retryTask(c *fiber.Ctx) error {
	task, err := rt.Services.Release.RetryTask(c.UserContext(), c.Params("releaseId"), c.Params("taskId"))
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "retry task")
	c.Locals(middleware.DETAIL, task)
	return nil
}
