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
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/service"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/http/middleware"
)

func (rt *Router) stagingRouter(r fiber.Router, authMiddleware fiber.Handler) {
	r.Post("/releases/:releaseId/uploads", authMiddleware, rt.uploadArtifact)
	r.Get("/releases/:releaseId/uploads", authMiddleware, rt.listUploads)
	r.Get("/releases/:releaseId/uploads/status", authMiddleware, rt.stagingStatus)

	upload := r.Group("/uploads", authMiddleware)
	{
		upload.Put("/:uploadId", rt.replaceArtifact)
		upload.Delete("/:uploadId", rt.deleteArtifact)
		upload.Get("/:uploadId/url", rt.artifactURL)
	}
}

// uploadArtifact takes a multipart form: stage, platform, optional cycleId and file.
func (rt *Router) uploadArtifact(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errs.Validation("file", "is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return parseFailed(c)
	}
	defer f.Close()

	res, err := rt.Services.Staging.Upload(c.UserContext(), &service.UploadRequest{
		ReleaseId: c.Params("releaseId"),
		Stage:     model.Stage(strings.ToUpper(strings.TrimSpace(c.FormValue("stage")))),
		Platform:  model.Platform(strings.ToUpper(strings.TrimSpace(c.FormValue("platform")))),
		CycleId:   strings.TrimSpace(c.FormValue("cycleId")),
		FileName:  fh.Filename,
		Size:      fh.Size,
		Body:      f,
	})
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "upload artifact")
	c.Locals(middleware.DETAIL, res)
	return nil
}

func (rt *Router) replaceArtifact(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, errs.Validation("file", "is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return parseFailed(c)
	}
	defer f.Close()

	res, err := rt.Services.Staging.Replace(c.UserContext(), c.Params("uploadId"), fh.Filename, fh.Size, f)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "replace artifact")
	c.Locals(middleware.DETAIL, res)
	return nil
}

func (rt *Router) deleteArtifact(c *fiber.Ctx) error {
	uploadId := c.Params("uploadId")
	if err := rt.Services.Staging.Delete(c.UserContext(), uploadId); err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.OPERATION, "delete artifact")
	c.Locals(middleware.DETAIL, fiber.Map{"uploadId": uploadId})
	return nil
}

func (rt *Router) listUploads(c *fiber.Ctx) error {
	list, err := rt.Services.Staging.List(c.UserContext(), c.Params("releaseId"))
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.DETAIL, fiber.Map{"uploads": list, "count": len(list)})
	return nil
}

func (rt *Router) stagingStatus(c *fiber.Ctx) error {
	stage := model.Stage(strings.ToUpper(c.Query("stage", string(model.StageKickoff))))
	st, err := rt.Services.Staging.Status(c.UserContext(), c.Params("releaseId"), stage, c.Query("cycleId"))
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.DETAIL, st)
	return nil
}

func (rt *Router) artifactURL(c *fiber.Ctx) error {
	expiry := time.Duration(c.QueryInt("expirySeconds", 900)) * time.Second
	url, err := rt.Services.Staging.DownloadURL(c.UserContext(), c.Params("uploadId"), expiry)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.DETAIL, fiber.Map{"url": url, "expiresIn": int(expiry.Seconds())})
	return nil
}
