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
	"github.com/gofiber/fiber/v2"

	"github.com/arcentrix/launchpad/pkg/http/middleware"
)

const (
	signatureHeader = "X-Launchpad-Signature"
	tokenHeader     = "X-Launchpad-Token"
)

// callbackRouter takes build status reports from CI/CD. Requests are authenticated by
// signature, not by the admin token.
func (rt *Router) callbackRouter(r fiber.Router) {
	callback := r.Group("/callbacks")
	{
		callback.Post("/builds", rt.buildCallback)
	}
}

func (rt *Router) buildCallback(c *fiber.Ctx) error {
	res, err := rt.Services.Callback.Handle(c.UserContext(), c.Body(), c.Get(signatureHeader), c.Get(tokenHeader))
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(middleware.DETAIL, res)
	return nil
}
