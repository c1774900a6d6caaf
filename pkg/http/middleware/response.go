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
	"github.com/gofiber/fiber/v2"

	"github.com/arcentrix/launchpad/pkg/http"
)

const (
	// DETAIL holds the payload a handler wants wrapped in the success envelope.
	DETAIL = "detail"
	// OPERATION names the operator action of a request, for the audit log.
	OPERATION = "operation"
)

// ResponseMiddleware wraps c.Locals(DETAIL) into the success envelope when the handler
// wrote no body of its own.
func ResponseMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if len(c.Response().Body()) > 0 {
			return nil
		}
		return http.WithRepDetail(c, c.Locals(DETAIL))
	}
}
