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
	"github.com/rs/xid"
)

const (
	// RequestIdHeader carries the request id in and out.
	RequestIdHeader = "X-Request-Id"
	// REQUEST_ID is the Locals key of the request id.
	REQUEST_ID = "requestId"
)

// RequestIdMiddleware keeps an inbound X-Request-Id or assigns a fresh xid,
// echoing it on the response.
func RequestIdMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIdHeader)
		if id == "" || len(id) > 64 {
			id = xid.New().String()
		}
		c.Locals(REQUEST_ID, id)
		c.Set(RequestIdHeader, id)
		return c.Next()
	}
}

// RequestId returns the id assigned by RequestIdMiddleware, or "".
func RequestId(c *fiber.Ctx) string {
	id, _ := c.Locals(REQUEST_ID).(string)
	return id
}
