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

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RespCode is a business response code with its default message.
type RespCode struct {
	Code int
	Msg  string
}

var (
	Success                       = RespCode{Code: 200, Msg: "success"}
	BadRequest                    = RespCode{Code: 400, Msg: "bad request"}
	Unauthorized                  = RespCode{Code: 401, Msg: "unauthorized"}
	NotFound                      = RespCode{Code: 404, Msg: "resource not found"}
	Conflict                      = RespCode{Code: 409, Msg: "conflict"}
	RequestParameterParsingFailed = RespCode{Code: 4001, Msg: "request parameter parsing failed"}
	Failed                        = RespCode{Code: 500, Msg: "failed"}
	BadGateway                    = RespCode{Code: 502, Msg: "upstream call failed"}
)

// Response is the envelope of every API answer.
type Response struct {
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Detail    any    `json:"detail,omitempty"`
	Path      string `json:"path,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// StatusOf maps a business code to its HTTP status.
func StatusOf(code int) int {
	switch {
	case code == RequestParameterParsingFailed.Code:
		return fiber.StatusBadRequest
	case code >= 100 && code < 600:
		return code
	default:
		return fiber.StatusInternalServerError
	}
}

// WithRepErrMsg writes an error envelope.
func WithRepErrMsg(c *fiber.Ctx, code int, msg, path string) error {
	return c.Status(StatusOf(code)).JSON(Response{
		Code:      code,
		Msg:       msg,
		Path:      path,
		Timestamp: time.Now().UnixMilli(),
	})
}

// WithRepDetail writes a success envelope around detail.
func WithRepDetail(c *fiber.Ctx, detail any) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Code:      Success.Code,
		Msg:       Success.Msg,
		Detail:    detail,
		Timestamp: time.Now().UnixMilli(),
	})
}
