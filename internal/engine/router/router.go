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
	"crypto/subtle"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/wire"

	"github.com/arcentrix/launchpad/internal/engine/service"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/http"
	"github.com/arcentrix/launchpad/pkg/http/middleware"
	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/metrics"
)

// ProviderSet provides the HTTP router.
var ProviderSet = wire.NewSet(NewRouter)

type Router struct {
	Http     *http.Http
	Services *service.Services
	Metrics  *metrics.Server
}

func NewRouter(httpConf *http.Http, services *service.Services, metricsServer *metrics.Server) *Router {
	return &Router{Http: httpConf, Services: services, Metrics: metricsServer}
}

// Router builds the fiber application with every route mounted.
func (rt *Router) Router() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:           "launchpad",
		BodyLimit:         rt.Http.BodyLimit,
		ReadTimeout:       time.Duration(rt.Http.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(rt.Http.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(rt.Http.IdleTimeout) * time.Second,
		JSONEncoder:       sonic.Marshal,
		JSONDecoder:       sonic.Unmarshal,
		StreamRequestBody: true,
		ErrorHandler:      errorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestIdMiddleware())
	app.Use(middleware.CorsMiddleware())
	app.Use(middleware.HttpMetricsMiddleware())
	if rt.Http.AccessLog {
		app.Use(middleware.AccessLogMiddleware())
	}
	app.Use(middleware.ResponseMiddleware())

	app.Get("/health", rt.health)
	if rt.Metrics != nil && rt.Metrics.Enabled() {
		app.Get(rt.Metrics.Path(), adaptor.HTTPHandler(rt.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	auth := rt.authMiddleware()
	rt.releaseRouter(api, auth)
	rt.stagingRouter(api, auth)
	rt.callbackRouter(api)
	return app
}

func (rt *Router) health(c *fiber.Ctx) error {
	c.Locals(middleware.DETAIL, fiber.Map{"status": "ok"})
	return nil
}

// authMiddleware guards operator routes with the admin bearer token, when one is set.
func (rt *Router) authMiddleware() fiber.Handler {
	token := rt.Http.AdminToken
	if token == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return http.WithRepErrMsg(c, http.Unauthorized.Code, http.Unauthorized.Msg, c.Path())
		},
	})
}

// respondError maps engine errors onto the response codes.
func respondError(c *fiber.Ctx, err error) error {
	code := http.Failed.Code
	switch {
	case errs.IsValidation(err):
		code = http.BadRequest.Code
	case errs.IsNotFound(err):
		code = http.NotFound.Code
	case errs.IsInvalidState(err), errs.IsConsumptionConflict(err):
		code = http.Conflict.Code
	case errs.IsExternal(err):
		code = http.BadGateway.Code
	case errors.Is(err, service.ErrUnauthorized):
		code = http.Unauthorized.Code
	default:
		logger.Channel("http").ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}
	return http.WithRepErrMsg(c, code, err.Error(), c.Path())
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return http.WithRepErrMsg(c, fe.Code, fe.Message, c.Path())
	}
	return respondError(c, err)
}

func parseFailed(c *fiber.Ctx) error {
	return http.WithRepErrMsg(c, http.RequestParameterParsingFailed.Code, http.RequestParameterParsingFailed.Msg, c.Path())
}
