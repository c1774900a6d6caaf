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
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpLabels = []string{"method", "route", "status_class"}

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, httpLabels)

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served.",
	}, httpLabels)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
)

// RegisterHttpMetrics adds the request collectors to registry.
func RegisterHttpMetrics(registry *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{httpDuration, httpRequests, httpInFlight} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// HttpMetricsMiddleware records every request under its route template so
// artifact uploads on /releases/:releaseId/uploads share one series.
func HttpMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		httpInFlight.Inc()
		start := time.Now()
		err := c.Next()
		httpInFlight.Dec()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		labels := []string{c.Method(), route, statusClass(c, err)}
		httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(labels...).Inc()
		return err
	}
}

// statusClass reads the status the error handler is about to write when the
// chain returned an error.
func statusClass(c *fiber.Ctx, err error) string {
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}
	return strconv.Itoa(status/100) + "xx"
}
