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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arcentrix/launchpad/pkg/http/middleware"
	"github.com/arcentrix/launchpad/pkg/logger"
)

// ProviderSet is a Wire provider set for metrics
var ProviderSet = wire.NewSet(
	NewMetricsServer,
)

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// Port > 0 serves the registry on its own listener as well.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
}

// Server owns the registry every component registers into.
type Server struct {
	conf     MetricsConfig
	registry *prometheus.Registry
	srv      *http.Server
}

func NewServer(conf MetricsConfig) *Server {
	conf.SetDefaults()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{conf: conf, registry: registry}
}

// NewMetricsServer creates a new metrics server from config
func NewMetricsServer(config MetricsConfig) *Server {
	server := NewServer(config)
	// Register HTTP metrics
	if err := server.Register(middleware.RegisterHttpMetrics); err != nil {
		logger.Warnw("failed to register HTTP metrics", "error", err)
	}
	return server
}

// Register runs a component's registration function against the registry.
func (s *Server) Register(fn func(*prometheus.Registry) error) error {
	return fn(s.registry)
}

func (s *Server) GetRegistry() *prometheus.Registry {
	return s.registry
}

func (s *Server) Enabled() bool {
	return s.conf.Enabled
}

func (s *Server) Path() string {
	return s.conf.Path
}

// Handler exposes the registry in the Prometheus text format.
func (s *Server) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Start serves the registry on the dedicated port, if one is configured.
func (s *Server) Start() error {
	if !s.conf.Enabled || s.conf.Port <= 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(s.conf.Path, s.Handler())
	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.conf.Host, s.conf.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "address", s.srv.Addr, "error", err)
		}
	}()
	logger.Infow("metrics server started", "address", s.srv.Addr, "path", s.conf.Path)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
