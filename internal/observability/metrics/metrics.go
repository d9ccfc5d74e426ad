// Copyright 2026 The Lightspeed Core Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the service's Prometheus instrumentation. The
// registry is scraped through the /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument the service records into.
type Metrics struct {
	registry *prometheus.Registry

	RESTCalls       *prometheus.CounterVec
	AuthFailures    *prometheus.CounterVec
	LLMCalls        *prometheus.CounterVec
	LLMCallFailures prometheus.Counter
	ResponseSeconds *prometheus.HistogramVec
}

// New creates the registry and registers all instruments plus the standard
// Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RESTCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ls_rest_api_calls_total",
			Help: "REST API calls by path and status code.",
		}, []string{"path", "status_code"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ls_auth_failures_total",
			Help: "Authentication and authorization failures by reason.",
		}, []string{"reason"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ls_llm_calls_total",
			Help: "Calls forwarded to the inference service by model and provider.",
		}, []string{"provider", "model"}),
		LLMCallFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ls_llm_calls_failures_total",
			Help: "Failed calls to the inference service.",
		}),
		ResponseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ls_response_duration_seconds",
			Help:    "End-to-end request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RESTCalls,
		m.AuthFailures,
		m.LLMCalls,
		m.LLMCallFailures,
		m.ResponseSeconds,
	)
	return m
}

// Handler returns the scrape endpoint handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
