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

// Package http is the REST surface of the gateway. Every versioned
// endpoint passes through the Authorize middleware; the action it is
// registered with decides who may call it.
package http

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lightspeed-core/lightspeed-stack/internal/audit"
	"github.com/lightspeed-core/lightspeed-stack/internal/auth"
	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
	"github.com/lightspeed-core/lightspeed-stack/internal/cache"
	"github.com/lightspeed-core/lightspeed-stack/internal/config"
	"github.com/lightspeed-core/lightspeed-stack/internal/llamastack"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/metrics"
	"github.com/lightspeed-core/lightspeed-stack/internal/storage"
)

// ServiceName and ServiceVersion identify the gateway in /v1/info.
const (
	ServiceName    = "lightspeed-stack"
	ServiceVersion = "0.3.0"
)

//go:embed openapi.json
var openAPISpec []byte

// Handler holds HTTP handlers and dependencies.
type Handler struct {
	cfg            *config.Config
	authProvider   auth.Provider
	roleResolver   authz.RoleResolver
	accessResolver authz.AccessResolver
	llama          llamastack.Client
	conversations  cache.Store
	collector      *storage.Collector
	metrics        *metrics.Metrics
	auditLogger    audit.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	cfg *config.Config,
	authProvider auth.Provider,
	roleResolver authz.RoleResolver,
	accessResolver authz.AccessResolver,
	llama llamastack.Client,
	conversations cache.Store,
	collector *storage.Collector,
	m *metrics.Metrics,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		cfg:            cfg,
		authProvider:   authProvider,
		roleResolver:   roleResolver,
		accessResolver: accessResolver,
		llama:          llama,
		conversations:  conversations,
		collector:      collector,
		metrics:        m,
		auditLogger:    auditLogger,
	}
}

// NewRouter creates the HTTP router.
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(h.MetricsMiddleware)
	r.Use(middleware.Recoverer)

	// Unversioned endpoints, no authorization.
	r.Get("/readiness", h.Readiness)
	r.Get("/liveness", h.Liveness)
	r.Get("/.well-known/openapi.json", h.OpenAPI)
	r.With(h.Authorize(authz.ActionGetMetrics)).Handle("/metrics", h.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(h.Authorize(authz.ActionQuery), middleware.Timeout(10*time.Minute)).
			Post("/query", h.Query)
		r.With(h.Authorize(authz.ActionStreamingQuery)).
			Post("/streaming_query", h.StreamingQuery)

		r.With(h.Authorize(authz.ActionInfo)).Get("/info", h.Info)
		r.With(h.Authorize(authz.ActionGetConfig)).Get("/config", h.GetConfig)
		r.With(h.Authorize(authz.ActionGetModels)).Get("/models", h.ListModels)
		r.With(h.Authorize(authz.ActionListProviders)).Get("/providers", h.ListProviders)
		r.With(h.Authorize(authz.ActionGetProvider)).Get("/providers/{provider_id}", h.GetProvider)

		r.With(h.Authorize(authz.ActionListConversations)).
			Get("/conversations", h.ListConversations)
		r.With(h.Authorize(authz.ActionGetConversation)).
			Get("/conversations/{conversation_id}", h.GetConversation)
		r.With(h.Authorize(authz.ActionDeleteConversation)).
			Delete("/conversations/{conversation_id}", h.DeleteConversation)

		r.With(h.Authorize(authz.ActionFeedback)).Post("/feedback", h.SubmitFeedback)
		r.With(h.Authorize(authz.ActionFeedback)).Get("/feedback/status", h.FeedbackStatus)
	})

	return r
}

// Info reports the service name and version.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"name":    ServiceName,
		"version": ServiceVersion,
	})
}

// GetConfig returns the running configuration with secrets removed.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": map[string]any{
			"host": h.cfg.Service.Host,
			"port": h.cfg.Service.Port,
		},
		"llama_stack": map[string]any{
			"url": h.cfg.LlamaStack.URL,
		},
		"authentication": map[string]any{
			"module": h.cfg.Authentication.Module,
		},
		"conversation_cache": map[string]any{
			"type": h.cfg.ConversationCache.Type,
		},
		"user_data_collection": map[string]any{
			"feedback_enabled":    h.cfg.UserDataCollection.FeedbackEnabled,
			"transcripts_enabled": h.cfg.UserDataCollection.TranscriptsEnabled,
		},
	})
}

// ListModels proxies the upstream model list.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.llama.ListModels(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Unable to retrieve list of models")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"models": models})
}

// ListProviders proxies the upstream provider list.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.llama.ListProviders(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Unable to retrieve list of providers")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

// GetProvider returns one upstream provider by ID.
func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	providers, err := h.llama.ListProviders(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Unable to retrieve list of providers")
		return
	}
	id := chi.URLParam(r, "provider_id")
	for _, p := range providers {
		if p.ProviderID == id {
			respondJSON(w, http.StatusOK, p)
			return
		}
	}
	respondError(w, http.StatusNotFound, "Provider not found")
}

// Readiness reports whether the gateway can serve queries: the upstream
// service and the conversation store must both be reachable.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.llama.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready":  false,
			"reason": "llama stack unavailable",
		})
		return
	}
	if err := h.conversations.Ready(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready":  false,
			"reason": "conversation cache unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ready": true, "reason": ""})
}

// Liveness always succeeds while the process is running.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"alive": true})
}

// OpenAPI serves the API description document.
func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(openAPISpec)
}
