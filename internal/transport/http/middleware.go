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

package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lightspeed-core/lightspeed-stack/internal/audit"
	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// MetricsMiddleware records the call counter and duration histogram for
// every request. Labels carry the chi route pattern, not the raw URL path:
// path parameters like conversation ids would otherwise mint an unbounded
// number of label values.
func (h *Handler) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// The pattern is only known after routing has happened.
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		h.metrics.RESTCalls.WithLabelValues(pattern, strconv.Itoa(ww.Status())).Inc()
		h.metrics.ResponseSeconds.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

// Authorize authenticates the request and checks that the caller may
// perform the given action. The resolved identity and roles are stored in
// the request context for handlers that need finer-grained checks.
func (h *Handler) Authorize(action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := h.authProvider.Authenticate(r.Context(), r)
			if err != nil {
				h.metrics.AuthFailures.WithLabelValues("authentication").Inc()
				h.auditLogger.Record(r.Context(), audit.EventAuthFailure, "",
					logger.Provider(h.authProvider.Name()),
					logger.Path(r.URL.Path),
				)
				respondError(w, authStatus(err), err.Error())
				return
			}

			roles := h.roleResolver.ResolveRoles(identity.Claims)
			if !h.accessResolver.IsAllowed(roles, action) {
				h.metrics.AuthFailures.WithLabelValues("authorization").Inc()
				h.auditLogger.Record(r.Context(), audit.EventAccessDenied, identity.UserID,
					logger.Action(string(action)),
					logger.Path(r.URL.Path),
				)
				respondError(w, http.StatusForbidden, "Forbidden: user does not have required permissions")
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = WithRoles(ctx, roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// allowed re-checks a secondary action for the caller already admitted by
// Authorize. Used where one endpoint covers both an ordinary and a
// privileged variant of an operation.
func (h *Handler) allowed(r *http.Request, action authz.Action) bool {
	roles := GetRoles(r.Context())
	if roles == nil {
		return false
	}
	return h.accessResolver.IsAllowed(roles, action)
}
