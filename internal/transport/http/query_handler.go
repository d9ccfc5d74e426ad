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
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
	"github.com/lightspeed-core/lightspeed-stack/internal/cache"
	"github.com/lightspeed-core/lightspeed-stack/internal/llamastack"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/logger"
	"github.com/lightspeed-core/lightspeed-stack/internal/storage"
)

// queryRequest is the request body of /v1/query and /v1/streaming_query.
type queryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	Model          string `json:"model,omitempty"`
	Provider       string `json:"provider,omitempty"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
}

// mcpHeadersName is the request header carrying per-request headers to
// forward to MCP tool servers, JSON-encoded.
const mcpHeadersName = "MCP-HEADERS"

// prepareQuery validates the request body and the caller's right to use
// overrides and foreign conversations. It returns the upstream request, or
// responds with the failure and returns false.
func (h *Handler) prepareQuery(w http.ResponseWriter, r *http.Request) (llamastack.QueryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		respondError(w, http.StatusUnprocessableEntity, "Missing or invalid query")
		return llamastack.QueryRequest{}, false
	}

	if (req.Model != "" || req.Provider != "") && !h.allowed(r, authz.ActionModelOverride) {
		respondError(w, http.StatusForbidden, "This instance does not permit overriding model/provider in the query request")
		return llamastack.QueryRequest{}, false
	}

	identity := GetIdentity(r.Context())
	if req.ConversationID != "" {
		owner, known := h.conversationOwner(r, req.ConversationID)
		if known && owner != identity.UserID && !h.allowed(r, authz.ActionQueryOtherConversations) {
			respondError(w, http.StatusForbidden, "Forbidden: user does not have required permissions")
			return llamastack.QueryRequest{}, false
		}
	}

	out := llamastack.QueryRequest{
		Query:          req.Query,
		ConversationID: req.ConversationID,
		Model:          req.Model,
		Provider:       req.Provider,
		SystemPrompt:   req.SystemPrompt,
	}

	if raw := r.Header.Get(mcpHeadersName); raw != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid MCP-HEADERS header")
			return llamastack.QueryRequest{}, false
		}
		out.MCPHeaders = headers
	}

	return out, true
}

// Query runs one blocking chat turn against the upstream service.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := h.prepareQuery(w, r)
	if !ok {
		return
	}
	identity := GetIdentity(r.Context())
	started := time.Now().UTC()

	resp, err := h.llama.Query(r.Context(), req, identity.Token)
	if err != nil {
		h.metrics.LLMCallFailures.Inc()
		slog.ErrorContext(r.Context(), "llama stack query failed",
			logger.Error(err),
			logger.UserID(identity.UserID),
		)
		respondError(w, http.StatusServiceUnavailable, "Unable to connect to Llama Stack")
		return
	}
	h.metrics.LLMCalls.WithLabelValues(resp.Provider, resp.Model).Inc()

	if resp.ConversationID == "" {
		resp.ConversationID = uuid.NewString()
	}
	h.recordExchange(r, req, resp, started)

	respondJSON(w, http.StatusOK, resp)
}

// StreamingQuery runs one chat turn and relays the upstream server-sent
// event stream verbatim.
func (h *Handler) StreamingQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := h.prepareQuery(w, r)
	if !ok {
		return
	}
	identity := GetIdentity(r.Context())

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		respondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	body, err := h.llama.StreamQuery(r.Context(), req, identity.Token)
	if err != nil {
		h.metrics.LLMCallFailures.Inc()
		respondError(w, http.StatusServiceUnavailable, "Unable to connect to Llama Stack")
		return
	}
	defer body.Close()
	h.metrics.LLMCalls.WithLabelValues(req.Provider, req.Model).Inc()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			flusher.Flush()
		}
		if readErr != nil {
			if readErr != io.EOF {
				slog.ErrorContext(r.Context(), "stream relay interrupted", logger.Error(readErr))
			}
			return
		}
	}
}

// recordExchange persists the completed turn into the conversation cache
// and, when enabled, the transcript archive. Persistence failures are
// logged but never fail the request that already has its answer.
func (h *Handler) recordExchange(r *http.Request, req llamastack.QueryRequest, resp *llamastack.QueryResponse, started time.Time) {
	identity := GetIdentity(r.Context())
	ctx := r.Context()

	err := h.conversations.Append(ctx, cache.Entry{
		UserID:         identity.UserID,
		ConversationID: resp.ConversationID,
		Query:          req.Query,
		Response:       resp.Response,
		Model:          resp.Model,
		Provider:       resp.Provider,
		StartedAt:      started,
		CompletedAt:    time.Now().UTC(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to cache conversation entry",
			logger.Error(err),
			logger.ConversationID(resp.ConversationID),
		)
	}

	if h.collector.TranscriptsEnabled() {
		if err := h.collector.StoreTranscript(storage.Transcript{
			UserID:         identity.UserID,
			ConversationID: resp.ConversationID,
			Query:          req.Query,
			Response:       resp.Response,
			Model:          resp.Model,
			Provider:       resp.Provider,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to store transcript", logger.Error(err))
		}
	}
}

// conversationOwner looks up which user owns a conversation. The second
// return is false when the conversation is unknown, which callers treat as
// "about to be created by this request".
func (h *Handler) conversationOwner(r *http.Request, conversationID string) (string, bool) {
	all, err := h.conversations.ListAll(r.Context())
	if err != nil {
		return "", false
	}
	for _, c := range all {
		if c.ConversationID == conversationID {
			return c.UserID, true
		}
	}
	return "", false
}
