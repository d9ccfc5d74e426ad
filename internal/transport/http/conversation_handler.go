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
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lightspeed-core/lightspeed-stack/internal/audit"
	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
	"github.com/lightspeed-core/lightspeed-stack/internal/cache"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/logger"
)

// ListConversations lists the caller's conversations. Callers holding
// list_other_conversations may list every user's conversations with
// ?user_id=... or ?all=true.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())

	if r.URL.Query().Get("all") == "true" {
		if !h.allowed(r, authz.ActionListOtherConversations) {
			respondError(w, http.StatusForbidden, "Forbidden: user does not have required permissions")
			return
		}
		conversations, err := h.conversations.ListAll(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Unable to list conversations")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
		return
	}

	userID := identity.UserID
	if requested := r.URL.Query().Get("user_id"); requested != "" && requested != identity.UserID {
		if !identity.SkipUserIDCheck && !h.allowed(r, authz.ActionListOtherConversations) {
			respondError(w, http.StatusForbidden, "Forbidden: user does not have required permissions")
			return
		}
		userID = requested
	}

	conversations, err := h.conversations.List(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Unable to list conversations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// GetConversation returns the history of one conversation. Reading a
// conversation owned by another user requires read_other_conversations.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	conversationID := chi.URLParam(r, "conversation_id")

	owner := identity.UserID
	if actual, known := h.conversationOwner(r, conversationID); known && actual != identity.UserID {
		if !h.allowed(r, authz.ActionReadOtherConversations) {
			respondError(w, http.StatusForbidden, "Forbidden: user does not have required permissions")
			return
		}
		owner = actual
	}

	entries, err := h.conversations.Get(r.Context(), owner, conversationID)
	if err != nil {
		if errors.Is(err, cache.ErrConversationNotFound) {
			respondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Unable to retrieve conversation")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"chat_history":    entries,
	})
}

// DeleteConversation removes one conversation. Deleting a conversation
// owned by another user requires delete_other_conversations.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	conversationID := chi.URLParam(r, "conversation_id")

	owner := identity.UserID
	if actual, known := h.conversationOwner(r, conversationID); known && actual != identity.UserID {
		if !h.allowed(r, authz.ActionDeleteOtherConversations) {
			respondError(w, http.StatusForbidden, "Forbidden: user does not have required permissions")
			return
		}
		owner = actual
	}

	if err := h.conversations.Delete(r.Context(), owner, conversationID); err != nil {
		if errors.Is(err, cache.ErrConversationNotFound) {
			respondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Unable to delete conversation")
		return
	}

	h.auditLogger.Record(r.Context(), audit.EventConversationDeleted, identity.UserID,
		logger.ConversationID(conversationID),
	)
	respondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"success":         true,
	})
}
