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
	"net/http"

	"github.com/lightspeed-core/lightspeed-stack/internal/audit"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/logger"
	"github.com/lightspeed-core/lightspeed-stack/internal/storage"
)

// feedbackRequest is the request body of /v1/feedback.
type feedbackRequest struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	UserQuestion   string   `json:"user_question,omitempty"`
	LLMResponse    string   `json:"llm_response,omitempty"`
	Sentiment      int      `json:"sentiment,omitempty"`
	UserFeedback   string   `json:"user_feedback,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

// SubmitFeedback stores one feedback submission.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	if !h.collector.FeedbackEnabled() {
		respondError(w, http.StatusForbidden, "Feedback is currently disabled")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid feedback payload")
		return
	}
	if req.UserFeedback == "" && req.Sentiment == 0 {
		respondError(w, http.StatusUnprocessableEntity, "Feedback must include a sentiment or a comment")
		return
	}

	identity := GetIdentity(r.Context())
	id, err := h.collector.StoreFeedback(storage.Feedback{
		UserID:         identity.UserID,
		ConversationID: req.ConversationID,
		UserQuestion:   req.UserQuestion,
		LLMResponse:    req.LLMResponse,
		Sentiment:      req.Sentiment,
		UserFeedback:   req.UserFeedback,
		Categories:     req.Categories,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Unable to store feedback")
		return
	}

	h.auditLogger.Record(r.Context(), audit.EventFeedbackStored, identity.UserID,
		logger.ConversationID(req.ConversationID),
		logger.String("feedback_id", id),
	)
	respondJSON(w, http.StatusOK, map[string]string{
		"response": "feedback received",
	})
}

// FeedbackStatus reports whether feedback collection is enabled.
func (h *Handler) FeedbackStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"functionality": "feedback",
		"status": map[string]bool{
			"enabled": h.collector.FeedbackEnabled(),
		},
	})
}
