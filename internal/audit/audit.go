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

// Package audit records security-relevant events. Audit records are
// distinct from diagnostic logs: they always carry the acting identity and
// are emitted regardless of log level.
package audit

import (
	"context"
	"log/slog"
)

// Event names the auditable occurrences in the gateway.
type Event string

const (
	EventAuthFailure         Event = "auth_failure"
	EventAccessDenied        Event = "access_denied"
	EventAdminGrant          Event = "admin_grant"
	EventFeedbackStored      Event = "feedback_stored"
	EventConversationDeleted Event = "conversation_deleted"
)

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, event Event, userID string, attrs ...slog.Attr)
}

// SlogLogger writes audit records through the global slog logger with a
// fixed marker attribute so they can be filtered downstream.
type SlogLogger struct{}

// NewSlogLogger creates a slog-backed audit logger.
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Record emits one audit record.
func (l *SlogLogger) Record(ctx context.Context, event Event, userID string, attrs ...slog.Attr) {
	all := make([]slog.Attr, 0, len(attrs)+3)
	all = append(all,
		slog.Bool("audit", true),
		slog.String("event", string(event)),
		slog.String("user_id", userID),
	)
	all = append(all, attrs...)
	slog.LogAttrs(ctx, slog.LevelInfo, "audit_event", all...)
}
