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

// Package cache persists conversation history so users can list and resume
// past conversations across requests.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConversationNotFound is returned when a conversation ID has no
	// stored entries for the requesting user.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Entry is one recorded exchange in a conversation.
type Entry struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	Model          string    `json:"model,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Conversation summarizes one stored conversation for listing.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	LastUsedModel  string    `json:"last_used_model,omitempty"`
	LastMessageAt  time.Time `json:"last_message_at"`
	MessageCount   int       `json:"message_count"`
}

// Store is the conversation cache. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append records one exchange.
	Append(ctx context.Context, entry Entry) error

	// List returns the conversations owned by userID, newest first.
	List(ctx context.Context, userID string) ([]Conversation, error)

	// ListAll returns every stored conversation, newest first.
	ListAll(ctx context.Context) ([]Conversation, error)

	// Get returns the entries of one conversation in insertion order.
	Get(ctx context.Context, userID, conversationID string) ([]Entry, error)

	// Delete removes one conversation and all its entries.
	Delete(ctx context.Context, userID, conversationID string) error

	// Ready reports whether the backing store is usable.
	Ready(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}

// NoopStore discards everything. It is the default when no cache is
// configured; conversation listing then always comes back empty.
type NoopStore struct{}

// NewNoopStore creates a no-op conversation store.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (s *NoopStore) Append(ctx context.Context, entry Entry) error {
	return nil
}

func (s *NoopStore) List(ctx context.Context, userID string) ([]Conversation, error) {
	return nil, nil
}

func (s *NoopStore) ListAll(ctx context.Context) ([]Conversation, error) {
	return nil, nil
}

func (s *NoopStore) Get(ctx context.Context, userID, conversationID string) ([]Entry, error) {
	return nil, ErrConversationNotFound
}

func (s *NoopStore) Delete(ctx context.Context, userID, conversationID string) error {
	return ErrConversationNotFound
}

func (s *NoopStore) Ready(ctx context.Context) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}
