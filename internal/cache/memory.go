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

package cache

import (
	"context"
	"sort"
	"sync"
)

// DefaultMaxEntries bounds the in-memory store when no limit is configured.
const DefaultMaxEntries = 1000

// MemoryStore keeps conversations in process memory. Entries beyond the
// configured limit evict the oldest conversation. Intended for development
// and single-replica deployments; state is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	maxEntries int
	entries    map[string][]Entry // keyed by conversation ID
	owner      map[string]string  // conversation ID -> user ID
	order      []string           // conversation IDs, oldest first
	total      int
}

// NewMemoryStore creates a bounded in-memory conversation store.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		entries:    make(map[string][]Entry),
		owner:      make(map[string]string),
	}
}

func (s *MemoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entry.ConversationID
	if _, ok := s.entries[id]; !ok {
		s.owner[id] = entry.UserID
		s.order = append(s.order, id)
	}
	s.entries[id] = append(s.entries[id], entry)
	s.total++

	for s.total > s.maxEntries && len(s.order) > 1 {
		s.evictOldest()
	}
	return nil
}

// evictOldest drops the oldest conversation. Caller holds the lock.
func (s *MemoryStore) evictOldest() {
	oldest := s.order[0]
	s.order = s.order[1:]
	s.total -= len(s.entries[oldest])
	delete(s.entries, oldest)
	delete(s.owner, oldest)
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Conversation
	for id, owner := range s.owner {
		if owner != userID {
			continue
		}
		out = append(out, s.summarize(id))
	}
	sortByRecency(out)
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0, len(s.owner))
	for id := range s.owner {
		out = append(out, s.summarize(id))
	}
	sortByRecency(out)
	return out, nil
}

// summarize builds the listing row for one conversation. Caller holds the
// lock.
func (s *MemoryStore) summarize(id string) Conversation {
	entries := s.entries[id]
	last := entries[len(entries)-1]
	return Conversation{
		ConversationID: id,
		UserID:         s.owner[id],
		LastUsedModel:  last.Model,
		LastMessageAt:  last.CompletedAt,
		MessageCount:   len(entries),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID, conversationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owner[conversationID]
	if !ok || owner != userID {
		return nil, ErrConversationNotFound
	}
	entries := s.entries[conversationID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owner[conversationID]
	if !ok || owner != userID {
		return ErrConversationNotFound
	}
	s.total -= len(s.entries[conversationID])
	delete(s.entries, conversationID)
	delete(s.owner, conversationID)
	for i, id := range s.order {
		if id == conversationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Ready(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortByRecency(conversations []Conversation) {
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
}
