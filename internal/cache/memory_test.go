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

package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightspeed-core/lightspeed-stack/internal/cache"
)

func entry(user, conv, query string, at time.Time) cache.Entry {
	return cache.Entry{
		UserID:         user,
		ConversationID: conv,
		Query:          query,
		Response:       "answer to " + query,
		Model:          "granite",
		StartedAt:      at,
		CompletedAt:    at.Add(time.Second),
	}
}

func TestMemoryStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(100)
	base := time.Now()

	require.NoError(t, store.Append(ctx, entry("alice", "conv-1", "first", base)))
	require.NoError(t, store.Append(ctx, entry("alice", "conv-1", "second", base.Add(time.Minute))))

	entries, err := store.Get(ctx, "alice", "conv-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Query)
	assert.Equal(t, "second", entries[1].Query)
}

func TestMemoryStore_GetEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(100)

	require.NoError(t, store.Append(ctx, entry("alice", "conv-1", "secret", time.Now())))

	_, err := store.Get(ctx, "bob", "conv-1")
	assert.ErrorIs(t, err, cache.ErrConversationNotFound)
}

func TestMemoryStore_ListIsPerUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(100)
	base := time.Now()

	require.NoError(t, store.Append(ctx, entry("alice", "conv-old", "q", base)))
	require.NoError(t, store.Append(ctx, entry("alice", "conv-new", "q", base.Add(time.Hour))))
	require.NoError(t, store.Append(ctx, entry("bob", "conv-bob", "q", base.Add(time.Minute))))

	conversations, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "conv-new", conversations[0].ConversationID)
	assert.Equal(t, "conv-old", conversations[1].ConversationID)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(100)

	require.NoError(t, store.Append(ctx, entry("alice", "conv-1", "q", time.Now())))

	assert.ErrorIs(t, store.Delete(ctx, "bob", "conv-1"), cache.ErrConversationNotFound)
	require.NoError(t, store.Delete(ctx, "alice", "conv-1"))

	_, err := store.Get(ctx, "alice", "conv-1")
	assert.ErrorIs(t, err, cache.ErrConversationNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "alice", "conv-1"), cache.ErrConversationNotFound)
}

func TestMemoryStore_EvictsOldestConversationWhenFull(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(3)
	base := time.Now()

	require.NoError(t, store.Append(ctx, entry("alice", "conv-1", "q1", base)))
	require.NoError(t, store.Append(ctx, entry("alice", "conv-2", "q2", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, entry("alice", "conv-3", "q3", base.Add(2*time.Minute))))
	require.NoError(t, store.Append(ctx, entry("alice", "conv-4", "q4", base.Add(3*time.Minute))))

	_, err := store.Get(ctx, "alice", "conv-1")
	assert.ErrorIs(t, err, cache.ErrConversationNotFound)

	_, err = store.Get(ctx, "alice", "conv-4")
	assert.NoError(t, err)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(10000)
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conv := fmt.Sprintf("conv-%d", n)
			for j := 0; j < 50; j++ {
				_ = store.Append(ctx, entry("alice", conv, "q", base.Add(time.Duration(j)*time.Second)))
			}
		}(i)
	}
	wg.Wait()

	conversations, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 8)
	for _, c := range conversations {
		assert.Equal(t, 50, c.MessageCount)
	}
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := cache.NewNoopStore()

	require.NoError(t, store.Append(ctx, entry("alice", "conv-1", "q", time.Now())))

	conversations, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, conversations)

	_, err = store.Get(ctx, "alice", "conv-1")
	assert.ErrorIs(t, err, cache.ErrConversationNotFound)
}
