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

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeySet = `{"keys":[{"kty":"oct","kid":"k1","k":"c2VjcmV0LXNlY3JldC1zZWNyZXQ"}]}`

func newCountingKeyServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testKeySet))
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches
}

func TestKeySetCache_FetchesOnceWithinTTL(t *testing.T) {
	srv, fetches := newCountingKeyServer(t)
	cache := NewKeySetCache(srv.URL, time.Hour, srv.Client())

	for range 5 {
		set, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, set.Len())
	}
	assert.Equal(t, int64(1), fetches.Load())
}

func TestKeySetCache_RefreshesAfterTTL(t *testing.T) {
	srv, fetches := newCountingKeyServer(t)
	cache := NewKeySetCache(srv.URL, time.Hour, srv.Client())

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())

	// Still inside the TTL window: served from cache.
	now = now.Add(59 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())

	// Past the TTL: one refresh.
	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestKeySetCache_CoalescesConcurrentFetches(t *testing.T) {
	var fetches atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testKeySet))
	}))
	t.Cleanup(srv.Close)

	cache := NewKeySetCache(srv.URL, time.Hour, srv.Client())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	// Give the goroutines time to pile onto the single flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())
}

func TestKeySetCache_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cache := NewKeySetCache(srv.URL, time.Hour, srv.Client())
	_, err := cache.Get(context.Background())
	assert.Error(t, err)
}
