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
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

// DefaultKeySetTTL is how long a fetched JWK set is served before it is
// refreshed.
const DefaultKeySetTTL = time.Hour

// KeySetCache holds a JSON Web Key Set fetched from a remote URL, refreshed
// at most once per TTL window. Concurrent refreshes are coalesced into a
// single in-flight fetch; readers holding a still-valid set never wait on a
// refresh.
type KeySetCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	set       jwk.Set
	expiresAt time.Time
}

// NewKeySetCache creates a cache for the key set published at url.
// A zero ttl means DefaultKeySetTTL.
func NewKeySetCache(url string, ttl time.Duration, client *http.Client) *KeySetCache {
	if ttl <= 0 {
		ttl = DefaultKeySetTTL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &KeySetCache{
		url:    url,
		ttl:    ttl,
		client: client,
		now:    time.Now,
	}
}

// Get returns the cached key set, fetching it when absent or expired.
func (c *KeySetCache) Get(ctx context.Context) (jwk.Set, error) {
	c.mu.RLock()
	set, expiresAt := c.set, c.expiresAt
	c.mu.RUnlock()
	if set != nil && c.now().Before(expiresAt) {
		return set, nil
	}

	v, err, _ := c.group.Do(c.url, func() (any, error) {
		// Re-check under the flight: a racing caller may have refreshed.
		c.mu.RLock()
		set, expiresAt := c.set, c.expiresAt
		c.mu.RUnlock()
		if set != nil && c.now().Before(expiresAt) {
			return set, nil
		}

		fetched, err := jwk.Fetch(ctx, c.url, jwk.WithHTTPClient(c.client))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch key set from %s: %w", c.url, err)
		}

		c.mu.Lock()
		c.set = fetched
		c.expiresAt = c.now().Add(c.ttl)
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}
