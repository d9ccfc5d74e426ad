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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Claim names used when the configuration does not override them.
const (
	DefaultUserIDClaim   = "sub"
	DefaultUsernameClaim = "preferred_username"
)

// JwkConfig holds the JWK-token identity provider settings.
type JwkConfig struct {
	// URL is where the JSON Web Key Set is published.
	URL string

	// Timeout bounds each key set fetch.
	Timeout time.Duration

	// CacheTTL overrides DefaultKeySetTTL.
	CacheTTL time.Duration

	// UserIDClaim names the claim carrying the caller's stable id.
	UserIDClaim string

	// UsernameClaim names the claim carrying the display name.
	UsernameClaim string
}

// JwkProvider validates JWT bearer tokens against a remote key set.
//
// A request without an Authorization header is given a guest identity
// instead of being rejected. This asymmetry with noop-with-token is
// deliberate: jwk-token deployments admit anonymous callers and rely on the
// access rules to fence off anything sensitive.
type JwkProvider struct {
	keys          *KeySetCache
	parser        *jwt.Parser
	userIDClaim   string
	usernameClaim string
}

var jwkSigningMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA"}

// NewJwkProvider creates a provider fetching keys from cfg.URL.
func NewJwkProvider(cfg JwkConfig) (*JwkProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("jwk_config.url is required for the jwk-token module")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userIDClaim := cfg.UserIDClaim
	if userIDClaim == "" {
		userIDClaim = DefaultUserIDClaim
	}
	usernameClaim := cfg.UsernameClaim
	if usernameClaim == "" {
		usernameClaim = DefaultUsernameClaim
	}

	return &JwkProvider{
		keys:          NewKeySetCache(cfg.URL, cfg.CacheTTL, &http.Client{Timeout: timeout}),
		parser:        jwt.NewParser(jwt.WithValidMethods(jwkSigningMethods)),
		userIDClaim:   userIDClaim,
		usernameClaim: usernameClaim,
	}, nil
}

// Authenticate verifies the request's JWT against the cached key set. A
// missing Authorization header yields a guest identity, not an error; a
// present but unverifiable token is rejected.
func (p *JwkProvider) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	raw, err := ExtractBearerToken(r)
	if errors.Is(err, ErrNoAuthHeader) {
		return &Identity{
			UserID:          DefaultUserID,
			Username:        DefaultUsername,
			SkipUserIDCheck: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	set, err := p.keys.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	token, err := p.parser.Parse(raw, keyFor(set))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", ErrUnauthorized)
	}

	userID, ok := claims[p.userIDClaim].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: token has no %s claim", ErrUnauthorized, p.userIDClaim)
	}
	username, _ := claims[p.usernameClaim].(string)
	if username == "" {
		username = userID
	}

	return &Identity{
		UserID:   userID,
		Username: username,
		Token:    raw,
		Claims:   map[string]any(claims),
	}, nil
}

func (p *JwkProvider) Name() string { return ModuleJwkToken }

// keyFor resolves the verification key for a token from the key set,
// preferring the kid header and falling back to a single-key set.
func keyFor(set jwk.Set) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		var key jwk.Key
		if kid, ok := t.Header["kid"].(string); ok && kid != "" {
			k, found := set.LookupKeyID(kid)
			if !found {
				return nil, fmt.Errorf("no key with id %q in key set", kid)
			}
			key = k
		} else if set.Len() == 1 {
			key, _ = set.Key(0)
		} else {
			return nil, fmt.Errorf("token has no kid header and key set holds %d keys", set.Len())
		}

		var raw any
		if err := key.Raw(&raw); err != nil {
			return nil, fmt.Errorf("failed to materialize verification key: %w", err)
		}
		return raw, nil
	}
}
