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
)

// NoopProvider accepts every request. The caller may pick their own user_id
// via query parameter; nothing is verified. Intended for development and
// single-user deployments only.
type NoopProvider struct{}

// NewNoopProvider creates a no-op identity provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Authenticate never fails.
func (p *NoopProvider) Authenticate(_ context.Context, r *http.Request) (*Identity, error) {
	userID := userIDParam(r)
	if userID == "" {
		userID = DefaultUserID
	}

	return &Identity{
		UserID:          userID,
		Username:        DefaultUsername,
		SkipUserIDCheck: true,
	}, nil
}

func (p *NoopProvider) Name() string { return ModuleNoop }

// NoopWithTokenProvider requires a syntactically valid bearer token but does
// not validate its signature or claims. The token is retained on the
// Identity so downstream calls can pass it through to the inference service.
type NoopWithTokenProvider struct{}

// NewNoopWithTokenProvider creates a no-op provider that insists on a
// bearer token being present.
func NewNoopWithTokenProvider() *NoopWithTokenProvider {
	return &NoopWithTokenProvider{}
}

// Authenticate fails with ErrNoAuthHeader or ErrNoTokenInHeader when the
// Authorization header is absent or malformed; it never inspects the token
// beyond its shape.
func (p *NoopWithTokenProvider) Authenticate(_ context.Context, r *http.Request) (*Identity, error) {
	token, err := ExtractBearerToken(r)
	if err != nil {
		return nil, err
	}

	userID := userIDParam(r)
	if userID == "" {
		userID = DefaultUserID
	}

	return &Identity{
		UserID:          userID,
		Username:        DefaultUsername,
		Token:           token,
		SkipUserIDCheck: true,
	}, nil
}

func (p *NoopWithTokenProvider) Name() string { return ModuleNoopWithToken }
