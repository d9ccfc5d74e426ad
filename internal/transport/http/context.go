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
	"context"

	"github.com/lightspeed-core/lightspeed-stack/internal/auth"
	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	rolesKey    contextKey = "roles"
)

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated identity from the context, or nil
// when the request did not pass through the authorization middleware.
func GetIdentity(ctx context.Context) *auth.Identity {
	if val, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return val
	}
	return nil
}

// WithRoles stores the caller's resolved roles in the context.
func WithRoles(ctx context.Context, roles authz.RoleSet) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// GetRoles retrieves the caller's resolved roles from the context.
func GetRoles(ctx context.Context) authz.RoleSet {
	if val, ok := ctx.Value(rolesKey).(authz.RoleSet); ok {
		return val
	}
	return nil
}
