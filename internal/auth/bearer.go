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
	"net/http"
	"strings"
)

// ExtractBearerToken pulls the token out of the request's Authorization
// header. Pure parsing: the token is not interpreted or validated here.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoAuthHeader
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrNoTokenInHeader
	}

	return strings.TrimSpace(token), nil
}

// userIDParam reads the optional user_id query parameter consumed by the
// no-op family of providers.
func userIDParam(r *http.Request) string {
	return r.URL.Query().Get("user_id")
}
