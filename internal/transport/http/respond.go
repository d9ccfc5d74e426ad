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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lightspeed-core/lightspeed-stack/internal/auth"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes the error body clients parse: {"detail": "..."}.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{
		"detail": detail,
	})
}

// authStatus maps authentication and authorization failures to HTTP status
// codes: missing or malformed credentials are the client's fault (400),
// rejected credentials are 401, and insufficient permission is 403.
func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrNoAuthHeader), errors.Is(err, auth.ErrNoTokenInHeader):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
