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

import "errors"

// Authentication errors. The literal messages are part of the API contract:
// they are returned verbatim as the `detail` field of error responses and
// existing clients match on them.
var (
	// ErrNoAuthHeader is returned when a provider requires an Authorization
	// header and the request carries none.
	ErrNoAuthHeader = errors.New("No Authorization header found")

	// ErrNoTokenInHeader is returned when the Authorization header does not
	// follow the `Bearer <token>` shape.
	ErrNoTokenInHeader = errors.New("No token found in Authorization header")

	// ErrUnauthorized is returned when a credential is present but invalid,
	// expired, or cannot be verified (including upstream verification
	// failures, which deny by default).
	ErrUnauthorized = errors.New("Invalid or expired token")

	// ErrForbidden is returned when the credential is valid but the subject
	// lacks the required cluster permission.
	ErrForbidden = errors.New("Forbidden: user does not have required permissions")
)
