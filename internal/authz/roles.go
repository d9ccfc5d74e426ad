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

package authz

import (
	"reflect"
	"strings"
)

// RoleResolver derives a RoleSet from decoded token claims.
type RoleResolver interface {
	ResolveRoles(claims map[string]any) RoleSet
}

// NoopRoleResolver grants only the universal wildcard role. Used for every
// provider that does not decode claims.
type NoopRoleResolver struct{}

// NewNoopRoleResolver creates a role resolver that knows no roles.
func NewNoopRoleResolver() *NoopRoleResolver {
	return &NoopRoleResolver{}
}

// ResolveRoles returns {"*"} unconditionally.
func (r *NoopRoleResolver) ResolveRoles(_ map[string]any) RoleSet {
	return NewRoleSet()
}

// JWTRoleResolver evaluates an ordered list of claim rules. Every rule that
// matches contributes its roles; the result is their union plus the
// wildcard. With no rules configured it degenerates to noop behavior.
type JWTRoleResolver struct {
	rules []JwtRoleRule
}

// NewJWTRoleResolver creates a rule-based role resolver. The rules must
// already be compiled (config load does this).
func NewJWTRoleResolver(rules []JwtRoleRule) *JWTRoleResolver {
	return &JWTRoleResolver{rules: rules}
}

// ResolveRoles runs every rule against the claims document.
func (r *JWTRoleResolver) ResolveRoles(claims map[string]any) RoleSet {
	set := NewRoleSet()
	if claims == nil {
		claims = map[string]any{}
	}
	for i := range r.rules {
		if r.rules[i].evaluate(claims) {
			for _, role := range r.rules[i].Roles {
				set[role] = struct{}{}
			}
		}
	}
	return set
}

// evaluate applies the rule's operator to the JSONPath match list. An empty
// match list is non-matching for every operator; negate then turns that
// into a match, which is the documented way to detect an absent claim.
func (r *JwtRoleRule) evaluate(claims map[string]any) bool {
	matched := r.path.Get(claims)

	result := false
	if len(matched) > 0 {
		switch r.Operator {
		case OperatorEquals:
			result = equalsMatch(matched, r.Value)
		case OperatorContains:
			result = containsMatch(matched, r.Value.(string))
		case OperatorIn:
			result = inMatch(matched, r.Value.([]any))
		case OperatorMatch:
			result = r.regexMatch(matched)
		}
	}
	if r.Negate {
		result = !result
	}
	return result
}

// equalsMatch compares the match list against the configured value. A
// single-element match list compares its element directly; otherwise the
// value must be a list equal to the whole match list (the list-of-lists
// shape for list-valued JSONPath results).
func equalsMatch(matched []any, value any) bool {
	if list, ok := value.([]any); ok && reflect.DeepEqual(matched, list) {
		return true
	}
	if len(matched) == 1 {
		return reflect.DeepEqual(matched[0], value)
	}
	return false
}

// containsMatch reports whether value occurs within any matched element:
// substring for strings, membership for lists.
func containsMatch(matched []any, value string) bool {
	for _, m := range matched {
		switch v := m.(type) {
		case string:
			if strings.Contains(v, value) {
				return true
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s == value {
					return true
				}
			}
		}
	}
	return false
}

// inMatch reports whether any matched value is a member of the configured
// list.
func inMatch(matched []any, values []any) bool {
	for _, m := range matched {
		for _, v := range values {
			if reflect.DeepEqual(m, v) {
				return true
			}
		}
	}
	return false
}

func (r *JwtRoleRule) regexMatch(matched []any) bool {
	for _, m := range matched {
		if s, ok := m.(string); ok && r.pattern.MatchString(s) {
			return true
		}
	}
	return false
}
