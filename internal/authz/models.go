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

// Package authz derives roles from JWT claims and evaluates the access-rule
// table that decides which actions a caller may perform.
package authz

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ohler55/ojg/jp"
)

// Domain errors
var (
	ErrInvalidAction   = errors.New("invalid action")
	ErrInvalidOperator = errors.New("invalid role rule operator")
	ErrInvalidJSONPath = errors.New("invalid jsonpath expression")
	ErrInvalidPattern  = errors.New("invalid match pattern")
	ErrInvalidValue    = errors.New("invalid role rule value")
	ErrNoRoles         = errors.New("role rule grants no roles")
)

// WildcardRole is the reserved role every caller possesses. Note the
// asymmetry with ActionAdmin: `admin` is an action, never a role.
const WildcardRole = "*"

// RoleSet holds the roles derived for one request. Produced fresh per
// request; claims can change between tokens, so it is never cached.
type RoleSet map[string]struct{}

// NewRoleSet builds a set containing the given roles plus the wildcard.
func NewRoleSet(roles ...string) RoleSet {
	s := RoleSet{WildcardRole: {}}
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Role rule comparison operators.
const (
	OperatorEquals   = "equals"
	OperatorContains = "contains"
	OperatorIn       = "in"
	OperatorMatch    = "match"
)

// JwtRoleRule is one row of declarative role-derivation policy. Evaluation
// is pure and order-independent: every matching rule contributes its roles
// to the final set.
type JwtRoleRule struct {
	// JSONPath is evaluated against the decoded token claims. Evaluation
	// always yields a list, even for scalar targets.
	JSONPath string

	// Operator is one of the Operator* constants.
	Operator string

	// Value is the comparison operand. Its shape depends on the operator:
	// a list (possibly of lists) for equals, a string for contains and
	// match, a list for in.
	Value any

	// Negate inverts the match result before deciding whether to grant.
	Negate bool

	// Roles are granted when the (possibly negated) match holds.
	Roles []string

	path    jp.Expr
	pattern *regexp.Regexp
}

// Compile validates the rule and prepares its JSONPath expression and, for
// the match operator, its regular expression. Called once at configuration
// load so malformed rules fail at startup rather than per request.
func (r *JwtRoleRule) Compile() error {
	path, err := jp.ParseString(r.JSONPath)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidJSONPath, r.JSONPath, err)
	}
	r.path = path

	if len(r.Roles) == 0 {
		return ErrNoRoles
	}

	switch r.Operator {
	case OperatorEquals:
	case OperatorIn:
		if _, ok := r.Value.([]any); !ok {
			return fmt.Errorf("%w: operator %q requires a list value", ErrInvalidValue, r.Operator)
		}
	case OperatorContains:
		if _, ok := r.Value.(string); !ok {
			return fmt.Errorf("%w: operator %q requires a string value", ErrInvalidValue, r.Operator)
		}
	case OperatorMatch:
		pat, ok := r.Value.(string)
		if !ok {
			return fmt.Errorf("%w: operator %q requires a pattern string", ErrInvalidValue, r.Operator)
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pat, err)
		}
		r.pattern = re
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperator, r.Operator)
	}
	return nil
}

// AccessRule is one row of declarative authorization policy: the actions a
// single role (including the wildcard) is permitted.
type AccessRule struct {
	Role    string
	Actions []Action
}
