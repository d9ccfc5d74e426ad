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

// AccessResolver decides whether a set of roles permits an action.
type AccessResolver interface {
	IsAllowed(roles RoleSet, action Action) bool
}

// NoopAccessResolver grants every action. Active when no authorization
// section is configured.
type NoopAccessResolver struct{}

// NewNoopAccessResolver creates an access resolver that allows everything.
func NewNoopAccessResolver() *NoopAccessResolver {
	return &NoopAccessResolver{}
}

// IsAllowed always returns true.
func (r *NoopAccessResolver) IsAllowed(_ RoleSet, _ Action) bool { return true }

// RuleBasedAccessResolver answers set-membership queries against the
// configured access-rule table. Unlike role rules, there is no ordering or
// first-match semantics here.
type RuleBasedAccessResolver struct {
	// byRole maps a role to the actions it is granted.
	byRole map[string]map[Action]struct{}
}

// NewRuleBasedAccessResolver indexes the rule table by role. Rules sharing
// a role merge their action lists.
func NewRuleBasedAccessResolver(rules []AccessRule) *RuleBasedAccessResolver {
	byRole := make(map[string]map[Action]struct{}, len(rules))
	for _, rule := range rules {
		actions, ok := byRole[rule.Role]
		if !ok {
			actions = make(map[Action]struct{}, len(rule.Actions))
			byRole[rule.Role] = actions
		}
		for _, a := range rule.Actions {
			actions[a] = struct{}{}
		}
	}
	return &RuleBasedAccessResolver{byRole: byRole}
}

// IsAllowed returns true iff any of the caller's roles is granted the
// requested action, or is granted the admin action, which short-circuits to
// everything.
func (r *RuleBasedAccessResolver) IsAllowed(roles RoleSet, action Action) bool {
	for role := range roles {
		actions, ok := r.byRole[role]
		if !ok {
			continue
		}
		if _, ok := actions[action]; ok {
			return true
		}
		if _, ok := actions[ActionAdmin]; ok {
			return true
		}
	}
	return false
}
