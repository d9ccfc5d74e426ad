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

import "fmt"

// Action is a fixed permission identifier for one controllable operation.
// The set is closed at startup; access rules may only reference these names.
type Action string

const (
	ActionAdmin                    Action = "admin"
	ActionQuery                    Action = "query"
	ActionStreamingQuery           Action = "streaming_query"
	ActionQueryOtherConversations  Action = "query_other_conversations"
	ActionInfo                     Action = "info"
	ActionGetConfig                Action = "get_config"
	ActionGetModels                Action = "get_models"
	ActionListProviders            Action = "list_providers"
	ActionGetProvider              Action = "get_provider"
	ActionGetMetrics               Action = "get_metrics"
	ActionListConversations        Action = "list_conversations"
	ActionListOtherConversations   Action = "list_other_conversations"
	ActionGetConversation          Action = "get_conversation"
	ActionReadOtherConversations   Action = "read_other_conversations"
	ActionDeleteConversation       Action = "delete_conversation"
	ActionDeleteOtherConversations Action = "delete_other_conversations"
	ActionFeedback                 Action = "feedback"
	ActionModelOverride            Action = "model_override"
)

// AllActions enumerates every defined action. Admin-action grants are
// expanded against this list.
var AllActions = []Action{
	ActionAdmin,
	ActionQuery,
	ActionStreamingQuery,
	ActionQueryOtherConversations,
	ActionInfo,
	ActionGetConfig,
	ActionGetModels,
	ActionListProviders,
	ActionGetProvider,
	ActionGetMetrics,
	ActionListConversations,
	ActionListOtherConversations,
	ActionGetConversation,
	ActionReadOtherConversations,
	ActionDeleteConversation,
	ActionDeleteOtherConversations,
	ActionFeedback,
	ActionModelOverride,
}

// ParseAction validates a configured action name.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}
