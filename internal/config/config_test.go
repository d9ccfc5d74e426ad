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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
	"github.com/lightspeed-core/lightspeed-stack/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lightspeed-stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MinimalConfig(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
`))
	require.NoError(t, err)

	assert.Equal(t, "noop", cfg.Authentication.Module)
	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, "noop", cfg.ConversationCache.Type)
	assert.Nil(t, cfg.Authorization)
	assert.Empty(t, cfg.RoleRules())
}

func TestLoad_FullAuthSection(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authentication:
  module: jwk-token
  jwk_config:
    url: https://issuer.example.com/jwks.json
    jwt_configuration:
      user_id_claim: uid
      username_claim: name
      role_rules:
        - jsonpath: "$.groups[*]"
          operator: in
          value: [dev, qa]
          roles: [developer]
authorization:
  access_rules:
    - role: "*"
      actions: [query, info]
    - role: developer
      actions: [admin]
`))
	require.NoError(t, err)

	rules := cfg.RoleRules()
	require.Len(t, rules, 1)
	assert.Equal(t, authz.OperatorIn, rules[0].Operator)
	assert.Equal(t, []string{"developer"}, rules[0].Roles)

	access := cfg.AccessRules()
	require.Len(t, access, 2)
	assert.Equal(t, "*", access[0].Role)
	assert.Equal(t, []authz.Action{authz.ActionQuery, authz.ActionInfo}, access[0].Actions)

	authCfg := cfg.AuthConfig()
	assert.Equal(t, "uid", authCfg.Jwk.UserIDClaim)
	assert.Equal(t, "name", authCfg.Jwk.UsernameClaim)
}

func TestLoad_MalformedJSONPathFailsAtStartup(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authentication:
  module: jwk-token
  jwk_config:
    url: https://issuer.example.com/jwks.json
    jwt_configuration:
      role_rules:
        - jsonpath: "$.["
          operator: equals
          value: x
          roles: [r]
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, authz.ErrInvalidJSONPath)
}

func TestLoad_UnknownActionFailsAtStartup(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authorization:
  access_rules:
    - role: "*"
      actions: [reboot]
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, authz.ErrInvalidAction)
}

func TestLoad_RejectsUnknownModule(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authentication:
  module: saml
`))
	assert.Error(t, err)
}

func TestLoad_RejectsConflictingTLSOptions(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authentication:
  module: k8s
  skip_tls_verification: true
  k8s_ca_cert_path: /etc/ca.crt
`))
	assert.Error(t, err)
}

func TestLoad_JwkTokenRequiresURL(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authentication:
  module: jwk-token
`))
	assert.Error(t, err)
}

func TestLoad_EmptyAuthorizationSectionIsDenyAll(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
llama_stack:
  url: http://localhost:8321
authorization:
  access_rules: []
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Authorization)
	assert.Empty(t, cfg.AccessRules())
}
