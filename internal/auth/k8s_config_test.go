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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKubeconfig = `
apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://cluster.example.com:6443
    insecure-skip-tls-verify: true
  name: test-cluster
contexts:
- context:
    cluster: test-cluster
    user: test-user
  name: test-context
current-context: test-context
users:
- name: test-user
  user:
    token: sa-token-abc
`

// Outside a cluster the provider must pick up credentials from the
// kubeconfig, not fall back to an anonymous client.
func TestBuildRestConfig_UsesKubeconfigCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0o600))
	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	t.Setenv("KUBECONFIG", path)

	restCfg, err := buildRestConfig(K8sConfig{})
	require.NoError(t, err)

	assert.Equal(t, "https://cluster.example.com:6443", restCfg.Host)
	assert.Equal(t, "sa-token-abc", restCfg.BearerToken)
}

func TestBuildRestConfig_FailsWithoutAnyCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	t.Setenv("KUBECONFIG", filepath.Join(dir, "missing"))
	t.Setenv("HOME", dir)

	_, err := buildRestConfig(K8sConfig{})
	assert.Error(t, err)
}

func TestNewK8sProvider_OverridesEndpointFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0o600))
	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	t.Setenv("KUBECONFIG", path)

	provider, err := NewK8sProvider(K8sConfig{ClusterAPI: "https://other.example.com:6443"})
	require.NoError(t, err)
	assert.Equal(t, ModuleK8s, provider.Name())
}
