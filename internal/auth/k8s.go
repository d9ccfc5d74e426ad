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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	authnv1 "k8s.io/api/authentication/v1"
	authzv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/lightspeed-core/lightspeed-stack/internal/observability/logger"
)

// DefaultVirtualPath is the non-resource path checked by the
// SubjectAccessReview gate. Cluster administrators grant access to this
// service by binding `get` on this virtual path.
const DefaultVirtualPath = "/ls-access"

// kubeAdminUsername is the special OpenShift administrator principal. It has
// no stable UID, so its user_id is derived from the cluster instead.
const kubeAdminUsername = "kube:admin"

const defaultK8sTimeout = 10 * time.Second

// K8sConfig holds the Kubernetes identity provider settings.
type K8sConfig struct {
	// ClusterAPI is the cluster API endpoint. Empty means in-cluster
	// auto-detection.
	ClusterAPI string

	// CACertPath points at the CA bundle used to verify the API endpoint.
	CACertPath string

	// SkipTLSVerification disables TLS verification of the API endpoint.
	// Must be opted into explicitly and is mutually exclusive with
	// CACertPath.
	SkipTLSVerification bool

	// AccessPath overrides DefaultVirtualPath.
	AccessPath string

	// Timeout bounds each TokenReview/SubjectAccessReview call.
	Timeout time.Duration
}

// K8sProvider validates bearer tokens with a TokenReview call and then
// gates access with a SubjectAccessReview on a virtual non-resource path.
// The provider talks to the cluster with its own service credentials; the
// caller's token only ever travels inside the TokenReview spec.
type K8sProvider struct {
	client     kubernetes.Interface
	accessPath string
	timeout    time.Duration

	mu        sync.Mutex
	clusterID string
}

// NewK8sProvider builds a provider connected to the configured or
// auto-detected cluster API endpoint.
func NewK8sProvider(cfg K8sConfig) (*K8sProvider, error) {
	if cfg.SkipTLSVerification && cfg.CACertPath != "" {
		return nil, fmt.Errorf("k8s_ca_cert_path and skip_tls_verification are mutually exclusive")
	}

	restCfg, err := buildRestConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ClusterAPI != "" {
		restCfg.Host = cfg.ClusterAPI
	}
	if cfg.SkipTLSVerification {
		restCfg.TLSClientConfig = rest.TLSClientConfig{Insecure: true}
		slog.Warn("TLS verification of the cluster API is disabled")
	} else if cfg.CACertPath != "" {
		restCfg.TLSClientConfig.CAFile = cfg.CACertPath
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewK8sProviderWithClient(client, cfg), nil
}

// buildRestConfig resolves the credentials the provider uses for its own
// TokenReview/SubjectAccessReview calls: in-cluster service account first,
// then the kubeconfig resolved by the standard loading rules (KUBECONFIG or
// ~/.kube/config). The kubeconfig carries the bearer token or client cert;
// a bare endpoint without credentials cannot authenticate to any cluster.
func buildRestConfig(cfg K8sConfig) (*rest.Config, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules,
			&clientcmd.ConfigOverrides{},
		)
		restCfg, err = clientConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("not running in-cluster and no kubeconfig found: %w", err)
		}
	}
	return restCfg, nil
}

// NewK8sProviderWithClient builds a provider around an existing client.
// Used by tests to inject a fake clientset.
func NewK8sProviderWithClient(client kubernetes.Interface, cfg K8sConfig) *K8sProvider {
	accessPath := cfg.AccessPath
	if accessPath == "" {
		accessPath = DefaultVirtualPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultK8sTimeout
	}
	return &K8sProvider{
		client:     client,
		accessPath: accessPath,
		timeout:    timeout,
	}
}

// Authenticate validates the request's bearer token against the cluster.
// TokenReview rejection yields ErrUnauthorized; a SubjectAccessReview
// denial yields ErrForbidden. The two are never conflated.
func (p *K8sProvider) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	token, err := ExtractBearerToken(r)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	review, err := p.client.AuthenticationV1().TokenReviews().Create(ctx, &authnv1.TokenReview{
		Spec: authnv1.TokenReviewSpec{Token: token},
	}, metav1.CreateOptions{})
	if err != nil {
		// Deny by default: an unreachable API server is never a pass.
		slog.ErrorContext(ctx, "token review failed", logger.Error(err))
		return nil, fmt.Errorf("%w: token review unavailable", ErrUnauthorized)
	}
	if !review.Status.Authenticated {
		return nil, ErrUnauthorized
	}
	user := review.Status.User

	sar, err := p.client.AuthorizationV1().SubjectAccessReviews().Create(ctx, &authzv1.SubjectAccessReview{
		Spec: authzv1.SubjectAccessReviewSpec{
			User:   user.Username,
			UID:    user.UID,
			Groups: user.Groups,
			NonResourceAttributes: &authzv1.NonResourceAttributes{
				Path: p.accessPath,
				Verb: "get",
			},
		},
	}, metav1.CreateOptions{})
	if err != nil {
		slog.ErrorContext(ctx, "subject access review failed", logger.Error(err))
		return nil, fmt.Errorf("%w: access review unavailable", ErrUnauthorized)
	}
	if !sar.Status.Allowed {
		slog.InfoContext(ctx, "cluster access denied",
			logger.Username(user.Username), logger.String("path", p.accessPath))
		return nil, ErrForbidden
	}

	userID := user.UID
	if user.Username == kubeAdminUsername {
		// kube:admin carries no UID; substitute a cluster-derived id so the
		// principal stays stable across logins.
		userID, err = p.lookupClusterID(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot resolve cluster id", ErrUnauthorized)
		}
	}
	if userID == "" {
		userID = user.Username
	}

	return &Identity{
		UserID:   userID,
		Username: user.Username,
		Token:    token,
	}, nil
}

func (p *K8sProvider) Name() string { return ModuleK8s }

// lookupClusterID returns the UID of the kube-system namespace, which is
// unique and immutable for the lifetime of a cluster. Cached after the
// first successful lookup.
func (p *K8sProvider) lookupClusterID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clusterID != "" {
		return p.clusterID, nil
	}

	ns, err := p.client.CoreV1().Namespaces().Get(ctx, "kube-system", metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to read kube-system namespace: %w", err)
	}
	p.clusterID = string(ns.UID)
	return p.clusterID, nil
}
