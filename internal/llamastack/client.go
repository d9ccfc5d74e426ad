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

// Package llamastack is the thin client for the external AI orchestration
// service. All reasoning, retrieval, tool execution and inference happen
// there; this gateway only forwards queries and relays answers.
package llamastack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUpstream wraps every non-2xx answer from the service.
var ErrUpstream = errors.New("llama stack request failed")

// QueryRequest is one chat turn forwarded upstream.
type QueryRequest struct {
	Query          string            `json:"query"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Model          string            `json:"model,omitempty"`
	Provider       string            `json:"provider,omitempty"`
	SystemPrompt   string            `json:"system_prompt,omitempty"`
	MCPHeaders     map[string]string `json:"mcp_headers,omitempty"`
}

// QueryResponse is the upstream answer to one turn.
type QueryResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	Model          string `json:"model,omitempty"`
	Provider       string `json:"provider,omitempty"`
}

// Model describes one model served upstream.
type Model struct {
	Identifier string `json:"identifier"`
	Provider   string `json:"provider_id"`
	Type       string `json:"model_type"`
}

// Provider describes one inference or tool provider configured upstream.
type Provider struct {
	ProviderID   string `json:"provider_id"`
	ProviderType string `json:"provider_type"`
	API          string `json:"api"`
}

// Client is the gateway's view of the orchestration service. Handlers
// depend on this interface; tests substitute it.
type Client interface {
	// Query runs one blocking chat turn.
	Query(ctx context.Context, req QueryRequest, userToken string) (*QueryResponse, error)

	// StreamQuery starts one streaming chat turn and returns the raw SSE
	// body for relaying. The caller must close it.
	StreamQuery(ctx context.Context, req QueryRequest, userToken string) (io.ReadCloser, error)

	// ListModels lists the models served upstream.
	ListModels(ctx context.Context) ([]Model, error)

	// ListProviders lists the providers configured upstream.
	ListProviders(ctx context.Context) ([]Provider, error)

	// Ping verifies the service is reachable.
	Ping(ctx context.Context) error
}

// HTTPClient talks JSON over HTTP to a Llama Stack deployment.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Options configures the HTTP client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPClient creates a client with an otel-instrumented transport.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *HTTPClient) Query(ctx context.Context, req QueryRequest, userToken string) (*QueryResponse, error) {
	resp, err := c.post(ctx, "/v1/query", req, userToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) StreamQuery(ctx context.Context, req QueryRequest, userToken string) (io.ReadCloser, error) {
	resp, err := c.post(ctx, "/v1/streaming_query", req, userToken)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *HTTPClient) ListModels(ctx context.Context) ([]Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, "")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out struct {
		Data []Model `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}
	return out.Data, nil
}

func (c *HTTPClient) ListProviders(ctx context.Context) ([]Provider, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/providers", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, "")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out struct {
		Data []Provider `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode providers response: %w", err)
	}
	return out.Data, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	c.setHeaders(httpReq, "")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, req QueryRequest, userToken string) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, userToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return resp, nil
}

// setHeaders attaches content negotiation, the service API key, and the
// caller's bearer token when the deployment forwards it.
func (c *HTTPClient) setHeaders(r *http.Request, userToken string) {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		r.Header.Set("X-LlamaStack-Api-Key", c.apiKey)
	}
	if userToken != "" {
		r.Header.Set("Authorization", "Bearer "+userToken)
	}
}
