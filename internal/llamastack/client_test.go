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

package llamastack_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightspeed-core/lightspeed-stack/internal/llamastack"
)

func TestQuery_ForwardsRequestAndToken(t *testing.T) {
	var got llamastack.QueryRequest
	var gotAuth, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/query", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-LlamaStack-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(llamastack.QueryResponse{
			ConversationID: "conv-1",
			Response:       "hello",
		})
	}))
	defer srv.Close()

	client := llamastack.NewHTTPClient(llamastack.Options{BaseURL: srv.URL, APIKey: "secret"})
	resp, err := client.Query(context.Background(), llamastack.QueryRequest{
		Query:      "hi",
		Model:      "granite",
		MCPHeaders: map[string]string{"X-Trace": "abc"},
	}, "user-token")
	require.NoError(t, err)

	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "hello", resp.Response)
	assert.Equal(t, "hi", got.Query)
	assert.Equal(t, "granite", got.Model)
	assert.Equal(t, "abc", got.MCPHeaders["X-Trace"])
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "secret", gotKey)
}

func TestQuery_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := llamastack.NewHTTPClient(llamastack.Options{BaseURL: srv.URL})
	_, err := client.Query(context.Background(), llamastack.QueryRequest{Query: "hi"}, "")
	assert.ErrorIs(t, err, llamastack.ErrUpstream)
}

func TestStreamQuery_RelaysBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/streaming_query", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"event\": \"token\"}\n\n")
	}))
	defer srv.Close()

	client := llamastack.NewHTTPClient(llamastack.Options{BaseURL: srv.URL})
	body, err := client.StreamQuery(context.Background(), llamastack.QueryRequest{Query: "hi"}, "")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data: ")
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		io.WriteString(w, `{"data": [{"identifier": "granite", "provider_id": "ollama", "model_type": "llm"}]}`)
	}))
	defer srv.Close()

	client := llamastack.NewHTTPClient(llamastack.Options{BaseURL: srv.URL})
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "granite", models[0].Identifier)
	assert.Equal(t, "ollama", models[0].Provider)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := llamastack.NewHTTPClient(llamastack.Options{BaseURL: srv.URL})
	assert.NoError(t, client.Ping(context.Background()))

	srv.Close()
	assert.Error(t, client.Ping(context.Background()))
}
