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

package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightspeed-core/lightspeed-stack/internal/storage"
)

func TestStoreFeedback(t *testing.T) {
	dir := t.TempDir()
	collector, err := storage.NewCollector(storage.Options{FeedbackDir: dir})
	require.NoError(t, err)
	require.True(t, collector.FeedbackEnabled())
	require.False(t, collector.TranscriptsEnabled())

	id, err := collector.StoreFeedback(storage.Feedback{
		UserID:         "alice",
		ConversationID: "conv-1",
		Sentiment:      1,
		UserFeedback:   "helpful answer",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	require.NoError(t, err)

	var stored storage.Feedback
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "alice", stored.UserID)
	assert.Equal(t, 1, stored.Sentiment)
	assert.False(t, stored.Timestamp.IsZero())
}

func TestStoreFeedback_DisabledIsNoop(t *testing.T) {
	collector, err := storage.NewCollector(storage.Options{})
	require.NoError(t, err)

	id, err := collector.StoreFeedback(storage.Feedback{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestStoreTranscript(t *testing.T) {
	dir := t.TempDir()
	collector, err := storage.NewCollector(storage.Options{TranscriptsDir: dir})
	require.NoError(t, err)

	require.NoError(t, collector.StoreTranscript(storage.Transcript{
		UserID:         "alice",
		ConversationID: "conv-1",
		Query:          "what is openshift",
		Response:       "a kubernetes distribution",
		Model:          "granite",
	}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".json", filepath.Ext(files[0].Name()))
}
