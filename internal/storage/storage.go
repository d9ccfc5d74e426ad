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

// Package storage writes user data collections to disk. Feedback and
// transcripts are dropped as individual JSON files for an external
// pipeline to pick up; the service itself never reads them back.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Feedback is one user feedback submission.
type Feedback struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserQuestion   string    `json:"user_question,omitempty"`
	LLMResponse    string    `json:"llm_response,omitempty"`
	Sentiment      int       `json:"sentiment,omitempty"`
	UserFeedback   string    `json:"user_feedback,omitempty"`
	Categories     []string  `json:"categories,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Transcript is one recorded query/response exchange.
type Transcript struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	Model          string    `json:"model,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Collector persists user data collections when enabled. The zero-value
// disabled collector silently drops everything.
type Collector struct {
	feedbackDir    string
	transcriptsDir string
}

// Options configures which collections are stored and where. An empty
// directory disables that collection.
type Options struct {
	FeedbackDir    string
	TranscriptsDir string
}

// NewCollector creates the storage directories that are enabled.
func NewCollector(opts Options) (*Collector, error) {
	c := &Collector{
		feedbackDir:    opts.FeedbackDir,
		transcriptsDir: opts.TranscriptsDir,
	}
	for _, dir := range []string{c.feedbackDir, c.transcriptsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return c, nil
}

// FeedbackEnabled reports whether feedback submissions are stored.
func (c *Collector) FeedbackEnabled() bool {
	return c.feedbackDir != ""
}

// TranscriptsEnabled reports whether transcripts are stored.
func (c *Collector) TranscriptsEnabled() bool {
	return c.transcriptsDir != ""
}

// StoreFeedback writes one feedback submission and returns its assigned ID.
func (c *Collector) StoreFeedback(fb Feedback) (string, error) {
	if !c.FeedbackEnabled() {
		return "", nil
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now().UTC()
	}
	id := uuid.NewString()
	if err := writeJSON(filepath.Join(c.feedbackDir, id+".json"), fb); err != nil {
		return "", fmt.Errorf("failed to store feedback: %w", err)
	}
	return id, nil
}

// StoreTranscript writes one exchange transcript.
func (c *Collector) StoreTranscript(tr Transcript) error {
	if !c.TranscriptsEnabled() {
		return nil
	}
	if tr.Timestamp.IsZero() {
		tr.Timestamp = time.Now().UTC()
	}
	id := uuid.NewString()
	if err := writeJSON(filepath.Join(c.transcriptsDir, id+".json"), tr); err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}
	return nil
}

// writeJSON writes the document atomically: a rename is all the external
// pipeline can observe.
func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
