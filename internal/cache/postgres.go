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

package cache

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_conversation_cache.up.sql
var ConversationSchema string

// PostgresConfig holds the connection settings for the PostgreSQL-backed
// conversation store.
type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// PostgresStore persists conversations in PostgreSQL. It is the store to
// use when the service runs with more than one replica.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies the connection.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the conversation cache schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, ConversationSchema); err != nil {
		return fmt.Errorf("failed to run migration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_entries
			(user_id, conversation_id, query, response, model, provider, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.UserID, entry.ConversationID, entry.Query, entry.Response,
		entry.Model, entry.Provider, entry.StartedAt, entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append conversation entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, user_id, max(model), max(completed_at), count(*)
		FROM conversation_entries
		WHERE user_id = $1
		GROUP BY conversation_id, user_id
		ORDER BY max(completed_at) DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, user_id, max(model), max(completed_at), count(*)
		FROM conversation_entries
		GROUP BY conversation_id, user_id
		ORDER BY max(completed_at) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

func scanConversations(rows pgx.Rows) ([]Conversation, error) {
	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ConversationID, &c.UserID, &c.LastUsedModel, &c.LastMessageAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, userID, conversationID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, conversation_id, query, response, model, provider, started_at, completed_at
		FROM conversation_entries
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY completed_at ASC
	`, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.ConversationID, &e.Query, &e.Response,
			&e.Model, &e.Provider, &e.StartedAt, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrConversationNotFound
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, conversationID string) error {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM conversation_entries
		WHERE user_id = $1 AND conversation_id = $2
	`, userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (s *PostgresStore) Ready(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("conversation cache unreachable: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
