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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightspeed-core/lightspeed-stack/internal/audit"
	"github.com/lightspeed-core/lightspeed-stack/internal/auth"
	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
	"github.com/lightspeed-core/lightspeed-stack/internal/cache"
	"github.com/lightspeed-core/lightspeed-stack/internal/config"
	"github.com/lightspeed-core/lightspeed-stack/internal/llamastack"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/logger"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/metrics"
	"github.com/lightspeed-core/lightspeed-stack/internal/observability/tracing"
	"github.com/lightspeed-core/lightspeed-stack/internal/storage"
	transportHTTP "github.com/lightspeed-core/lightspeed-stack/internal/transport/http"
)

const defaultConfigPath = "lightspeed-stack.yaml"

func configPath() string {
	if path := os.Getenv("LCS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting lightspeed core stack")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	} else {
		defer tracer.Shutdown(ctx)
	}

	authProvider, err := auth.New(cfg.AuthConfig())
	if err != nil {
		slog.Error("failed to initialize authentication module", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("authentication module ready", logger.Provider(authProvider.Name()))

	var roleResolver authz.RoleResolver = authz.NewNoopRoleResolver()
	if rules := cfg.RoleRules(); len(rules) > 0 {
		roleResolver = authz.NewJWTRoleResolver(rules)
	}

	var accessResolver authz.AccessResolver = authz.NewNoopAccessResolver()
	if cfg.Authorization != nil {
		accessResolver = authz.NewRuleBasedAccessResolver(cfg.AccessRules())
	}

	conversations, err := newConversationStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize conversation cache", logger.Error(err))
		os.Exit(1)
	}
	defer conversations.Close()

	collector, err := storage.NewCollector(collectorOptions(cfg))
	if err != nil {
		slog.Error("failed to initialize user data collection", logger.Error(err))
		os.Exit(1)
	}

	llama := llamastack.NewHTTPClient(llamastack.Options{
		BaseURL: cfg.LlamaStack.URL,
		APIKey:  cfg.LlamaStack.APIKey,
		Timeout: cfg.LlamaStackTimeout(),
	})

	rateLimiter := transportHTTP.NewRateLimiter(cfg.Service.RequestsPerSecond, cfg.Service.Burst)

	handler := transportHTTP.NewHandler(
		cfg,
		authProvider,
		roleResolver,
		accessResolver,
		llama,
		conversations,
		collector,
		metrics.New(),
		audit.NewSlogLogger(),
	)

	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Service.Host, cfg.Service.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
		IdleTimeout:  cfg.IdleTimeoutDuration(),
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func newConversationStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.ConversationCache.Type {
	case "memory":
		return cache.NewMemoryStore(cfg.ConversationCache.Memory.MaxEntries), nil
	case "postgres":
		return cache.NewPostgresStore(ctx, postgresConfig(cfg))
	default:
		return cache.NewNoopStore(), nil
	}
}

func postgresConfig(cfg *config.Config) cache.PostgresConfig {
	pg := cfg.ConversationCache.Postgres
	return cache.PostgresConfig{
		Host:         pg.Host,
		Port:         pg.Port,
		User:         pg.User,
		Password:     pg.Password,
		Database:     pg.Database,
		SSLMode:      pg.SSLMode,
		MaxOpenConns: pg.MaxOpenConns,
		MaxIdleConns: pg.MaxIdleConns,
	}
}

func collectorOptions(cfg *config.Config) storage.Options {
	opts := storage.Options{}
	if cfg.UserDataCollection.FeedbackEnabled {
		opts.FeedbackDir = cfg.UserDataCollection.FeedbackStorage
	}
	if cfg.UserDataCollection.TranscriptsEnabled {
		opts.TranscriptsDir = cfg.UserDataCollection.TranscriptsStorage
	}
	return opts
}

// runMigrate creates the conversation cache schema in PostgreSQL.
func runMigrate(cfg *config.Config) error {
	if cfg.ConversationCache.Type != "postgres" {
		return fmt.Errorf("conversation_cache.type is %q, nothing to migrate", cfg.ConversationCache.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := cache.NewPostgresStore(ctx, postgresConfig(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("conversation cache schema up to date")
	return nil
}
