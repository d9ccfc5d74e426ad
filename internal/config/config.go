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

// Package config loads the service configuration from a YAML file with
// environment-variable overrides and validates it eagerly: malformed
// JSONPath expressions, unknown operators and unknown action names are
// startup failures, never per-request ones.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lightspeed-core/lightspeed-stack/internal/auth"
	"github.com/lightspeed-core/lightspeed-stack/internal/authz"
)

// Config holds all application configuration
type Config struct {
	Service            ServiceConfig            `yaml:"service"`
	LlamaStack         LlamaStackConfig         `yaml:"llama_stack"`
	Authentication     AuthenticationConfig     `yaml:"authentication"`
	Authorization      *AuthorizationConfig     `yaml:"authorization"`
	ConversationCache  ConversationCacheConfig  `yaml:"conversation_cache"`
	UserDataCollection UserDataCollectionConfig `yaml:"user_data_collection"`
	Observability      ObservabilityConfig      `yaml:"observability"`

	// Compiled rule tables, populated by Validate.
	roleRules   []authz.JwtRoleRule
	accessRules []authz.AccessRule
}

// ServiceConfig holds HTTP server configuration
type ServiceConfig struct {
	Host              string  `yaml:"host"`
	Port              string  `yaml:"port"`
	ReadTimeout       string  `yaml:"read_timeout"`
	WriteTimeout      string  `yaml:"write_timeout"`
	IdleTimeout       string  `yaml:"idle_timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LlamaStackConfig points at the external inference/orchestration service.
type LlamaStackConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// AuthenticationConfig selects and configures the identity provider.
type AuthenticationConfig struct {
	Module              string    `yaml:"module"`
	SkipTLSVerification bool      `yaml:"skip_tls_verification"`
	K8sClusterAPI       string    `yaml:"k8s_cluster_api"`
	K8sCACertPath       string    `yaml:"k8s_ca_cert_path"`
	AccessPath          string    `yaml:"k8s_access_path"`
	JwkConfig           JwkConfig `yaml:"jwk_config"`
}

// JwkConfig holds the jwk-token module settings.
type JwkConfig struct {
	URL              string           `yaml:"url"`
	Timeout          string           `yaml:"timeout"`
	CacheTTL         string           `yaml:"cache_ttl"`
	JWTConfiguration JWTConfiguration `yaml:"jwt_configuration"`
}

// JWTConfiguration maps token claims to identity fields and role rules.
type JWTConfiguration struct {
	UserIDClaim   string           `yaml:"user_id_claim"`
	UsernameClaim string           `yaml:"username_claim"`
	RoleRules     []RoleRuleConfig `yaml:"role_rules"`
}

// RoleRuleConfig is the YAML shape of one role-derivation rule.
type RoleRuleConfig struct {
	JSONPath string   `yaml:"jsonpath"`
	Operator string   `yaml:"operator"`
	Value    any      `yaml:"value"`
	Negate   bool     `yaml:"negate"`
	Roles    []string `yaml:"roles"`
}

// AuthorizationConfig holds the access-rule table. A nil section means the
// no-op access resolver (everything allowed); a present section with an
// empty table means deny everything.
type AuthorizationConfig struct {
	AccessRules []AccessRuleConfig `yaml:"access_rules"`
}

// AccessRuleConfig is the YAML shape of one access rule.
type AccessRuleConfig struct {
	Role    string   `yaml:"role"`
	Actions []string `yaml:"actions"`
}

// ConversationCacheConfig selects the conversation store backend.
type ConversationCacheConfig struct {
	Type     string         `yaml:"type"` // noop, memory, postgres
	Memory   MemoryConfig   `yaml:"memory"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MemoryConfig bounds the in-memory conversation store.
type MemoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// PostgresConfig holds the postgres conversation store settings.
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// UserDataCollectionConfig enables feedback and transcript archival.
type UserDataCollectionConfig struct {
	FeedbackEnabled    bool   `yaml:"feedback_enabled"`
	FeedbackStorage    string `yaml:"feedback_storage"`
	TranscriptsEnabled bool   `yaml:"transcripts_enabled"`
	TranscriptsStorage string `yaml:"transcripts_storage"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	OTELEnabled    bool   `yaml:"otel_enabled"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			ReadTimeout:       "60s",
			WriteTimeout:      "300s",
			IdleTimeout:       "120s",
			RequestsPerSecond: 25,
			Burst:             50,
		},
		LlamaStack: LlamaStackConfig{
			Timeout: "300s",
		},
		Authentication: AuthenticationConfig{
			Module: auth.ModuleNoop,
		},
		ConversationCache: ConversationCacheConfig{
			Type:   "noop",
			Memory: MemoryConfig{MaxEntries: 1000},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			ServiceName:    "lightspeed-stack",
			ServiceVersion: "0.1.0",
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.Service.Host = getEnv("SERVER_HOST", c.Service.Host)
	c.Service.Port = getEnv("SERVER_PORT", c.Service.Port)
	c.LlamaStack.URL = getEnv("LLAMA_STACK_URL", c.LlamaStack.URL)
	c.LlamaStack.APIKey = getEnv("LLAMA_STACK_API_KEY", c.LlamaStack.APIKey)
	c.ConversationCache.Postgres.Password = getEnv("CACHE_DB_PASSWORD", c.ConversationCache.Postgres.Password)
	c.Observability.LogLevel = getEnv("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.OTELEnabled = parseBool("OTEL_ENABLED", c.Observability.OTELEnabled)
}

// Validate checks the configuration and compiles the rule tables.
func (c *Config) Validate() error {
	switch c.Authentication.Module {
	case auth.ModuleNoop, auth.ModuleNoopWithToken, auth.ModuleK8s, auth.ModuleJwkToken:
	default:
		return fmt.Errorf("unknown authentication.module %q", c.Authentication.Module)
	}

	if c.Authentication.SkipTLSVerification && c.Authentication.K8sCACertPath != "" {
		return fmt.Errorf("authentication.k8s_ca_cert_path and skip_tls_verification are mutually exclusive")
	}
	if c.Authentication.Module == auth.ModuleJwkToken && c.Authentication.JwkConfig.URL == "" {
		return fmt.Errorf("authentication.jwk_config.url is required for the jwk-token module")
	}
	if c.LlamaStack.URL == "" {
		return fmt.Errorf("llama_stack.url is required")
	}

	switch c.ConversationCache.Type {
	case "noop", "memory":
	case "postgres":
		if c.ConversationCache.Postgres.Host == "" {
			return fmt.Errorf("conversation_cache.postgres.host is required")
		}
	default:
		return fmt.Errorf("unknown conversation_cache.type %q", c.ConversationCache.Type)
	}

	c.roleRules = nil
	for i, rc := range c.Authentication.JwkConfig.JWTConfiguration.RoleRules {
		rule := authz.JwtRoleRule{
			JSONPath: rc.JSONPath,
			Operator: rc.Operator,
			Value:    rc.Value,
			Negate:   rc.Negate,
			Roles:    rc.Roles,
		}
		if err := rule.Compile(); err != nil {
			return fmt.Errorf("role_rules[%d]: %w", i, err)
		}
		c.roleRules = append(c.roleRules, rule)
	}

	c.accessRules = nil
	if c.Authorization != nil {
		for i, rc := range c.Authorization.AccessRules {
			if rc.Role == "" {
				return fmt.Errorf("access_rules[%d]: role is required", i)
			}
			rule := authz.AccessRule{Role: rc.Role}
			for _, name := range rc.Actions {
				action, err := authz.ParseAction(name)
				if err != nil {
					return fmt.Errorf("access_rules[%d]: %w", i, err)
				}
				rule.Actions = append(rule.Actions, action)
			}
			c.accessRules = append(c.accessRules, rule)
		}
	}

	for _, field := range []struct{ name, value string }{
		{"service.read_timeout", c.Service.ReadTimeout},
		{"service.write_timeout", c.Service.WriteTimeout},
		{"service.idle_timeout", c.Service.IdleTimeout},
		{"llama_stack.timeout", c.LlamaStack.Timeout},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return nil
}

// RoleRules returns the compiled role-derivation rules.
func (c *Config) RoleRules() []authz.JwtRoleRule { return c.roleRules }

// AccessRules returns the parsed access-rule table.
func (c *Config) AccessRules() []authz.AccessRule { return c.accessRules }

// AuthConfig translates the authentication section into the auth package's
// provider configuration.
func (c *Config) AuthConfig() auth.Config {
	jwt := c.Authentication.JwkConfig.JWTConfiguration
	return auth.Config{
		Module:              c.Authentication.Module,
		SkipTLSVerification: c.Authentication.SkipTLSVerification,
		K8sClusterAPI:       c.Authentication.K8sClusterAPI,
		K8sCACertPath:       c.Authentication.K8sCACertPath,
		K8sAccessPath:       c.Authentication.AccessPath,
		Jwk: auth.JwkConfig{
			URL:           c.Authentication.JwkConfig.URL,
			Timeout:       duration(c.Authentication.JwkConfig.Timeout, 10*time.Second),
			CacheTTL:      duration(c.Authentication.JwkConfig.CacheTTL, auth.DefaultKeySetTTL),
			UserIDClaim:   jwt.UserIDClaim,
			UsernameClaim: jwt.UsernameClaim,
		},
	}
}

// ReadTimeoutDuration and friends parse the already-validated durations.
func (c *Config) ReadTimeoutDuration() time.Duration  { return duration(c.Service.ReadTimeout, time.Minute) }
func (c *Config) WriteTimeoutDuration() time.Duration { return duration(c.Service.WriteTimeout, 5*time.Minute) }
func (c *Config) IdleTimeoutDuration() time.Duration  { return duration(c.Service.IdleTimeout, 2*time.Minute) }
func (c *Config) LlamaStackTimeout() time.Duration    { return duration(c.LlamaStack.Timeout, 5*time.Minute) }

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func duration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
