// Copyright (c) 2026 John Earle
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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/placebyte/gateway/internal/accesstoken"
)

// Mail providers.
const (
	ProviderResend = "resend"
	ProviderGraph  = "graph"
	ProviderLog    = "log"
)

// GraphMailConfig holds Microsoft Graph app credentials for sendMail.
type GraphMailConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// MailConfig describes the outbound email transport and addresses.
type MailConfig struct {
	Provider     string
	ResendAPIKey string
	ResendURL    string
	Graph        GraphMailConfig
	FromInquiry  string
	FromSecurity string
	FromSystem   string
	TeamInbox    string
	Timeout      time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // json|text
}

// Config holds all configuration for the gateway.
type Config struct {
	// Server
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Site
	BaseURL        string
	AllowedOrigins []string

	// Turnstile
	TurnstileSecret  string
	TurnstileURL     string
	TurnstileTimeout time.Duration

	// Access tokens
	TokenSecret string

	Mail MailConfig

	// Redis (optional)
	RedisURL         string
	PreferencesQueue string

	StrictTypes bool

	Logging LoggingConfig
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Server struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Site struct {
		BaseURL        string   `yaml:"base_url"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"site"`
	Turnstile struct {
		Secret    string `yaml:"secret"`
		VerifyURL string `yaml:"verify_url"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"turnstile"`
	Tokens struct {
		Secret string `yaml:"secret"`
	} `yaml:"tokens"`
	Mail struct {
		Provider     string          `yaml:"provider"`
		ResendAPIKey string          `yaml:"resend_api_key"`
		ResendURL    string          `yaml:"resend_url"`
		Graph        GraphMailConfig `yaml:"graph"`
		FromInquiry  string          `yaml:"from_inquiry"`
		FromSecurity string          `yaml:"from_security"`
		FromSystem   string          `yaml:"from_system"`
		TeamInbox    string          `yaml:"team_inbox"`
		Timeout      string          `yaml:"timeout"`
	} `yaml:"mail"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Preferences string `yaml:"preferences"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Forms struct {
		StrictTypes *bool `yaml:"strict_types"`
	} `yaml:"forms"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables. A missing config file is not an error: every
// setting can come from the environment. A .env file in the working
// directory is loaded first for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	return build(raw)
}

// Parse builds a Config from YAML bytes plus the environment. Used by tests
// and by callers that embed their own configuration.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	strict := envOrDefaultBool("FORMS_STRICT_TYPES", true)
	if raw.Forms.StrictTypes != nil {
		strict = *raw.Forms.StrictTypes
	}

	cfg := &Config{
		Port:         firstPositive(raw.Server.Port, envOrDefaultInt("PORT", 8080)),
		ReadTimeout:  durationOr(raw.Server.ReadTimeout, envOrDefaultDuration("READ_TIMEOUT", 15*time.Second)),
		WriteTimeout: durationOr(raw.Server.WriteTimeout, envOrDefaultDuration("WRITE_TIMEOUT", 30*time.Second)),

		BaseURL:        strings.TrimRight(firstNonEmpty(raw.Site.BaseURL, envOrDefault("SITE_BASE_URL", "http://localhost:3000")), "/"),
		AllowedOrigins: raw.Site.AllowedOrigins,

		TurnstileSecret:  firstNonEmpty(raw.Turnstile.Secret, os.Getenv("TURNSTILE_SECRET_KEY")),
		TurnstileURL:     firstNonEmpty(raw.Turnstile.VerifyURL, envOrDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")),
		TurnstileTimeout: durationOr(raw.Turnstile.Timeout, envOrDefaultDuration("TURNSTILE_TIMEOUT", 8*time.Second)),

		TokenSecret: firstNonEmpty(raw.Tokens.Secret, os.Getenv("ACCESS_TOKEN_SECRET")),

		Mail: MailConfig{
			Provider:     strings.ToLower(firstNonEmpty(raw.Mail.Provider, envOrDefault("MAIL_PROVIDER", ProviderResend))),
			ResendAPIKey: firstNonEmpty(raw.Mail.ResendAPIKey, os.Getenv("RESEND_API_KEY")),
			ResendURL:    firstNonEmpty(raw.Mail.ResendURL, envOrDefault("RESEND_API_URL", "https://api.resend.com")),
			Graph: GraphMailConfig{
				TenantID:     firstNonEmpty(raw.Mail.Graph.TenantID, os.Getenv("GRAPH_TENANT_ID")),
				ClientID:     firstNonEmpty(raw.Mail.Graph.ClientID, os.Getenv("GRAPH_CLIENT_ID")),
				ClientSecret: firstNonEmpty(raw.Mail.Graph.ClientSecret, os.Getenv("GRAPH_CLIENT_SECRET")),
				Sender:       firstNonEmpty(raw.Mail.Graph.Sender, os.Getenv("GRAPH_SENDER")),
			},
			FromInquiry:  firstNonEmpty(raw.Mail.FromInquiry, envOrDefault("MAIL_FROM_INQUIRY", "PlaceByte <noreply@placebyte.com>")),
			FromSecurity: firstNonEmpty(raw.Mail.FromSecurity, envOrDefault("MAIL_FROM_SECURITY", "PlaceByte Security <noreply@placebyte.com>")),
			FromSystem:   firstNonEmpty(raw.Mail.FromSystem, envOrDefault("MAIL_FROM_SYSTEM", "PlaceByte System <system@placebyte.com>")),
			TeamInbox:    firstNonEmpty(raw.Mail.TeamInbox, envOrDefault("MAIL_TEAM_INBOX", "team@placebyte.com")),
			Timeout:      durationOr(raw.Mail.Timeout, envOrDefaultDuration("MAIL_TIMEOUT", 10*time.Second)),
		},

		RedisURL:         firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		PreferencesQueue: firstNonEmpty(raw.Redis.Queues.Preferences, envOrDefault("PREFERENCES_QUEUE", "preferences")),

		StrictTypes: strict,

		Logging: LoggingConfig{
			Level:  firstNonEmpty(raw.Logging.Level, envOrDefault("LOG_LEVEL", "info")),
			Format: firstNonEmpty(raw.Logging.Format, envOrDefault("LOG_FORMAT", "json")),
		},
	}

	if len(cfg.AllowedOrigins) == 0 {
		if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
			for _, o := range strings.Split(v, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
				}
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate refuses configurations that would run with weak or missing
// secrets. There is no insecure fallback: the process must not boot.
func (c *Config) Validate() error {
	if err := accesstoken.ValidateSecret(c.TokenSecret); err != nil {
		return err
	}
	if strings.TrimSpace(c.TurnstileSecret) == "" {
		return fmt.Errorf("TURNSTILE_SECRET_KEY is required")
	}
	if c.TurnstileSecret == c.TokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must differ from TURNSTILE_SECRET_KEY")
	}

	switch c.Mail.Provider {
	case ProviderResend:
		if c.Mail.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for mail provider %q", c.Mail.Provider)
		}
	case ProviderGraph:
		g := c.Mail.Graph
		if g.TenantID == "" || g.ClientID == "" || g.ClientSecret == "" || g.Sender == "" {
			return fmt.Errorf("graph mail provider requires tenant_id, client_id, client_secret and sender")
		}
	case ProviderLog:
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}

	if c.Mail.TeamInbox == "" {
		return fmt.Errorf("mail team inbox is required")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw = strings.TrimSpace(raw); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return fallback
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
