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

// PlaceByte site gateway
//
// Entry point for the form backend behind the marketing site. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Refuses to start without properly provisioned secrets
//  3. Connects to Redis when configured (CAPTCHA replay filter, ETL queue)
//  4. Selects the outbound mail transport (Resend, Graph or log)
//  5. Serves the inquiry and preference center endpoints
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/placebyte/gateway/internal/accesstoken"
	"github.com/placebyte/gateway/internal/botdefense"
	"github.com/placebyte/gateway/internal/config"
	"github.com/placebyte/gateway/internal/dedup"
	"github.com/placebyte/gateway/internal/httpapi"
	"github.com/placebyte/gateway/internal/logging"
	"github.com/placebyte/gateway/internal/notify"
	"github.com/placebyte/gateway/internal/pipeline"
	"github.com/placebyte/gateway/internal/queue"
	"github.com/placebyte/gateway/internal/validate"
)

func main() {
	// Structured JSON logging until the configured handler is known
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("starting PlaceByte gateway")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Logging))

	slog.Info("configuration loaded",
		"port", cfg.Port,
		"mail_provider", cfg.Mail.Provider,
		"strict_types", cfg.StrictTypes,
		"redis", cfg.RedisURL != "",
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// --- Access Tokens ---
	tokens, err := accesstoken.New(cfg.TokenSecret)
	if err != nil {
		slog.Error("failed to initialise access tokens", "error", err)
		os.Exit(1)
	}

	// --- Redis (optional) ---
	var (
		replay    botdefense.ReplayFilter
		publisher pipeline.EventPublisher
		pingers   = map[string]httpapi.Pinger{}
	)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		pub := queue.NewPublisher(rdb, cfg.PreferencesQueue)
		if err := pub.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis", "queue", cfg.PreferencesQueue)

		replay = dedup.NewFilter(rdb)
		publisher = pub
		pingers["redis"] = pub
	}

	// --- Outbound HTTP ---
	// Per-call deadlines come from the gate and dispatcher timeouts.
	httpClient := &http.Client{}

	transport, err := notify.NewTransport(cfg.Mail, httpClient)
	if err != nil {
		slog.Error("failed to initialise mail transport", "error", err)
		os.Exit(1)
	}
	dispatcher := notify.NewDispatcher(transport, notify.AddressesFrom(cfg.Mail), cfg.Mail.Timeout)

	gate := botdefense.NewGate(botdefense.GateConfig{
		HTTPClient: httpClient,
		VerifyURL:  cfg.TurnstileURL,
		Secret:     cfg.TurnstileSecret,
		Timeout:    cfg.TurnstileTimeout,
		Replay:     replay,
	})
	validator := validate.New(cfg.StrictTypes)

	// --- Pipelines ---
	inquiry := pipeline.NewInquiry(gate, validator, dispatcher)
	preferences := pipeline.NewPreferences(pipeline.PreferencesConfig{
		Gate:      gate,
		Validator: validator,
		Tokens:    tokens,
		Notifier:  dispatcher,
		Publisher: publisher,
		BaseURL:   cfg.BaseURL,
	})

	// --- HTTP Server ---
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:        httpapi.NewHandler(inquiry, preferences, pingers),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	ready, done, err := httpapi.Serve(ctx, httpapi.ServerConfig{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, router)
	if err != nil {
		slog.Error("failed to start http server", "error", err)
		os.Exit(1)
	}
	<-ready

	if err := <-done; err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}
