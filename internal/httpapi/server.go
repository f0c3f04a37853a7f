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

// Package httpapi exposes the form flows over HTTP. Handlers only parse
// requests and encode results; all decisions live in the pipeline package.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Body limits. The inquiry limit leaves headroom above the 5 MiB
// attachment cap for the text fields and multipart framing.
const (
	MaxInquiryBody = 6 << 20
	MaxJSONBody    = 64 << 10
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	Handler        *Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter wires the public routes and the middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.Get("/health", cfg.Handler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/inquiry", cfg.Handler.SubmitInquiry)
		r.Route("/preferences", func(r chi.Router) {
			r.Post("/", cfg.Handler.UpdatePreferences)
			r.Post("/link", cfg.Handler.RequestLink)
			r.Get("/verify", cfg.Handler.VerifyLink)
		})
	})

	return r
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Serve binds the port immediately and serves handler until ctx is
// cancelled, then drains in-flight requests. ready is closed once the
// listener is accepting connections; done yields the first serve error,
// or the shutdown result after draining.
func Serve(ctx context.Context, cfg ServerConfig, handler http.Handler) (<-chan struct{}, <-chan error, error) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind port %d: %w", cfg.Port, err)
	}

	ready := make(chan struct{})
	done := make(chan error, 2)

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		done <- server.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("http server listening", "port", cfg.Port)
		close(ready)
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			done <- err
		}
	}()

	return ready, done, nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}
