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

// Package botdefense screens form submissions for automated traffic: a
// honeypot field check followed by server-side redemption of a Cloudflare
// Turnstile token.
package botdefense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/placebyte/gateway/internal/models"
)

// DefaultVerifyURL is Turnstile's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ReplayFilter reports whether a token is being presented for the first time.
// Forget releases a token whose redemption never reached a verdict.
type ReplayFilter interface {
	IsNew(ctx context.Context, token string) (bool, error)
	Forget(ctx context.Context, token string) error
}

// siteverifyRequest is the JSON body Turnstile expects.
type siteverifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

// siteverifyResponse holds the fields we read from Turnstile.
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
	Action      string   `json:"action"`
}

// Gate runs the honeypot and CAPTCHA checks.
type Gate struct {
	httpClient *http.Client
	verifyURL  string
	secret     string
	timeout    time.Duration
	replay     ReplayFilter
}

// GateConfig holds the configuration for a Gate.
type GateConfig struct {
	HTTPClient *http.Client
	VerifyURL  string
	Secret     string
	Timeout    time.Duration

	// Replay is optional. When nil only the provider enforces single use.
	Replay ReplayFilter
}

// NewGate creates a bot defense gate.
func NewGate(cfg GateConfig) *Gate {
	g := &Gate{
		httpClient: cfg.HTTPClient,
		verifyURL:  cfg.VerifyURL,
		secret:     cfg.Secret,
		timeout:    cfg.Timeout,
		replay:     cfg.Replay,
	}
	if g.httpClient == nil {
		g.httpClient = http.DefaultClient
	}
	if g.verifyURL == "" {
		g.verifyURL = DefaultVerifyURL
	}
	return g
}

// CheckHoneypot classifies a submission whose hidden field was filled in.
func CheckHoneypot(honeypot string) models.BotCheckResult {
	if honeypot != "" {
		return models.BotCheckHoneypotTripped
	}
	return models.BotCheckPassed
}

// Check runs the honeypot check and then verifies the CAPTCHA token.
func (g *Gate) Check(ctx context.Context, honeypot, token, remoteIP string) models.BotCheckResult {
	if res := CheckHoneypot(honeypot); res != models.BotCheckPassed {
		slog.Warn("bot attempt blocked (honeypot)", "remote_ip", remoteIP)
		return res
	}
	return g.Verify(ctx, token, remoteIP)
}

// Verify redeems a Turnstile token. There are no retries: a transient
// failure is reported as VerifierError and the user resubmits.
func (g *Gate) Verify(ctx context.Context, token, remoteIP string) models.BotCheckResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.BotCheckTokenMissing
	}

	claimed := false
	if g.replay != nil {
		isNew, err := g.replay.IsNew(ctx, token)
		if err != nil {
			slog.Warn("captcha replay check failed, proceeding", "error", err)
		} else if !isNew {
			slog.Warn("captcha token replayed", "remote_ip", remoteIP)
			return models.BotCheckTokenRejected
		}
		claimed = isNew
	}

	outcome, err := g.siteverify(ctx, token, remoteIP)
	if err != nil {
		slog.Error("turnstile verification error", "error", err)
		if claimed {
			g.release(token)
		}
		return models.BotCheckVerifierError
	}

	if !outcome.Success {
		slog.Warn("turnstile verification failed",
			"error_codes", outcome.ErrorCodes,
			"hostname", outcome.Hostname,
		)
		return models.BotCheckTokenRejected
	}

	return models.BotCheckPassed
}

// release un-marks a token after a transient verifier failure so the user
// can resubmit it. The request context may already be done, so a short
// detached one is used.
func (g *Gate) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.replay.Forget(ctx, token); err != nil {
		slog.Warn("captcha replay release failed", "error", err)
	}
}

func (g *Gate) siteverify(ctx context.Context, token, remoteIP string) (*siteverifyResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	body, err := json.Marshal(siteverifyRequest{
		Secret:   g.secret,
		Response: token,
		RemoteIP: remoteIP,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal siteverify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("siteverify returned HTTP %d", resp.StatusCode)
	}

	var outcome siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("decode siteverify response: %w", err)
	}
	return &outcome, nil
}
