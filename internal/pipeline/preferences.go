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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/placebyte/gateway/internal/accesstoken"
	"github.com/placebyte/gateway/internal/models"
	"github.com/placebyte/gateway/internal/validate"
)

// PreferenceNotifier delivers magic links and preference changes.
type PreferenceNotifier interface {
	SendMagicLink(ctx context.Context, email, link string, ttl time.Duration) error
	SendPreferenceChange(ctx context.Context, req models.PreferenceChangeRequest) error
}

// EventPublisher hands preference changes to the ETL workers.
type EventPublisher interface {
	PublishPreferenceChange(ctx context.Context, req models.PreferenceChangeRequest) (string, error)
}

// LinkRequest is a magic-link request from the preference center.
type LinkRequest struct {
	Email        string
	Honeypot     string
	CaptchaToken string
	RemoteIP     string
}

// UpdateRequest is a preference change submitted from a magic link.
type UpdateRequest struct {
	Token        string
	CaptchaToken string
	Marketing    bool
	Jobs         bool
	DeleteData   bool
	RemoteIP     string
}

// PreferencesConfig holds the collaborators of the preference flows.
type PreferencesConfig struct {
	Gate      BotGate
	Validator *validate.Validator
	Tokens    *accesstoken.Service
	Notifier  PreferenceNotifier
	// Publisher is optional; when nil no ETL event is published.
	Publisher EventPublisher
	BaseURL   string
	Now       func() time.Time
}

// Preferences runs the passwordless preference center flows.
type Preferences struct {
	gate      BotGate
	validator *validate.Validator
	tokens    *accesstoken.Service
	notifier  PreferenceNotifier
	publisher EventPublisher
	baseURL   string
	now       func() time.Time
}

// NewPreferences creates the preference flows.
func NewPreferences(cfg PreferencesConfig) *Preferences {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Preferences{
		gate:      cfg.Gate,
		validator: cfg.Validator,
		tokens:    cfg.Tokens,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		baseURL:   cfg.BaseURL,
		now:       now,
	}
}

// RequestLink emails a manage link to the submitted address.
func (p *Preferences) RequestLink(ctx context.Context, req LinkRequest) (res models.Result) {
	defer recoverResult("magic_link", LinkMessages, &res)

	err := p.requestLink(ctx, req)
	if err != nil {
		slog.Warn("magic link rejected", "error", err, "remote_ip", req.RemoteIP)
	}
	return LinkMessages.Outcome(err)
}

func (p *Preferences) requestLink(ctx context.Context, req LinkRequest) error {
	if err := botError(p.gate.Check(ctx, req.Honeypot, req.CaptchaToken, req.RemoteIP)); err != nil {
		return err
	}

	email, err := p.validator.Email(req.Email)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return p.SendLink(ctx, email)
}

// SendLink issues a token for email and dispatches the magic link.
// It performs no bot checks and is also used by operator tooling.
func (p *Preferences) SendLink(ctx context.Context, email string) error {
	token, expiresAt, err := p.tokens.Issue(email)
	if err != nil {
		return fmt.Errorf("%w: issue token: %w", ErrSystem, err)
	}

	link := accesstoken.ManageURL(p.baseURL, token)
	if err := p.notifier.SendMagicLink(ctx, email, link, p.tokens.TTL()); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}

	slog.Info("magic link sent", "expires_at", expiresAt)
	return nil
}

// VerifyLink reports whether token is a valid, unexpired access token and
// which address it is bound to. It has no side effects.
func (p *Preferences) VerifyLink(token string) models.TokenCheck {
	email, ok := p.tokens.Verify(token)
	if !ok {
		return models.TokenCheck{Valid: false}
	}
	return models.TokenCheck{Valid: true, Email: &email}
}

// Update records a preference change for the address bound to the token.
// The change is only a notification: deletion is carried out by an operator.
func (p *Preferences) Update(ctx context.Context, req UpdateRequest) (res models.Result) {
	defer recoverResult("preference_update", UpdateMessages, &res)

	err := p.update(ctx, req)
	if err != nil {
		slog.Warn("preference update rejected", "error", err, "remote_ip", req.RemoteIP)
		return UpdateMessages.Outcome(err)
	}
	if req.DeleteData {
		return models.Result{Success: true, Message: DeletionAcknowledged}
	}
	return UpdateMessages.Outcome(nil)
}

func (p *Preferences) update(ctx context.Context, req UpdateRequest) error {
	if err := botError(p.gate.Verify(ctx, req.CaptchaToken, req.RemoteIP)); err != nil {
		return err
	}

	email, ok := p.tokens.Verify(req.Token)
	if !ok {
		return ErrSessionExpired
	}

	change := models.PreferenceChangeRequest{
		Email:               email,
		MarketingOptIn:      req.Marketing,
		JobUpdatesOptIn:     req.Jobs,
		DeleteDataRequested: req.DeleteData,
		RequestedAt:         p.now().UTC(),
	}

	if err := p.notifier.SendPreferenceChange(ctx, change); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}

	if p.publisher != nil {
		if _, err := p.publisher.PublishPreferenceChange(ctx, change); err != nil {
			slog.Error("failed to publish preference event", "error", err)
		}
	}

	slog.Info("preference update recorded", "delete_requested", change.DeleteDataRequested)
	return nil
}
