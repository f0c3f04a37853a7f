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

// Package graph sends notification email through the Microsoft Graph
// sendMail API, for deployments where the team inbox lives in Microsoft 365.
package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/placebyte/gateway/internal/models"
)

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Credentials identifies the app registration allowed to send mail.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// TokenURL overrides the Microsoft identity platform endpoint.
	TokenURL string
}

// TokenSource supplies bearer tokens for Graph calls.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// AppTokenSource fetches and caches app-only tokens via the client
// credentials grant. Every fetch runs under the caller's context, so the
// send deadline also bounds the token round trip.
type AppTokenSource struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewTokenSource creates a token source for creds. A nil httpClient uses
// http.DefaultClient.
func NewTokenSource(creds Credentials, httpClient *http.Client) *AppTokenSource {
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(creds.TenantID))
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AppTokenSource{
		cfg: &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{"https://graph.microsoft.com/.default"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Token returns the cached token while it is valid, otherwise fetches one.
func (s *AppTokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.Valid() {
		return s.tok, nil
	}
	tok, err := s.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient))
	if err != nil {
		return nil, fmt.Errorf("graph token: %w", err)
	}
	s.tok = tok
	return tok, nil
}

// Mailer sends messages as a single mailbox.
type Mailer struct {
	httpClient   *http.Client
	tokens       TokenSource
	graphBaseURL string
	sender       string
}

// NewMailer creates a Graph mailer. tokens may be nil when httpClient
// already authenticates its requests.
func NewMailer(httpClient *http.Client, tokens TokenSource, graphBaseURL, sender string) *Mailer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if graphBaseURL == "" {
		graphBaseURL = DefaultBaseURL
	}
	return &Mailer{
		httpClient:   httpClient,
		tokens:       tokens,
		graphBaseURL: strings.TrimRight(graphBaseURL, "/"),
		sender:       sender,
	}
}

// Send posts the message to /users/{sender}/sendMail. Graph answers
// 202 Accepted; the message is queued on Microsoft's side.
func (m *Mailer) Send(ctx context.Context, msg *models.NotificationMessage) error {
	body, err := buildSendMail(msg)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", m.graphBaseURL, url.PathEscape(m.sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if m.tokens != nil {
		tok, err := m.tokens.Token(ctx)
		if err != nil {
			return err
		}
		tok.SetAuthHeader(req)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph sendMail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
