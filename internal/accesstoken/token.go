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

// Package accesstoken issues and verifies the short-lived signed tokens
// carried by preference-center magic links.
//
// Tokens are HS256 JWTs binding an email address. They are stateless:
// there is no session table and no revocation, so expiry is the only
// limit on a leaked link.
package accesstoken

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a magic link.
const DefaultTTL = time.Hour

// MinSecretLength is the shortest accepted signing secret, in bytes.
const MinSecretLength = 32

// weakSecret is the placeholder that shipped in early site builds.
const weakSecret = "fallback_secret_please_change"

// ManagePath is the site page that consumes a magic link.
const ManagePath = "/userpreferences/manage"

const (
	claimEmail = "email"
	claimType  = "typ"
	tokenType  = "pref_access"
)

// Service issues and verifies access tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the token lifetime. Only tests use it; deployments
// always run with DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a token service. It refuses empty, placeholder or short
// secrets instead of falling back to a default.
func New(secret string, opts ...Option) (*Service, error) {
	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}
	s := &Service{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return s, nil
}

// ValidateSecret reports whether secret is strong enough to sign tokens.
func ValidateSecret(secret string) error {
	switch {
	case strings.TrimSpace(secret) == "":
		return fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	case secret == weakSecret:
		return fmt.Errorf("ACCESS_TOKEN_SECRET is set to the placeholder value")
	case len(secret) < MinSecretLength:
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes", MinSecretLength)
	}
	return nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a signed token for email.
func (s *Service) Issue(email string) (string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", time.Time{}, fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		claimEmail: email,
		claimType:  tokenType,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of a token and returns the bound
// email. Every failure (bad signature, malformed, expired, wrong type)
// yields ok == false with no further detail.
func (s *Service) Verify(raw string) (email string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	if claimString(claims, claimType) != tokenType {
		return "", false
	}
	email = claimString(claims, claimEmail)
	if email == "" {
		return "", false
	}
	return email, true
}

// ManageURL composes the magic link for a token.
func ManageURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + ManagePath + "?token=" + url.QueryEscape(token)
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	v, _ := raw.(string)
	return v
}
