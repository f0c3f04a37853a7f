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

package accesstoken

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	secretA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	secretB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newService(t *testing.T, secret string, clock *fakeClock) *Service {
	t.Helper()
	s, err := New(secret, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// TestNew_RejectsWeakSecrets verifies there is no insecure fallback.
func TestNew_RejectsWeakSecrets(t *testing.T) {
	for _, secret := range []string{"", "   ", "fallback_secret_please_change", "short"} {
		if _, err := New(secret); err == nil {
			t.Errorf("New(%q) should fail", secret)
		}
	}
	if _, err := New(secretA, WithTTL(0)); err == nil {
		t.Error("zero TTL should be rejected")
	}
}

// TestNew_DefaultTTL verifies links live exactly one hour by default.
func TestNew_DefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newService(t, secretA, clock)

	if s.TTL() != time.Hour {
		t.Errorf("TTL = %v, want 1h", s.TTL())
	}
	_, expiresAt, err := s.Issue("user@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(clock.t.Add(time.Hour)) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, clock.t.Add(time.Hour))
	}
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "strong", secret: secretA},
		{name: "empty", secret: "", wantErr: true},
		{name: "placeholder", secret: "fallback_secret_please_change", wantErr: true},
		{name: "short", secret: strings.Repeat("x", MinSecretLength-1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSecret(tt.secret); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestIssueVerify_RoundTrip verifies a fresh token carries its email.
func TestIssueVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newService(t, secretA, clock)

	token, expiresAt, err := s.Issue("user@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := clock.t.Add(time.Hour); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}

	clock.t = clock.t.Add(59 * time.Minute)
	email, ok := s.Verify(token)
	if !ok || email != "user@x.com" {
		t.Errorf("Verify() = %q, %v; want user@x.com, true", email, ok)
	}
}

// TestVerify_Expired verifies tokens die after one hour.
func TestVerify_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newService(t, secretA, clock)

	token, _, err := s.Issue("user@x.com")
	if err != nil {
		t.Fatal(err)
	}

	clock.t = clock.t.Add(time.Hour + time.Second)
	if email, ok := s.Verify(token); ok || email != "" {
		t.Errorf("expired token verified: %q, %v", email, ok)
	}
}

// TestVerify_WrongSecret verifies tokens signed elsewhere are rejected.
func TestVerify_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newService(t, secretB, clock)
	verifier := newService(t, secretA, clock)

	token, _, _ := issuer.Issue("user@x.com")
	if _, ok := verifier.Verify(token); ok {
		t.Error("token signed with a different secret should not verify")
	}
}

// TestVerify_Malformed covers garbage and tampered tokens.
func TestVerify_Malformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newService(t, secretA, clock)
	token, _, _ := s.Issue("user@x.com")

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for _, raw := range []string{"", "not-a-token", "a.b.c", tampered} {
		if _, ok := s.Verify(raw); ok {
			t.Errorf("Verify(%q) should fail", raw)
		}
	}
}

// TestVerify_RejectsUnsignedAndForeignTokens verifies alg=none, other
// algorithms and tokens without the access type are refused.
func TestVerify_RejectsUnsignedAndForeignTokens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newService(t, secretA, clock)

	claims := jwt.MapClaims{
		"email": "user@x.com",
		"typ":   "pref_access",
		"iat":   clock.t.Unix(),
		"exp":   clock.t.Add(time.Hour).Unix(),
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Verify(unsigned); ok {
		t.Error("alg=none token should not verify")
	}

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secretA))
	if _, ok := s.Verify(hs512); ok {
		t.Error("HS512 token should not verify")
	}

	noType := jwt.MapClaims{"email": "user@x.com", "exp": clock.t.Add(time.Hour).Unix()}
	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, noType).SignedString([]byte(secretA))
	if _, ok := s.Verify(foreign); ok {
		t.Error("token without the access type should not verify")
	}

	noExp := jwt.MapClaims{"email": "user@x.com", "typ": "pref_access"}
	forever, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte(secretA))
	if _, ok := s.Verify(forever); ok {
		t.Error("token without expiry should not verify")
	}
}

func TestIssue_RequiresEmail(t *testing.T) {
	s := newService(t, secretA, &fakeClock{t: time.Now()})
	if _, _, err := s.Issue("  "); err == nil {
		t.Error("expected error for empty email")
	}
}

func TestManageURL(t *testing.T) {
	got := ManageURL("https://placebyte.com/", "a.b+c")
	u, err := url.Parse(got)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != ManagePath {
		t.Errorf("path = %q", u.Path)
	}
	if u.Query().Get("token") != "a.b+c" {
		t.Errorf("token = %q", u.Query().Get("token"))
	}
}
