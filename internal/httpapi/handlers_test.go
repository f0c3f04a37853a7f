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

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/placebyte/gateway/internal/accesstoken"
	"github.com/placebyte/gateway/internal/models"
	"github.com/placebyte/gateway/internal/notify"
	"github.com/placebyte/gateway/internal/pipeline"
	"github.com/placebyte/gateway/internal/validate"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// passGate accepts any non-empty token.
type passGate struct{}

func (passGate) Check(ctx context.Context, honeypot, token, remoteIP string) models.BotCheckResult {
	if honeypot != "" {
		return models.BotCheckHoneypotTripped
	}
	return passGate{}.Verify(ctx, token, remoteIP)
}

func (passGate) Verify(_ context.Context, token, _ string) models.BotCheckResult {
	if token == "" {
		return models.BotCheckTokenMissing
	}
	return models.BotCheckPassed
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []*models.NotificationMessage
}

func (r *recordingTransport) Send(_ context.Context, msg *models.NotificationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type testEnv struct {
	router    http.Handler
	server    *httptest.Server
	transport *recordingTransport
	tokens    *accesstoken.Service
}

func newTestEnv(t *testing.T, pingers map[string]Pinger) *testEnv {
	t.Helper()

	tokens, err := accesstoken.New(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	transport := &recordingTransport{}
	dispatcher := notify.NewDispatcher(transport, notify.Addresses{
		FromInquiry:  "inquiries@placebyte.com",
		FromSecurity: "security@placebyte.com",
		FromSystem:   "system@placebyte.com",
		TeamInbox:    "team@placebyte.com",
	}, time.Second)
	validator := validate.New(true)

	handler := NewHandler(
		pipeline.NewInquiry(passGate{}, validator, dispatcher),
		pipeline.NewPreferences(pipeline.PreferencesConfig{
			Gate:      passGate{},
			Validator: validator,
			Tokens:    tokens,
			Notifier:  dispatcher,
			BaseURL:   "https://placebyte.com",
		}),
		pingers,
	)

	router := NewRouter(RouterConfig{
		Handler:        handler,
		AllowedOrigins: []string{"https://placebyte.com"},
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{router: router, server: server, transport: transport, tokens: tokens}
}

func decodeResult(t *testing.T, resp *http.Response) models.Result {
	t.Helper()
	defer resp.Body.Close()
	var res models.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

// multipartBody encodes fields and an optional cv file.
func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(models.FieldAttachment, "cv.pdf")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(file)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, map[string]Pinger{"redis": stubPinger{}})

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, map[string]Pinger{"redis": stubPinger{err: errors.New("connection refused")}})

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

// TestSecurityHeaders verifies every response carries the CSP and a fresh
// nonce, exposed in a header matching the policy.
func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	var policies []string
	for i := 0; i < 2; i++ {
		resp, err := http.Get(env.server.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		csp := resp.Header.Get("Content-Security-Policy")
		if !strings.Contains(csp, TurnstileOrigin) || !strings.Contains(csp, "'nonce-") {
			t.Errorf("unexpected CSP: %q", csp)
		}
		nonce := resp.Header.Get(NonceHeader)
		if nonce == "" || !strings.Contains(csp, "'nonce-"+nonce+"'") {
			t.Errorf("%s = %q does not match CSP %q", NonceHeader, nonce, csp)
		}
		if resp.Header.Get("X-Frame-Options") != "DENY" {
			t.Error("missing X-Frame-Options")
		}
		if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing X-Content-Type-Options")
		}
		policies = append(policies, csp)
	}
	if policies[0] == policies[1] {
		t.Error("nonce should differ per response")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		origin string
		want   int
	}{
		{origin: "https://placebyte.com", want: http.StatusNoContent},
		{origin: "https://evil.example", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/inquiry", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusNoContent && resp.Header.Get("Access-Control-Allow-Origin") != tt.origin {
				t.Error("missing Access-Control-Allow-Origin")
			}
		})
	}
}

// TestSubmitInquiry_Multipart verifies the full multipart path with a CV.
func TestSubmitInquiry_Multipart(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, map[string]string{
		"name":                  "Jane Doe",
		"email":                 "jane@co.com",
		"phone":                 "555-0100",
		"typeParam":             "talent",
		"website_url":           "",
		"cf-turnstile-response": "ok",
	}, []byte("%PDF-1.7"))

	resp, err := http.Post(env.server.URL+"/api/inquiry", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	res := decodeResult(t, resp)
	if !res.Success || res.Message != "Email sent successfully!" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if env.transport.count() != 1 {
		t.Fatalf("expected 1 email, got %d", env.transport.count())
	}
	if len(env.transport.sent[0].Attachments) != 1 {
		t.Error("expected the CV to be attached")
	}
}

func TestSubmitInquiry_Honeypot(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, map[string]string{
		"name":                  "Bot",
		"email":                 "bot@spam.com",
		"website_url":           "http://spam.example",
		"cf-turnstile-response": "ok",
	}, nil)

	resp, err := http.Post(env.server.URL+"/api/inquiry", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	res := decodeResult(t, resp)
	if res.Success || res.Message != "Spam detected." {
		t.Errorf("unexpected result: %+v", res)
	}
	if env.transport.count() != 0 {
		t.Errorf("expected 0 emails, got %d", env.transport.count())
	}
}

func TestSubmitInquiry_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.server.URL+"/api/inquiry", "multipart/form-data", strings.NewReader("garbage"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if res := decodeResult(t, resp); res.Success {
		t.Error("expected failure result")
	}
}

// TestSubmitInquiry_BodyTooLarge verifies bodies beyond the limit are
// refused without sending email.
func TestSubmitInquiry_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, map[string]string{
		"name":                  "Jane",
		"email":                 "jane@co.com",
		"cf-turnstile-response": "ok",
	}, make([]byte, MaxInquiryBody+1))

	req := httptest.NewRequest(http.MethodPost, "/api/inquiry", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Error("expected a non-200 status")
	}
	if res := decodeResult(t, rec.Result()); res.Success {
		t.Error("expected failure result")
	}
	if env.transport.count() != 0 {
		t.Errorf("expected 0 emails, got %d", env.transport.count())
	}
}

func TestRequestLink_JSONAndForm(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.server.URL+"/api/preferences/link", "application/json",
		strings.NewReader(`{"email":"user@x.com","cf-turnstile-response":"ok"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res := decodeResult(t, resp); !res.Success || res.Message != "Link sent! Check your inbox." {
		t.Errorf("JSON: unexpected result: %+v", res)
	}

	resp, err = http.PostForm(env.server.URL+"/api/preferences/link", url.Values{
		"email":                 {"user@x.com"},
		"cf-turnstile-response": {"ok"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res := decodeResult(t, resp); !res.Success {
		t.Errorf("form: unexpected result: %+v", res)
	}

	if env.transport.count() != 2 {
		t.Errorf("expected 2 emails, got %d", env.transport.count())
	}
}

func TestVerifyLink(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _, err := env.tokens.Issue("user@x.com")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		token     string
		wantValid bool
	}{
		{name: "valid", token: token, wantValid: true},
		{name: "garbage", token: "abc", wantValid: false},
		{name: "empty", token: "", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(env.server.URL + "/api/preferences/verify?token=" + url.QueryEscape(tt.token))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			var check models.TokenCheck
			if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
				t.Fatal(err)
			}
			if check.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", check.Valid, tt.wantValid)
			}
			if tt.wantValid && (check.Email == nil || *check.Email != "user@x.com") {
				t.Errorf("email = %v", check.Email)
			}
			if !tt.wantValid && check.Email != nil {
				t.Errorf("email should be null, got %q", *check.Email)
			}
		})
	}
}

func TestUpdatePreferences_Deletion(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _, _ := env.tokens.Issue("user@x.com")

	payload := `{"token":"` + token + `","turnstileToken":"ok","preferences":{"marketing":false,"jobs":false,"deleteData":true}}`
	resp, err := http.Post(env.server.URL+"/api/preferences", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}

	res := decodeResult(t, resp)
	if !res.Success || res.Message != pipeline.DeletionAcknowledged {
		t.Errorf("unexpected result: %+v", res)
	}
	if env.transport.count() != 1 {
		t.Fatalf("expected 1 email, got %d", env.transport.count())
	}
	if !strings.Contains(env.transport.sent[0].Subject, notify.DeleteRequestTag) {
		t.Errorf("subject = %q", env.transport.sent[0].Subject)
	}
}

func TestUpdatePreferences_MalformedJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.server.URL+"/api/preferences", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
