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

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("TURNSTILE_SECRET_KEY", "turnstile-secret")
	t.Setenv("ACCESS_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("MAIL_PROVIDER", "log")
	t.Setenv("SITE_BASE_URL", "https://placebyte.com")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// TestCommandStructure verifies that all commands are properly registered
func TestCommandStructure(t *testing.T) {
	for _, name := range []string{"issue", "verify", "send-link"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			if err != nil || cmd == nil {
				t.Fatalf("command %q not found: %v", name, err)
			}
			if cmd.Short == "" {
				t.Errorf("command %q has no Short description", name)
			}
		})
	}
}

// TestIssueThenVerify verifies an issued link verifies for the same address.
func TestIssueThenVerify(t *testing.T) {
	setEnv(t)

	out, err := run(t, "issue", "user@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	link := strings.SplitN(out, "\n", 2)[0]
	if !strings.HasPrefix(link, "https://placebyte.com/userpreferences/manage?token=") {
		t.Fatalf("unexpected link: %q", link)
	}

	out, err = run(t, "verify", link)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if strings.TrimSpace(out) != "user@x.com" {
		t.Errorf("verify printed %q, want user@x.com", out)
	}
}

// TestIssue_LifetimeIsFixed verifies the environment cannot stretch a
// link's one hour lifetime.
func TestIssue_LifetimeIsFixed(t *testing.T) {
	setEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "720h")

	before := time.Now().UTC()
	out, err := run(t, "issue", "user@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var expiry string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "expires ") {
			expiry = strings.TrimPrefix(line, "expires ")
		}
	}
	expiresAt, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		t.Fatalf("parse expiry %q: %v", expiry, err)
	}
	if expiresAt.After(before.Add(time.Hour + time.Minute)) {
		t.Errorf("expires %v, want about one hour after %v", expiresAt, before)
	}
}

func TestVerify_Invalid(t *testing.T) {
	setEnv(t)

	out, err := run(t, "verify", "not-a-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
	if strings.TrimSpace(out) != "invalid" {
		t.Errorf("verify printed %q, want invalid", out)
	}
}

func TestIssue_RejectsBadEmail(t *testing.T) {
	setEnv(t)

	if _, err := run(t, "issue", "nope"); err == nil {
		t.Error("expected error for malformed email")
	}
}

// TestSendLink_LogTransport verifies the operator path dispatches a link.
func TestSendLink_LogTransport(t *testing.T) {
	setEnv(t)

	out, err := run(t, "send-link", "user@x.com")
	if err != nil {
		t.Fatalf("send-link: %v", err)
	}
	if !strings.Contains(out, "link sent to user@x.com") {
		t.Errorf("unexpected output: %q", out)
	}
}

// TestRefusesWeakSecret verifies the CLI shares the server's secret policy.
func TestRefusesWeakSecret(t *testing.T) {
	setEnv(t)
	t.Setenv("ACCESS_TOKEN_SECRET", "fallback_secret_please_change")

	if _, err := run(t, "issue", "user@x.com"); err == nil {
		t.Error("expected error for placeholder secret")
	}
}

func TestTokenArg(t *testing.T) {
	tests := map[string]string{
		"abc.def.ghi": "abc.def.ghi",
		"https://placebyte.com/userpreferences/manage?token=abc.def.ghi": "abc.def.ghi",
		"  abc  ": "abc",
	}
	for in, want := range tests {
		if got := tokenArg(in); got != want {
			t.Errorf("tokenArg(%q) = %q, want %q", in, got, want)
		}
	}
}
