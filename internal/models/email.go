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

package models

// OutboundAttachment is a file attached to an outbound notification.
// Content is base64 encoded, which is what the mail APIs expect.
type OutboundAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	Disposition string `json:"disposition,omitempty"`
}

// NotificationMessage is a rendered email ready to hand to a transport.
type NotificationMessage struct {
	From        string               `json:"from"`
	To          []string             `json:"to"`
	ReplyTo     string               `json:"reply_to,omitempty"`
	Subject     string               `json:"subject"`
	HTML        string               `json:"html"`
	Attachments []OutboundAttachment `json:"attachments,omitempty"`
}

// BotCheckResult is the outcome of the bot defense gate.
type BotCheckResult int

const (
	BotCheckPassed BotCheckResult = iota
	BotCheckHoneypotTripped
	BotCheckTokenMissing
	BotCheckTokenRejected
	BotCheckVerifierError
)

func (r BotCheckResult) String() string {
	switch r {
	case BotCheckPassed:
		return "passed"
	case BotCheckHoneypotTripped:
		return "honeypot_tripped"
	case BotCheckTokenMissing:
		return "token_missing"
	case BotCheckTokenRejected:
		return "token_rejected"
	case BotCheckVerifierError:
		return "verifier_error"
	default:
		return "unknown"
	}
}

// Result is the uniform response returned by every pipeline.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TokenCheck is the response of a magic-link verification.
type TokenCheck struct {
	Valid bool    `json:"valid"`
	Email *string `json:"email"`
}
