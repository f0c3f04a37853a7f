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

// Package pipeline orchestrates the public form flows: inquiry submission,
// magic-link issuance and preference updates. Every flow returns a
// models.Result; internal errors never cross this boundary.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/placebyte/gateway/internal/models"
)

// Failure taxonomy shared by all flows.
var (
	ErrBotDetected          = errors.New("bot detected")
	ErrSecurityCheckMissing = errors.New("security check missing")
	ErrSecurityCheckFailed  = errors.New("security check failed")
	ErrValidationFailed     = errors.New("validation failed")
	ErrAttachmentTooLarge   = errors.New("attachment too large")
	ErrTransportFailed      = errors.New("transport failed")
	ErrSessionExpired       = errors.New("session expired or invalid")
	ErrSystem               = errors.New("system error")

	// ErrVerifierUnavailable is a security check failure caused by the
	// verifier itself rather than the token.
	ErrVerifierUnavailable = fmt.Errorf("%w: verifier unavailable", ErrSecurityCheckFailed)
)

// Messages holds the user-facing text of one flow.
type Messages struct {
	Success          string
	BotDetected      string
	SecurityMissing  string
	SecurityFailed   string
	VerifierError    string
	ValidationFailed string
	AttachmentTooBig string
	SessionExpired   string
	TransportFailed  string
	SystemError      string
}

// InquiryMessages are shown by the contact form.
var InquiryMessages = Messages{
	Success:          "Email sent successfully!",
	BotDetected:      "Spam detected.",
	SecurityMissing:  "Security check missing. Please refresh and try again.",
	SecurityFailed:   "Security check failed. Please reload and try again.",
	VerifierError:    "Security check failed. Please reload and try again.",
	ValidationFailed: "Invalid data. Please check your inputs.",
	AttachmentTooBig: "File too large (max 5MB)",
	TransportFailed:  "Failed to send email. Please try again later.",
	SystemError:      "Failed to send email. Please try again later.",
}

// LinkMessages are shown by the magic-link request form.
var LinkMessages = Messages{
	Success:          "Link sent! Check your inbox.",
	BotDetected:      "Spam detected.",
	SecurityMissing:  "Security check missing.",
	SecurityFailed:   "Security check failed. Please try again.",
	VerifierError:    "Security check error.",
	ValidationFailed: "Please enter a valid email address.",
	TransportFailed:  "Failed to send link. Please try again.",
	SystemError:      "Failed to send link. Please try again.",
}

// UpdateMessages are shown by the preference center. Success depends on
// whether deletion was requested, see DeletionAcknowledged.
var UpdateMessages = Messages{
	Success:          "Preferences updated successfully.",
	SecurityMissing:  "Security check missing.",
	SecurityFailed:   "Security check failed. Please try again.",
	VerifierError:    "Security check error.",
	ValidationFailed: "System error. Please try again.",
	SessionExpired:   "Session expired. Please request a new link.",
	TransportFailed:  "System error. Please try again.",
	SystemError:      "System error. Please try again.",
}

// DeletionAcknowledged replaces UpdateMessages.Success for deletion requests.
const DeletionAcknowledged = "Deletion request received. We are processing your removal."

// Outcome maps a flow error to the result shown to the user. A nil error
// is success. Unrecognised errors are reported as a system error.
func (m Messages) Outcome(err error) models.Result {
	if err == nil {
		return models.Result{Success: true, Message: m.Success}
	}

	var msg string
	switch {
	case errors.Is(err, ErrBotDetected):
		msg = m.BotDetected
	case errors.Is(err, ErrSecurityCheckMissing):
		msg = m.SecurityMissing
	case errors.Is(err, ErrVerifierUnavailable):
		msg = m.VerifierError
	case errors.Is(err, ErrSecurityCheckFailed):
		msg = m.SecurityFailed
	case errors.Is(err, ErrValidationFailed):
		msg = m.ValidationFailed
	case errors.Is(err, ErrAttachmentTooLarge):
		msg = m.AttachmentTooBig
	case errors.Is(err, ErrSessionExpired):
		msg = m.SessionExpired
	case errors.Is(err, ErrTransportFailed):
		msg = m.TransportFailed
	}
	if msg == "" {
		msg = m.SystemError
	}
	return models.Result{Success: false, Message: msg}
}

// botError classifies a gate result.
func botError(res models.BotCheckResult) error {
	switch res {
	case models.BotCheckPassed:
		return nil
	case models.BotCheckHoneypotTripped:
		return ErrBotDetected
	case models.BotCheckTokenMissing:
		return ErrSecurityCheckMissing
	case models.BotCheckVerifierError:
		return ErrVerifierUnavailable
	default:
		return fmt.Errorf("%w: %s", ErrSecurityCheckFailed, res)
	}
}

// recoverResult converts a panic inside a flow into a system error result.
func recoverResult(flow string, m Messages, res *models.Result) {
	if r := recover(); r != nil {
		slog.Error("pipeline panic recovered",
			"flow", flow,
			"panic", r,
			"stack", string(debug.Stack()),
		)
		*res = m.Outcome(ErrSystem)
	}
}
