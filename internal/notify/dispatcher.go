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

// Package notify renders notification emails and hands them to an outbound
// mail transport. Delivery, retries and bounces belong to the transport's
// provider; the dispatcher only reports whether the hand-off succeeded.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/placebyte/gateway/internal/attachment"
	"github.com/placebyte/gateway/internal/models"
)

// ErrTransport wraps every failure to hand a message to the transport.
var ErrTransport = errors.New("notification transport failed")

// Subject tags for preference updates. Mail filters on the team inbox
// route on these prefixes.
const (
	PrefUpdateTag    = "[PREF_UPDATE]"
	DeleteRequestTag = "[DELETE_REQUEST]"
)

// Transport delivers a rendered message to a mail provider.
type Transport interface {
	Send(ctx context.Context, msg *models.NotificationMessage) error
}

// Addresses holds the sender identities and the team inbox.
type Addresses struct {
	FromInquiry  string
	FromSecurity string
	FromSystem   string
	TeamInbox    string
}

// Dispatcher renders and sends notifications.
type Dispatcher struct {
	transport Transport
	addr      Addresses
	timeout   time.Duration
}

// NewDispatcher creates a dispatcher. A positive timeout bounds each send.
func NewDispatcher(transport Transport, addr Addresses, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		addr:      addr,
		timeout:   timeout,
	}
}

// InquirySubject builds the subject line for a contact form submission.
func InquirySubject(sub *models.InquirySubmission) string {
	company := sub.Company()
	if company == "" {
		company = "No company"
	}
	return subjectSafe(fmt.Sprintf("Inquiry from %s (%s)", sub.Name(), company))
}

// PreferenceSubject builds the machine-parseable subject for an update.
func PreferenceSubject(req models.PreferenceChangeRequest) string {
	tag := PrefUpdateTag
	if req.DeleteDataRequested {
		tag += DeleteRequestTag
	}
	return subjectSafe(tag + " " + req.Email)
}

// SendInquiry notifies the team inbox of a contact form submission.
func (d *Dispatcher) SendInquiry(ctx context.Context, sub *models.InquirySubmission) error {
	html, err := RenderInquiry(sub)
	if err != nil {
		return err
	}

	msg := &models.NotificationMessage{
		From:    d.addr.FromInquiry,
		To:      []string{d.addr.TeamInbox},
		ReplyTo: sub.Email(),
		Subject: InquirySubject(sub),
		HTML:    html,
	}
	if sub.Attachment != nil {
		msg.Attachments = []models.OutboundAttachment{attachment.Outbound(sub.Attachment)}
	}

	return d.dispatch(ctx, msg)
}

// SendMagicLink emails a preference-center link to the requesting address.
func (d *Dispatcher) SendMagicLink(ctx context.Context, email, link string, ttl time.Duration) error {
	html, err := RenderMagicLink(link, ttl)
	if err != nil {
		return err
	}

	return d.dispatch(ctx, &models.NotificationMessage{
		From:    d.addr.FromSecurity,
		To:      []string{email},
		Subject: "Manage your PlaceByte Preferences",
		HTML:    html,
	})
}

// SendPreferenceChange notifies the team inbox of a preference update.
func (d *Dispatcher) SendPreferenceChange(ctx context.Context, req models.PreferenceChangeRequest) error {
	html, err := RenderPreferenceChange(req)
	if err != nil {
		return err
	}

	return d.dispatch(ctx, &models.NotificationMessage{
		From:    d.addr.FromSystem,
		To:      []string{d.addr.TeamInbox},
		Subject: PreferenceSubject(req),
		HTML:    html,
	})
}

// dispatch makes exactly one transport call.
func (d *Dispatcher) dispatch(ctx context.Context, msg *models.NotificationMessage) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	slog.Info("notification dispatched",
		"recipients", len(msg.To),
		"attachments", len(msg.Attachments),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
