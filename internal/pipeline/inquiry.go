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
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/placebyte/gateway/internal/attachment"
	"github.com/placebyte/gateway/internal/models"
	"github.com/placebyte/gateway/internal/validate"
)

// BotGate is the bot defense gate used by every flow.
type BotGate interface {
	Check(ctx context.Context, honeypot, token, remoteIP string) models.BotCheckResult
	Verify(ctx context.Context, token, remoteIP string) models.BotCheckResult
}

// InquiryNotifier delivers a validated inquiry to the team inbox.
type InquiryNotifier interface {
	SendInquiry(ctx context.Context, sub *models.InquirySubmission) error
}

// InquiryRequest is a parsed contact form post.
type InquiryRequest struct {
	Fields       models.Fields
	Honeypot     string
	CaptchaToken string
	RemoteIP     string
	File         *multipart.FileHeader
}

// Inquiry runs the contact form flow.
type Inquiry struct {
	gate      BotGate
	validator *validate.Validator
	notifier  InquiryNotifier
}

// NewInquiry creates the inquiry flow.
func NewInquiry(gate BotGate, validator *validate.Validator, notifier InquiryNotifier) *Inquiry {
	return &Inquiry{
		gate:      gate,
		validator: validator,
		notifier:  notifier,
	}
}

// Submit runs bot defense, validation, attachment loading and dispatch,
// stopping at the first failure.
func (p *Inquiry) Submit(ctx context.Context, req InquiryRequest) (res models.Result) {
	defer recoverResult("inquiry", InquiryMessages, &res)

	start := time.Now()
	err := p.submit(ctx, req)
	if err != nil {
		slog.Warn("inquiry rejected",
			"error", err,
			"remote_ip", req.RemoteIP,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		slog.Info("inquiry delivered",
			"type", req.Fields.Get(models.FieldTypeParam),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return InquiryMessages.Outcome(err)
}

func (p *Inquiry) submit(ctx context.Context, req InquiryRequest) error {
	if err := botError(p.gate.Check(ctx, req.Honeypot, req.CaptchaToken, req.RemoteIP)); err != nil {
		return err
	}

	sub, err := p.validator.Inquiry(req.Fields)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	att, err := attachment.FromMultipart(req.File)
	if err != nil {
		if errors.Is(err, attachment.ErrTooLarge) {
			return fmt.Errorf("%w: %w", ErrAttachmentTooLarge, err)
		}
		return fmt.Errorf("%w: load attachment: %w", ErrSystem, err)
	}
	sub.Attachment = att

	if err := p.validator.RequireAttachment(sub); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	if err := p.notifier.SendInquiry(ctx, sub); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}
	return nil
}
