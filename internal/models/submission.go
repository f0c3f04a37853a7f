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

// Package models defines the data structures shared across the gateway.
package models

import (
	"encoding/base64"
	"time"
)

// Well-known form field names.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldCompany       = "company"
	FieldPhone         = "phone"
	FieldService       = "service"
	FieldRole          = "role"
	FieldSpecificRole  = "specificRole"
	FieldContactMethod = "contactMethod"
	FieldDetails       = "details"
	FieldMessage       = "message"
	FieldTypeParam     = "typeParam"

	// FieldHoneypot is hidden from humans by the front end.
	FieldHoneypot = "website_url"
	FieldTerms    = "terms"

	// FieldCaptchaToken is the Turnstile widget's form field.
	FieldCaptchaToken = "cf-turnstile-response"
	// FieldAttachment is the multipart file field carrying a CV.
	FieldAttachment = "cv"
)

// Submission types selected by typeParam.
const (
	TypeClient  = "client"
	TypeTalent  = "talent"
	TypeGeneral = "general"
)

// InquiryFields lists the inquiry fields in their canonical order.
var InquiryFields = []string{
	FieldName, FieldEmail, FieldCompany, FieldPhone, FieldService, FieldRole,
	FieldSpecificRole, FieldContactMethod, FieldDetails, FieldMessage, FieldTypeParam,
}

// Field is a single named form value.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered set of form values. Order is significant: the
// notification renders fields in the order they were submitted.
type Fields []Field

// Get returns the value for key, or "" when absent.
func (f Fields) Get(key string) string {
	for _, field := range f {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// Set replaces the value for key, appending it when absent.
func (f *Fields) Set(key, value string) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// MaxAttachmentSize is the largest accepted upload (5 MiB).
const MaxAttachmentSize = 5 * 1024 * 1024

// Attachment is an uploaded file held in memory for the lifetime of a request.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// Encoded returns the attachment content as standard base64.
func (a *Attachment) Encoded() string {
	return base64.StdEncoding.EncodeToString(a.Content)
}

// InquirySubmission is a validated contact form submission.
type InquirySubmission struct {
	Fields     Fields
	Attachment *Attachment
}

// Name returns the submitter's name.
func (s *InquirySubmission) Name() string { return s.Fields.Get(FieldName) }

// Email returns the submitter's email address.
func (s *InquirySubmission) Email() string { return s.Fields.Get(FieldEmail) }

// Company returns the submitter's company, possibly empty.
func (s *InquirySubmission) Company() string { return s.Fields.Get(FieldCompany) }

// Type returns the submission type selector.
func (s *InquirySubmission) Type() string { return s.Fields.Get(FieldTypeParam) }

// PreferenceChangeRequest is a preference-center update bound to the email
// address recovered from a verified access token.
type PreferenceChangeRequest struct {
	Email               string    `json:"user_email"`
	MarketingOptIn      bool      `json:"marketing_opt_in"`
	JobUpdatesOptIn     bool      `json:"job_updates_opt_in"`
	DeleteDataRequested bool      `json:"request_deletion"`
	RequestedAt         time.Time `json:"timestamp"`
}
