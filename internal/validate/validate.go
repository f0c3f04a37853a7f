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

// Package validate checks contact form submissions against the inquiry
// schema and normalizes them into typed records.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/placebyte/gateway/internal/models"
)

// ErrValidation is matched by every *Error.
var ErrValidation = errors.New("validation failed")

// emailPattern is the address shape the site accepts: local@domain.tld.
// Deliberately permissive; not RFC 5322.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError names one failed constraint.
type FieldError struct {
	Field string
	Rule  string
}

// Error lists every constraint a submission failed.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Rule)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, ", "))
}

// Is lets callers match with errors.Is(err, ErrValidation).
func (e *Error) Is(target error) bool { return target == ErrValidation }

// inquiryInput is the validation view of a submission.
type inquiryInput struct {
	Name          string `validate:"required,max=200"`
	Email         string `validate:"required,max=254,siteemail"`
	Company       string `validate:"max=200"`
	Phone         string `validate:"max=50"`
	Service       string `validate:"max=200"`
	Role          string `validate:"max=200"`
	SpecificRole  string `validate:"max=200"`
	ContactMethod string `validate:"max=100"`
	Details       string `validate:"max=5000"`
	Message       string `validate:"max=5000"`
	TypeParam     string `validate:"max=50"`
}

// typeRequirements lists the fields each submission type must carry in
// addition to name and email.
var typeRequirements = map[string][]string{
	models.TypeClient:  {models.FieldCompany, models.FieldPhone},
	models.TypeTalent:  {models.FieldPhone},
	models.TypeGeneral: {models.FieldMessage},
}

// Validator validates inquiry submissions.
type Validator struct {
	v *validator.Validate

	// strict enforces per-type required fields in addition to the
	// universal minimum.
	strict bool
}

// New creates a Validator. With strict set, the type-specific required
// sets ("client", "talent", "general") are enforced here rather than
// trusted to the browser.
func New(strict bool) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("siteemail", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	return &Validator{v: v, strict: strict}
}

// IsEmail reports whether s has the accepted address shape.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Email validates a bare email address, as submitted to the magic-link form.
func (v *Validator) Email(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if err := v.v.Var(email, "required,max=254,siteemail"); err != nil {
		return "", translate(err)
	}
	return email, nil
}

// Inquiry validates raw form fields and returns a normalized submission.
// Unknown keys are dropped; known keys keep their submitted order.
func (v *Validator) Inquiry(raw models.Fields) (*models.InquirySubmission, error) {
	known := make(map[string]bool, len(models.InquiryFields))
	for _, k := range models.InquiryFields {
		known[k] = true
	}

	var fields models.Fields
	for _, f := range raw {
		if !known[f.Key] {
			continue
		}
		fields.Set(f.Key, strings.TrimSpace(f.Value))
	}

	in := inquiryInput{
		Name:          fields.Get(models.FieldName),
		Email:         fields.Get(models.FieldEmail),
		Company:       fields.Get(models.FieldCompany),
		Phone:         fields.Get(models.FieldPhone),
		Service:       fields.Get(models.FieldService),
		Role:          fields.Get(models.FieldRole),
		SpecificRole:  fields.Get(models.FieldSpecificRole),
		ContactMethod: fields.Get(models.FieldContactMethod),
		Details:       fields.Get(models.FieldDetails),
		Message:       fields.Get(models.FieldMessage),
		TypeParam:     fields.Get(models.FieldTypeParam),
	}

	var failed []FieldError
	if err := v.v.Struct(in); err != nil {
		var verr *Error
		if errors.As(translate(err), &verr) {
			failed = append(failed, verr.Fields...)
		} else {
			return nil, err
		}
	}

	if v.strict {
		for _, key := range typeRequirements[in.TypeParam] {
			if fields.Get(key) == "" {
				failed = append(failed, FieldError{Field: key, Rule: "required"})
			}
		}
	}

	if len(failed) > 0 {
		return nil, &Error{Fields: failed}
	}
	return &models.InquirySubmission{Fields: fields}, nil
}

// RequireAttachment reports whether the submission type must carry a file.
// Only talent submissions (a CV) do, and only in strict mode.
func (v *Validator) RequireAttachment(sub *models.InquirySubmission) error {
	if v.strict && sub.Type() == models.TypeTalent && sub.Attachment == nil {
		return &Error{Fields: []FieldError{{Field: models.FieldAttachment, Rule: "required"}}}
	}
	return nil
}

// fieldKeys maps struct field names back to form keys.
var fieldKeys = map[string]string{
	"Name":          models.FieldName,
	"Email":         models.FieldEmail,
	"Company":       models.FieldCompany,
	"Phone":         models.FieldPhone,
	"Service":       models.FieldService,
	"Role":          models.FieldRole,
	"SpecificRole":  models.FieldSpecificRole,
	"ContactMethod": models.FieldContactMethod,
	"Details":       models.FieldDetails,
	"Message":       models.FieldMessage,
	"TypeParam":     models.FieldTypeParam,
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		key, ok := fieldKeys[fe.Field()]
		if !ok {
			key = models.FieldEmail // Var() on a bare address has no field name
		}
		out.Fields = append(out.Fields, FieldError{Field: key, Rule: fe.Tag()})
	}
	return out
}
