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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/placebyte/gateway/internal/models"
	"github.com/placebyte/gateway/internal/pipeline"
)

// Handler serves the form endpoints.
type Handler struct {
	inquiry     *pipeline.Inquiry
	preferences *pipeline.Preferences
	// pingers are checked by /health; nil entries are skipped.
	pingers map[string]Pinger
}

// NewHandler creates the form endpoint handler.
func NewHandler(inquiry *pipeline.Inquiry, preferences *pipeline.Preferences, pingers map[string]Pinger) *Handler {
	return &Handler{
		inquiry:     inquiry,
		preferences: preferences,
		pingers:     pingers,
	}
}

// linkPayload is the JSON form of a magic-link request. Field names match
// the browser form so either encoding can be posted.
type linkPayload struct {
	Email        string `json:"email"`
	Honeypot     string `json:"website_url"`
	CaptchaToken string `json:"cf-turnstile-response"`
}

// updatePayload is posted by the preference center.
type updatePayload struct {
	Token          string `json:"token"`
	TurnstileToken string `json:"turnstileToken"`
	Preferences    struct {
		Marketing  bool `json:"marketing"`
		Jobs       bool `json:"jobs"`
		DeleteData bool `json:"deleteData"`
	} `json:"preferences"`
}

var invalidRequest = pipeline.InquiryMessages.Outcome(pipeline.ErrValidationFailed)

// SubmitInquiry handles POST /api/inquiry.
func (h *Handler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxInquiryBody)

	err := r.ParseMultipartForm(models.MaxAttachmentSize + 1<<20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondJSON(w, http.StatusRequestEntityTooLarge,
				pipeline.InquiryMessages.Outcome(pipeline.ErrAttachmentTooLarge))
			return
		}
		slog.Warn("malformed inquiry body", "error", err)
		respondJSON(w, http.StatusBadRequest, invalidRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var fields models.Fields
	for _, key := range models.InquiryFields {
		if v, ok := r.Form[key]; ok && len(v) > 0 {
			fields = append(fields, models.Field{Key: key, Value: v[0]})
		}
	}

	res := h.inquiry.Submit(r.Context(), pipeline.InquiryRequest{
		Fields:       fields,
		Honeypot:     r.FormValue(models.FieldHoneypot),
		CaptchaToken: r.FormValue(models.FieldCaptchaToken),
		RemoteIP:     remoteIP(r),
		File:         uploadedFile(r.MultipartForm),
	})
	respondJSON(w, http.StatusOK, res)
}

// RequestLink handles POST /api/preferences/link.
func (h *Handler) RequestLink(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)

	var payload linkPayload
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondJSON(w, http.StatusBadRequest, pipeline.LinkMessages.Outcome(pipeline.ErrValidationFailed))
			return
		}
	} else {
		payload = linkPayload{
			Email:        r.FormValue(models.FieldEmail),
			Honeypot:     r.FormValue(models.FieldHoneypot),
			CaptchaToken: r.FormValue(models.FieldCaptchaToken),
		}
	}

	res := h.preferences.RequestLink(r.Context(), pipeline.LinkRequest{
		Email:        payload.Email,
		Honeypot:     payload.Honeypot,
		CaptchaToken: payload.CaptchaToken,
		RemoteIP:     remoteIP(r),
	})
	respondJSON(w, http.StatusOK, res)
}

// VerifyLink handles GET /api/preferences/verify?token=.
func (h *Handler) VerifyLink(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.preferences.VerifyLink(r.URL.Query().Get("token")))
}

// UpdatePreferences handles POST /api/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)

	var payload updatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, pipeline.UpdateMessages.Outcome(pipeline.ErrValidationFailed))
		return
	}

	res := h.preferences.Update(r.Context(), pipeline.UpdateRequest{
		Token:        payload.Token,
		CaptchaToken: payload.TurnstileToken,
		Marketing:    payload.Preferences.Marketing,
		Jobs:         payload.Preferences.Jobs,
		DeleteData:   payload.Preferences.DeleteData,
		RemoteIP:     remoteIP(r),
	})
	respondJSON(w, http.StatusOK, res)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, p := range h.pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			slog.Error("health probe failed", "dependency", name, "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":     "degraded",
				"dependency": name,
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func uploadedFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := form.File[models.FieldAttachment]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// remoteIP strips the port RemoteAddr carries unless RealIP replaced it.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
