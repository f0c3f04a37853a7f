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

package notify

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"

	"github.com/placebyte/gateway/internal/models"
)

// skippedKeys are bookkeeping fields never shown in a notification.
var skippedKeys = map[string]bool{
	models.FieldHoneypot:  true,
	models.FieldTypeParam: true,
	models.FieldTerms:     true,
}

// Row is one label/value line of a rendered submission.
type Row struct {
	Label string
	Value string
}

// RenderFields lists the displayable fields in submission order.
func RenderFields(fields models.Fields) []Row {
	rows := make([]Row, 0, len(fields))
	for _, f := range fields {
		if skippedKeys[f.Key] || f.Value == "" {
			continue
		}
		rows = append(rows, Row{Label: Label(f.Key), Value: f.Value})
	}
	return rows
}

// Label turns a camel-case field key into capitalized words:
// "specificRole" becomes "Specific Role".
func Label(key string) string {
	var words []string
	var cur []rune
	for _, r := range key {
		if unicode.IsUpper(r) && len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
		if r == '_' || r == '-' {
			if len(cur) > 0 {
				words = append(words, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}

	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// subjectSafe strips line breaks so user input cannot add headers.
func subjectSafe(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var inquiryTmpl = template.Must(template.New("inquiry").Parse(`
<div style="font-family: sans-serif; padding: 20px; color: #333;">
  <h2 style="color: #000;">New Submission: {{.Name}}</h2>
  <p><strong>Source:</strong> {{.Source}}</p>
  <table style="width: 100%; border-collapse: collapse; margin-top: 20px;">
  {{- range .Rows}}
    <tr>
      <td style="padding: 10px; border-bottom: 1px solid #eee; font-weight: bold; width: 180px;">{{.Label}}</td>
      <td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Value}}</td>
    </tr>
  {{- end}}
  </table>
  {{- if .Attachment}}
  <p><strong>Attachment:</strong> {{.Attachment}}</p>
  {{- end}}
</div>
`))

var magicLinkTmpl = template.Must(template.New("magic-link").Parse(`
<div style="font-family: sans-serif; padding: 20px;">
  <h2>Access your privacy settings</h2>
  <p>Click the link below to manage your communication preferences and data settings. This link expires in {{.Expiry}}.</p>
  <a href="{{.Link}}" style="display: inline-block; background: #2563EB; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold;">
    Manage Preferences
  </a>
  <p style="margin-top: 20px; font-size: 12px; color: #666;">If you didn't request this, you can safely ignore this email.</p>
</div>
`))

var preferenceTmpl = template.Must(template.New("preference").Parse(`
<h1>User Preference Update</h1>
<p><strong>User:</strong> {{.Email}}</p>
<p><strong>Action Required:</strong>{{if .Delete}} DELETE USER DATA{{else}} update communication preferences{{end}}</p>
<table>
  <tr><td>Marketing Updates</td><td>{{.Marketing}}</td></tr>
  <tr><td>Job Alerts</td><td>{{.Jobs}}</td></tr>
  <tr><td>Delete Data</td><td>{{.Delete}}</td></tr>
</table>
<hr />
<h3>ETL Data Block:</h3>
<pre><code>{{.ETL}}</code></pre>
`))

type inquiryView struct {
	Name       string
	Source     string
	Rows       []Row
	Attachment string
}

// RenderInquiry renders the team notification for a submission.
func RenderInquiry(sub *models.InquirySubmission) (string, error) {
	view := inquiryView{
		Name:   sub.Name(),
		Source: sub.Type(),
		Rows:   RenderFields(sub.Fields),
	}
	if view.Source == "" {
		view.Source = "General Inquiry"
	}
	if sub.Attachment != nil {
		view.Attachment = sub.Attachment.Filename
	}

	var b strings.Builder
	if err := inquiryTmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("render inquiry: %w", err)
	}
	return b.String(), nil
}

// RenderMagicLink renders the preference-center access email.
func RenderMagicLink(link string, ttl time.Duration) (string, error) {
	var b strings.Builder
	err := magicLinkTmpl.Execute(&b, struct {
		Link   string
		Expiry string
	}{Link: link, Expiry: humanDuration(ttl)})
	if err != nil {
		return "", fmt.Errorf("render magic link: %w", err)
	}
	return b.String(), nil
}

// ETLBlock is the machine-readable record embedded in preference updates.
// encoding/json escapes <, > and & inside strings, so the block can be
// embedded in HTML verbatim and scraped back as JSON.
func ETLBlock(req models.PreferenceChangeRequest) (string, error) {
	req.RequestedAt = req.RequestedAt.UTC()
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ETL block: %w", err)
	}
	return string(data), nil
}

// RenderPreferenceChange renders the team notification for an update.
func RenderPreferenceChange(req models.PreferenceChangeRequest) (string, error) {
	etl, err := ETLBlock(req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	err = preferenceTmpl.Execute(&b, struct {
		Email     string
		Marketing bool
		Jobs      bool
		Delete    bool
		ETL       template.HTML
	}{
		Email:     req.Email,
		Marketing: req.MarketingOptIn,
		Jobs:      req.JobUpdatesOptIn,
		Delete:    req.DeleteDataRequested,
		ETL:       template.HTML(etl),
	})
	if err != nil {
		return "", fmt.Errorf("render preference change: %w", err)
	}
	return b.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
