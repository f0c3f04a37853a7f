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

package graph

import (
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/placebyte/gateway/internal/models"
)

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType,omitempty"`
	ContentBytes string `json:"contentBytes"`
}

// graphMessage is the subset of the Graph message resource we send.
type graphMessage struct {
	Subject      string           `json:"subject"`
	Body         itemBody         `json:"body"`
	ToRecipients []recipient      `json:"toRecipients"`
	ReplyTo      []recipient      `json:"replyTo,omitempty"`
	Attachments  []fileAttachment `json:"attachments,omitempty"`
}

type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

// buildSendMail converts a notification into a sendMail request body.
// The From header is ignored: Graph always sends as the mailbox owner.
func buildSendMail(msg *models.NotificationMessage) ([]byte, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("message has no recipients")
	}

	gm := graphMessage{
		Subject: msg.Subject,
		Body: itemBody{
			ContentType: "HTML",
			Content:     msg.HTML,
		},
		ToRecipients: make([]recipient, 0, len(msg.To)),
	}

	for _, to := range msg.To {
		gm.ToRecipients = append(gm.ToRecipients, toRecipient(to))
	}
	if msg.ReplyTo != "" {
		gm.ReplyTo = []recipient{toRecipient(msg.ReplyTo)}
	}
	for _, a := range msg.Attachments {
		gm.Attachments = append(gm.Attachments, fileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Filename,
			ContentType:  a.ContentType,
			ContentBytes: a.Content,
		})
	}

	data, err := json.Marshal(sendMailRequest{Message: gm})
	if err != nil {
		return nil, fmt.Errorf("marshal sendMail request: %w", err)
	}
	return data, nil
}

// toRecipient accepts both "Name <addr>" and bare addresses.
func toRecipient(raw string) recipient {
	if addr, err := mail.ParseAddress(raw); err == nil {
		return recipient{EmailAddress: emailAddress{Address: addr.Address, Name: addr.Name}}
	}
	return recipient{EmailAddress: emailAddress{Address: raw}}
}
