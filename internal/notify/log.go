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
	"context"
	"log/slog"

	"github.com/placebyte/gateway/internal/models"
)

// LogTransport writes messages to the log instead of sending them.
// For local development only.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log transport. A nil logger uses slog.Default.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Send logs the message.
func (t *LogTransport) Send(ctx context.Context, msg *models.NotificationMessage) error {
	t.logger.InfoContext(ctx, "email (log transport)",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
		"html", msg.HTML,
	)
	return nil
}
