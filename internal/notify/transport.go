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
	"fmt"
	"log/slog"
	"net/http"

	"github.com/placebyte/gateway/internal/config"
	"github.com/placebyte/gateway/internal/graph"
)

// NewTransport builds the transport selected by cfg.Provider.
func NewTransport(cfg config.MailConfig, httpClient *http.Client) (Transport, error) {
	switch cfg.Provider {
	case config.ProviderResend:
		return NewResendTransport(httpClient, cfg.ResendURL, cfg.ResendAPIKey), nil
	case config.ProviderGraph:
		tokens := graph.NewTokenSource(graph.Credentials{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
		}, httpClient)
		return graph.NewMailer(httpClient, tokens, graph.DefaultBaseURL, cfg.Graph.Sender), nil
	case config.ProviderLog:
		slog.Warn("mail provider is 'log': notifications will not be delivered")
		return NewLogTransport(nil), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// AddressesFrom extracts the sender and recipient addresses from cfg.
func AddressesFrom(cfg config.MailConfig) Addresses {
	return Addresses{
		FromInquiry:  cfg.FromInquiry,
		FromSecurity: cfg.FromSecurity,
		FromSystem:   cfg.FromSystem,
		TeamInbox:    cfg.TeamInbox,
	}
}
