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

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/placebyte/gateway/internal/notify"
	"github.com/placebyte/gateway/internal/pipeline"
	"github.com/placebyte/gateway/internal/validate"
)

var sendLinkCmd = &cobra.Command{
	Use:   "send-link <email>",
	Short: "Email a magic link to an address",
	Long: `Send the preference center email to an address on the
subscriber's behalf, for example after a support request. No CAPTCHA
is involved, so only operators should have access to this command.`,
	Args: cobra.ExactArgs(1),
	RunE: runSendLink,
}

func runSendLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	validator := validate.New(cfg.StrictTypes)
	email, err := validator.Email(args[0])
	if err != nil {
		return fmt.Errorf("invalid email address %q", args[0])
	}

	transport, err := notify.NewTransport(cfg.Mail, &http.Client{})
	if err != nil {
		return err
	}

	prefs := pipeline.NewPreferences(pipeline.PreferencesConfig{
		Validator: validator,
		Tokens:    tokens,
		Notifier:  notify.NewDispatcher(transport, notify.AddressesFrom(cfg.Mail), cfg.Mail.Timeout),
		BaseURL:   cfg.BaseURL,
	})
	if err := prefs.SendLink(ctx, email); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "link sent to %s\n", email)
	return nil
}
