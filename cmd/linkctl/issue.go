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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/placebyte/gateway/internal/accesstoken"
	"github.com/placebyte/gateway/internal/validate"
)

var issueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Print a manage-preferences link for an address",
	Long: `Issue a signed access token for the address and print the
preference center URL. Nothing is emailed; use send-link for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runIssue,
}

func runIssue(cmd *cobra.Command, args []string) error {
	email, err := validate.New(false).Email(args[0])
	if err != nil {
		return fmt.Errorf("invalid email address %q", args[0])
	}

	token, expiresAt, err := tokens.Issue(email)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, accesstoken.ManageURL(cfg.BaseURL, token))
	fmt.Fprintf(out, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
