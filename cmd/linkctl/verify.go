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
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <token|url>",
	Short: "Check a token and print the address it is bound to",
	Long: `Verify a token, or a full manage link, against the configured
secret. Prints the bound email address, or "invalid" and exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	email, ok := tokens.Verify(tokenArg(args[0]))
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "invalid")
		return fmt.Errorf("token is invalid or expired")
	}
	fmt.Fprintln(cmd.OutOrStdout(), email)
	return nil
}

// tokenArg accepts either a bare token or a link carrying ?token=.
func tokenArg(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if t := u.Query().Get("token"); t != "" {
		return t
	}
	return raw
}
