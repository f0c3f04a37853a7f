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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/placebyte/gateway/internal/accesstoken"
	"github.com/placebyte/gateway/internal/config"
	"github.com/placebyte/gateway/internal/logging"
)

var (
	// Loaded once by the root command.
	cfg    *config.Config
	tokens *accesstoken.Service
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linkctl",
	Short: "Issue and inspect preference center magic links",
	Long: "linkctl issues, verifies and emails the signed links that give a\n" +
		"subscriber access to the preference center without a password.",
	PersistentPreRunE: initialize,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(sendLinkCmd)
}

func initialize(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), loaded.Logging))

	svc, err := accesstoken.New(loaded.TokenSecret)
	if err != nil {
		return fmt.Errorf("access tokens: %w", err)
	}

	cfg = loaded
	tokens = svc
	return nil
}
