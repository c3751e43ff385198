// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-passkey/internal/config"
)

// validateCmd checks the configuration without starting the server
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration",
	Long: `Validate the configuration file and environment overrides
without starting the server. Exits non-zero when the configuration
is invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath())
		if err != nil {
			return err
		}

		cmd.Println("configuration is valid")
		cmd.Println(fmt.Sprintf("  rp_id:    %s", cfg.WebAuthn.RPID))
		cmd.Println(fmt.Sprintf("  origins:  %v", cfg.WebAuthn.RPOrigins))
		cmd.Println(fmt.Sprintf("  listen:   %s:%d", cfg.Server.Host, cfg.Server.Port))
		cmd.Println(fmt.Sprintf("  storage:  %s", cfg.Storage.Backend))
		return nil
	},
}
