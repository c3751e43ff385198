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

// Package cli implements the passkey server command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile is the path to the YAML configuration file
	configFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "passkey",
	Short: "go-passkey - WebAuthn Relying Party server",
	Long: `go-passkey runs a WebAuthn Relying Party server that manages
passkey registration and authentication ceremonies over a REST API.

The server issues and verifies WebAuthn challenges, stores credential
records in memory or SQLite, and exposes health probes and Prometheus
metrics for operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (defaults built in when omitted; PASSKEY_CONFIG overrides)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}

// configPath resolves the configuration file path from the flag or environment.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return os.Getenv("PASSKEY_CONFIG")
}
