// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Test the link by synchronizing with the controller",
	Long: `Send sync bytes until the controller acknowledges or the attempts run out.

The controller is left in configuration mode; run "pidconf finish" to reset it.

Exit codes:
  0 - Controller acknowledged the sync byte
  1 - Handshake failed after all attempts
  2 - Connection error

Useful for testing connectivity to a controller or a WebSocket serial bridge.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd.Flags().Changed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.LogLevel)

	conn, connInfo, err := openLink(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("pidconf - Sync Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Attempts: %d, timeout %s each\n\n", cfg.HandshakeAttempts, cfg.Timeout)

	h := pidconf.NewHandshake(cfg.HandshakeAttempts, logger)
	if err := h.Run(conn); err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		conn.Close()
		os.Exit(1)
	}

	fmt.Printf("SUCCESS: Synchronized after %d attempt(s)\n", h.Attempts())
	return nil
}
