// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Protocol flags
	readTimeout       time.Duration
	handshakeAttempts int

	// General flags
	configPath string
	logLevel   string
	rawLogPath string
)

var rootCmd = &cobra.Command{
	Use:   "pidconf",
	Short: "Motor PID controller configuration client",
	Long: `pidconf - configure the motor PID controller over its serial link.

Without a subcommand, pidconf synchronizes with the controller and opens an
interactive console:

  read <param>            print the current value of a parameter
  write <param> <value>   validate and store a new value
  raw <hex> [<hex>...]    send a raw command and print the raw response
  finish                  leave configuration mode and reset the controller

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 19200]
  WebSocket: --url ws://host/path [--username user]

Settings can also be read from a YAML file with --config; flags given on the
command line take precedence. For WebSocket authentication, the password is
read from the PIDCONF_PASSWORD environment variable, or prompted
interactively if not set.`,
	Version:      "1.0.0",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runShell,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", pidconf.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket serial bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Protocol flags
	rootCmd.PersistentFlags().DurationVar(&readTimeout, "timeout", pidconf.DefaultReadTimeout, "Read timeout per response byte batch")
	rootCmd.PersistentFlags().IntVar(&handshakeAttempts, "handshake-attempts", pidconf.DefaultHandshakeAttempts, "Sync bytes to send before giving up")

	// General flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&rawLogPath, "raw-log", "", "Append every byte sent and received to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Diagnostic log level (trace, debug, info, warn, error, disabled)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
