// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <param>",
	Short: "Read one parameter and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, "read "+args[0])
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <param> <value>",
	Short: "Write one parameter and exit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, "write "+args[0]+" "+args[1])
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <hex> [<hex>...]",
	Short: "Send a raw command and print the raw response",
	Long: `Send a raw command and print the raw response.

The first byte is the opcode, the rest is the payload. Bytes are hex, with or
without a 0x prefix. The response is printed uninterpreted, status first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := "raw"
		for _, a := range args {
			line += " " + a
		}
		return runOneShot(cmd, line)
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Leave configuration mode and reset the controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, "finish")
	},
}

func init() {
	rootCmd.AddCommand(readCmd, writeCmd, rawCmd, finishCmd)
}

// runOneShot synchronizes, runs a single console line and closes the link.
// Unlike the interactive console, any failure is an error exit.
func runOneShot(cmd *cobra.Command, line string) error {
	cfg, err := resolveConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	sess, _, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Handshake(); err != nil {
		return err
	}
	return runLine(newConsole(sess, os.Stdout, logger), line)
}

// runLine executes line and fails when the console reported any failure.
func runLine(c *console, line string) error {
	c.failed = false
	if _, err := c.execute(line); err != nil {
		return err
	}
	if c.failed {
		return errOneShotFailed
	}
	return nil
}

var errOneShotFailed = errors.New("command failed")
