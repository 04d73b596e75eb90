// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Interactive TUI for editing controller parameters",
	Long: `Edit controller parameters from an interactive terminal UI.

After synchronizing, the panel reads every parameter and lists it with its
current value. Select a parameter to see its limits, type a new value and
press Enter to write it; the value is read back after each write.

Keys:
  Up/Down   select parameter
  Enter     edit selected parameter / write typed value
  Esc       cancel editing
  r         read all parameters again
  f         finish: leave configuration mode and reset the controller
  q         quit without reset

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runPanel,
}

func init() {
	rootCmd.AddCommand(panelCmd)
}

func runPanel(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	sess, connInfo, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Printf("Connection: %s\nSynchronizing...\n", connInfo)
	if err := sess.Handshake(); err != nil {
		return err
	}

	p := tea.NewProgram(initialPanelModel(sess, connInfo), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	m := final.(panelModel)
	if m.fatal != nil {
		return m.fatal
	}
	if !sess.Finished() {
		logger.Warn().Msg("panel closed without reset, controller still in configuration mode")
	}
	return nil
}
