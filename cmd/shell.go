// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shellPrompt = "pidconf> "

// lineSource yields operator lines; io.EOF ends input.
type lineSource interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerSource is an editing prompt for interactive terminals
type linerSource struct {
	state *liner.State
}

func newLinerSource() *linerSource {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(completeLine)
	return &linerSource{state: state}
}

func (l *linerSource) Prompt(prompt string) (string, error) {
	line, err := l.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		l.state.AppendHistory(line)
	}
	return line, nil
}

func (l *linerSource) Close() error {
	return l.state.Close()
}

// scannerSource reads lines from a pipe or file without prompting
type scannerSource struct {
	scanner *bufio.Scanner
}

func newScannerSource(r io.Reader) *scannerSource {
	return &scannerSource{scanner: bufio.NewScanner(r)}
}

func (s *scannerSource) Prompt(string) (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scannerSource) Close() error {
	return nil
}

// completeLine completes command words, then parameter names
func completeLine(line string) []string {
	fields := strings.Fields(strings.ToLower(line))
	trailing := strings.HasSuffix(line, " ")

	var candidates []string
	prefix := ""
	switch {
	case len(fields) == 0 || (len(fields) == 1 && !trailing):
		candidates = consoleCommands
		if len(fields) == 1 {
			prefix = fields[0]
		}
	case (fields[0] == "read" || fields[0] == "write") && (len(fields) == 1 || (len(fields) == 2 && !trailing)):
		for _, p := range pidconf.Parameters() {
			candidates = append(candidates, fields[0]+" "+p.Name)
		}
		prefix = strings.Join(fields, " ")
	default:
		return nil
	}

	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func runShell(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("pidconf - PID controller configuration\n")
	fmt.Printf("Connection: %s\n", connInfo)

	if err := sess.Handshake(); err != nil {
		return err
	}
	fmt.Printf("Synchronized. Type help for commands.\n\n")

	var lines lineSource
	if term.IsTerminal(int(os.Stdin.Fd())) {
		lines = newLinerSource()
	} else {
		lines = newScannerSource(os.Stdin)
	}
	defer lines.Close()

	return runConsole(newConsole(sess, os.Stdout, logger), lines, logger)
}

// runConsole feeds lines to the console until finish, end of input or a
// fatal error.
func runConsole(c *console, lines lineSource, logger zerolog.Logger) error {
	for {
		line, err := lines.Prompt(shellPrompt)
		if errors.Is(err, io.EOF) {
			logger.Warn().Msg("input closed, leaving without reset")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		done, err := c.execute(line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
