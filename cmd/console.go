// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

// consoleCommands are the words the console understands, used for help and
// line completion.
var consoleCommands = []string{"read", "write", "raw", "finish", "params", "stats", "help"}

const consoleHelp = `Commands:
  read <param>            print the current value of a parameter
  write <param> <value>   validate and store a new value
  raw <hex> [<hex>...]    send opcode and payload bytes, print the raw response
  finish                  leave configuration mode and reset the controller
  params                  list parameters and their limits
  stats                   show exchange statistics
  help                    show this help`

// console executes operator command lines against a synchronized session.
type console struct {
	sess   *pidconf.Session
	out    io.Writer
	logger zerolog.Logger

	// failed is set when a line reported a failure to the operator
	failed bool
}

func newConsole(sess *pidconf.Session, out io.Writer, logger zerolog.Logger) *console {
	return &console{sess: sess, out: out, logger: logger}
}

// execute runs one line. done reports that the session ended through finish.
// Recoverable failures are printed and reported as nil; the returned error
// is always fatal for the session.
func (c *console) execute(line string) (done bool, err error) {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return false, nil
	}

	switch {
	case tokens[0] == "read" && len(tokens) >= 2:
		err = c.read(tokens[1])
	case tokens[0] == "write" && len(tokens) >= 3:
		err = c.write(tokens[1], tokens[2])
	case tokens[0] == "raw":
		err = c.raw(tokens[1:])
	case tokens[0] == "finish":
		return true, c.finish()
	case tokens[0] == "params":
		printParams(c.out)
	case tokens[0] == "stats":
		c.stats()
	case tokens[0] == "help":
		fmt.Fprintln(c.out, consoleHelp)
	case tokens[0] == "read":
		c.fail("usage: read <param>")
	case tokens[0] == "write":
		c.fail("usage: write <param> <value>")
	default:
		c.fail(fmt.Sprintf("invalid command %q (type help)", tokens[0]))
	}
	return false, err
}

// tokenize lowercases a line and splits it on blanks
func tokenize(line string) []string {
	return strings.Fields(strings.ToLower(line))
}

func (c *console) read(name string) error {
	p, v, err := c.sess.Read(name)
	if err != nil {
		return c.report(fmt.Sprintf("read %s failed", name), err)
	}
	fmt.Fprintf(c.out, "%s %s\n", labelStyle.Render(p.Name+":"), pidconf.FormatValue(p, v))
	return nil
}

func (c *console) write(name, text string) error {
	p, v, err := c.sess.WriteText(name, text)
	if err != nil {
		return c.report(fmt.Sprintf("write %s failed", name), err)
	}
	fmt.Fprintf(c.out, "%s %s = %s\n", okStyle.Render("ok:"), p.Name, pidconf.FormatValue(p, v))
	return nil
}

func (c *console) raw(tokens []string) error {
	resp, err := c.sess.Raw(tokens)
	if err != nil {
		return c.report("raw command failed", err)
	}
	fmt.Fprintf(c.out, "%s %s\n", labelStyle.Render("raw response:"), pidconf.FormatHex(resp.Bytes()))
	return nil
}

func (c *console) finish() error {
	fmt.Fprintln(c.out, "Leaving configuration mode, resetting controller")
	if err := c.sess.Finish(); err != nil {
		return fmt.Errorf("finish failed: %w", err)
	}
	return nil
}

func (c *console) stats() {
	stats := c.sess.Statistics()
	stats.CalculateRates()
	fmt.Fprint(c.out, stats.String())
}

// report prints a recoverable failure, or returns the error when it broke
// the session.
func (c *console) report(what string, err error) error {
	if pidconf.IsFatal(err) {
		return fmt.Errorf("%s: %w", what, err)
	}
	c.logger.Debug().Err(err).Msg(what)
	c.fail(describeError(what, err))
	return nil
}

func (c *console) fail(msg string) {
	c.failed = true
	fmt.Fprintln(c.out, errStyle.Render(msg))
}

func describeError(what string, err error) string {
	var devErr *pidconf.DeviceError
	switch {
	case errors.As(err, &devErr):
		return fmt.Sprintf("%s: device reported %s", what, devErr.Message)
	case errors.Is(err, pidconf.ErrUnknownParameter):
		return fmt.Sprintf("%s: %v (type params)", what, err)
	default:
		return fmt.Sprintf("%s: %v", what, err)
	}
}
