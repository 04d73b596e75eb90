// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// plain strips terminal styling from console output
func plain(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// deviceConsole returns a console over a synchronized session with a
// simulated controller.
func deviceConsole(t *testing.T, dev *pidconf.Device) (*console, *bytes.Buffer) {
	t.Helper()
	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- dev.Serve(ctx, pidconf.NewDeadlineChannel(server, 20*time.Millisecond))
	}()
	t.Cleanup(func() {
		cancel()
		client.Close()
		server.Close()
		<-done
	})

	sess := pidconf.NewSession(pidconf.NewDeadlineChannel(client, time.Second))
	require.NoError(t, sess.Handshake())

	out := &bytes.Buffer{}
	return newConsole(sess, out, zerolog.Nop()), out
}

// silentChannel acknowledges the handshake and then never answers,
// like a controller that lost power.
type silentChannel struct {
	synced bool
}

func (s *silentChannel) Read(p []byte) (int, error) {
	if !s.synced && len(p) > 0 {
		s.synced = true
		p[0] = pidconf.Ack
		return 1, nil
	}
	return 0, nil
}

func (s *silentChannel) Write(p []byte) (int, error) {
	return len(p), nil
}

// setGlobals sets the flag variables for one test and restores them after.
func setGlobals(t *testing.T, set func()) {
	t.Helper()
	saved := []any{portName, baudRate, wsURL, wsUsername, wsNoSSLVerify, readTimeout, handshakeAttempts, configPath, logLevel, rawLogPath}
	t.Cleanup(func() {
		portName = saved[0].(string)
		baudRate = saved[1].(int)
		wsURL = saved[2].(string)
		wsUsername = saved[3].(string)
		wsNoSSLVerify = saved[4].(bool)
		readTimeout = saved[5].(time.Duration)
		handshakeAttempts = saved[6].(int)
		configPath = saved[7].(string)
		logLevel = saved[8].(string)
		rawLogPath = saved[9].(string)
	})

	portName = ""
	baudRate = pidconf.DefaultBaudRate
	wsURL = ""
	wsUsername = ""
	wsNoSSLVerify = false
	readTimeout = pidconf.DefaultReadTimeout
	handshakeAttempts = pidconf.DefaultHandshakeAttempts
	configPath = ""
	logLevel = "warn"
	rawLogPath = ""
	set()
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}
