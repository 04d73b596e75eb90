// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// scriptedChannel replays queued bytes and reports (0, nil) once they run
// out, the way a serial port reports a read timeout.
type scriptedChannel struct {
	in       bytes.Buffer
	out      bytes.Buffer
	maxChunk int
	readErr  error
}

func newScriptedChannel(in ...byte) *scriptedChannel {
	c := &scriptedChannel{}
	c.in.Write(in)
	return c
}

func (c *scriptedChannel) Read(p []byte) (int, error) {
	if c.in.Len() == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, nil
	}
	if c.maxChunk > 0 && len(p) > c.maxChunk {
		p = p[:c.maxChunk]
	}
	return c.in.Read(p)
}

func (c *scriptedChannel) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// syncedSession returns a session over ch that has already completed the handshake.
func syncedSession(t *testing.T, ch *scriptedChannel) *Session {
	t.Helper()
	ch.in.Reset()
	ch.in.WriteByte(Ack)
	s := NewSession(ch)
	require.NoError(t, s.Handshake())
	ch.out.Reset()
	return s
}

// startDevice runs a simulated device on one end of an in-memory pipe and
// returns a channel for the other end.
func startDevice(t *testing.T, dev *Device) (Channel, <-chan error) {
	t.Helper()
	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- dev.Serve(ctx, NewDeadlineChannel(server, 20*time.Millisecond))
	}()

	t.Cleanup(func() {
		cancel()
		client.Close()
		server.Close()
	})
	return NewDeadlineChannel(client, time.Second), done
}

func testLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}
