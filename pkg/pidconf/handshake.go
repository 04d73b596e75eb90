// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LinkState is the handshake state.
type LinkState int

// Link states
const (
	Unsynced LinkState = iota
	Synced
)

// String returns the state name
func (s LinkState) String() string {
	if s == Synced {
		return "synced"
	}
	return "unsynced"
}

// Handshake brings the device into configuration mode by sending SyncByte
// until it answers with Ack.
type Handshake struct {
	MaxAttempts int
	Logger      zerolog.Logger

	state    LinkState
	attempts int
}

// NewHandshake creates a handshake capped at maxAttempts sync bytes.
func NewHandshake(maxAttempts int, logger zerolog.Logger) *Handshake {
	if maxAttempts < 1 {
		maxAttempts = DefaultHandshakeAttempts
	}
	return &Handshake{MaxAttempts: maxAttempts, Logger: logger}
}

// State returns the current link state
func (h *Handshake) State() LinkState {
	return h.state
}

// Attempts returns how many sync bytes have been sent
func (h *Handshake) Attempts() int {
	return h.attempts
}

// Run sends one sync byte per attempt and reads one byte back. Any byte
// other than Ack, or a read timeout, costs an attempt. Garbage is not
// drained; each read consumes exactly one byte.
func (h *Handshake) Run(ch Channel) error {
	buf := make([]byte, 1)
	for h.state == Unsynced {
		if h.attempts >= h.MaxAttempts {
			return fmt.Errorf("%w: no ack after %d attempts", ErrHandshakeFailed, h.attempts)
		}
		h.attempts++
		if _, err := ch.Write([]byte{SyncByte}); err != nil {
			return fmt.Errorf("%w: write sync: %v", ErrHandshakeFailed, err)
		}

		n, err := ch.Read(buf)
		if err != nil {
			return fmt.Errorf("%w: read: %v", ErrHandshakeFailed, err)
		}
		switch {
		case n == 0:
			h.Logger.Debug().Int("attempt", h.attempts).Msg("handshake: no reply")
		case buf[0] == Ack:
			h.state = Synced
			h.Logger.Debug().Int("attempt", h.attempts).Msg("handshake: synced")
		default:
			h.Logger.Debug().Int("attempt", h.attempts).Str("byte", fmt.Sprintf("0x%02x", buf[0])).Msg("handshake: unexpected byte")
		}
	}
	return nil
}
