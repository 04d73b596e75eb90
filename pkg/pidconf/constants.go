// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pidconf implements the configuration protocol spoken by the motor
// PID controller firmware over its serial link.
//
// A session starts with a sync handshake and then exchanges length-prefixed
// frames, one command in flight at a time:
//
//	request:  [len][opcode][payload...]
//	response: [len][status][payload...]
//
// where len counts the opcode (or status) byte plus the payload. Parameter
// values travel as little-endian fixed-point integers scaled per parameter.
package pidconf

import "time"

// Handshake bytes
const (
	SyncByte = 0x55
	Ack      = 0xAC
)

// Opcode layout
const (
	WriteOffset  = 0x30
	FinishOpcode = 0xFF
)

// Status codes
const (
	ErrorOffset = 0xE0
)

// Frame limits
const (
	// MaxPayloadSize keeps the length byte (opcode + payload) within a byte.
	MaxPayloadSize = 0xFF - 1

	// DeviceBufferSize is the largest frame body the firmware accepts.
	DeviceBufferSize = 8
)

// Defaults
const (
	DefaultReadTimeout       = 2 * time.Second
	DefaultHandshakeAttempts = 10
	DefaultBaudRate          = 19200
)
