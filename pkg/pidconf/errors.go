// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrHandshakeFailed is returned when the device never acknowledged sync.
	ErrHandshakeFailed = errors.New("handshake failed")
	// ErrTimeout is returned when no response byte arrived within the read timeout.
	ErrTimeout = errors.New("timeout waiting for response")
	// ErrTruncated is returned when a response ended before its declared length.
	ErrTruncated = errors.New("truncated response")
	// ErrUnknownParameter is returned for names missing from the registry.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrOutOfRange is returned when a value fails the parameter's bounds or validator.
	ErrOutOfRange = errors.New("value out of range")
	// ErrUnclassified is returned when the device neither acked nor reported a known error.
	ErrUnclassified = errors.New("command failed")
	// ErrInvalidValue is returned when a value is not a number.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidRaw is returned for malformed raw command tokens.
	ErrInvalidRaw = errors.New("invalid raw command")
	// ErrPayloadTooLarge is returned when a payload does not fit the length byte.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrSessionBroken is returned once a channel-level failure has occurred.
	ErrSessionBroken = errors.New("session channel is no longer usable")
)

// errorMessages is indexed by status - ErrorOffset.
var errorMessages = []string{
	"invalid command",
	"invalid variable",
	"invalid read variable",
	"invalid parameters",
	"buffer too large",
}

// Device status codes
const (
	StatusInvalidCommand      = ErrorOffset + 0
	StatusInvalidVariable     = ErrorOffset + 1
	StatusInvalidReadVariable = ErrorOffset + 2
	StatusInvalidParameters   = ErrorOffset + 3
	StatusBufferTooLarge      = ErrorOffset + 4
)

// ResolveStatus returns the message for a device error status.
func ResolveStatus(status byte) (string, bool) {
	if status < ErrorOffset || int(status-ErrorOffset) >= len(errorMessages) {
		return "", false
	}
	return errorMessages[status-ErrorOffset], true
}

// DeviceError is a failure the device reported with a known status code.
type DeviceError struct {
	Status  byte
	Message string
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error: %s (0x%02x)", e.Message, e.Status)
}

// StatusError is a failure with a status outside the known error range.
type StatusError struct {
	Status byte
	Reason string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (status 0x%02x)", ErrUnclassified, e.Reason, e.Status)
	}
	return fmt.Sprintf("%s (status 0x%02x)", ErrUnclassified, e.Status)
}

// Unwrap lets errors.Is match ErrUnclassified.
func (e *StatusError) Unwrap() error {
	return ErrUnclassified
}

// Classify maps a response status to nil (ack), *DeviceError or *StatusError.
func Classify(resp Response) error {
	if resp.Status == Ack {
		return nil
	}
	if msg, ok := ResolveStatus(resp.Status); ok {
		return &DeviceError{Status: resp.Status, Message: msg}
	}
	return &StatusError{Status: resp.Status}
}

// IsFatal reports whether err leaves the channel unusable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var devErr *DeviceError
	var statusErr *StatusError
	switch {
	case errors.As(err, &devErr), errors.As(err, &statusErr):
		return false
	case errors.Is(err, ErrUnknownParameter),
		errors.Is(err, ErrOutOfRange),
		errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrInvalidRaw),
		errors.Is(err, ErrPayloadTooLarge):
		return false
	case errors.Is(err, ErrHandshakeFailed),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTruncated),
		errors.Is(err, ErrSessionBroken),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	// Anything else came from the channel itself.
	return true
}
