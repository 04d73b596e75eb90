// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"fmt"
	"strconv"
	"strings"
)

// Command builder functions create Command values ready for Exchange.

// ReadCommand creates the command that reads p.
func ReadCommand(p Parameter) Command {
	return Command{Opcode: p.ReadOpcode()}
}

// WriteCommand validates value and creates the command that writes it to p.
func WriteCommand(p Parameter, value float64) (Command, error) {
	if err := p.Check(value); err != nil {
		return Command{}, err
	}
	return Command{
		Opcode:  p.WriteOpcode(),
		Payload: Encode(value, p.Width, p.Scale),
	}, nil
}

// FinishCommand creates the command that ends configuration mode and
// resets the controller.
func FinishCommand() Command {
	return Command{Opcode: FinishOpcode}
}

// ParseValue parses an operator-supplied parameter value.
func ParseValue(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, text)
	}
	return v, nil
}

// ParseRawCommand decodes hex byte tokens; the first is the opcode and the
// rest are the payload. Tokens may carry a 0x prefix.
func ParseRawCommand(tokens []string) (Command, error) {
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: no opcode", ErrInvalidRaw)
	}
	raw := make([]byte, len(tokens))
	for i, tok := range tokens {
		t := strings.TrimPrefix(strings.ToLower(tok), "0x")
		v, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %q is not a hex byte", ErrInvalidRaw, tok)
		}
		raw[i] = byte(v)
	}
	if len(raw)-1 > MaxPayloadSize {
		return Command{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(raw)-1, MaxPayloadSize)
	}
	return Command{Opcode: raw[0], Payload: raw[1:]}, nil
}
