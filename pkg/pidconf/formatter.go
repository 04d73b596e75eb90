// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatHex renders bytes as space-separated lowercase hex without padding,
// e.g. "ac 1 0".
func FormatHex(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatUint(uint64(v), 16)
	}
	return strings.Join(parts, " ")
}

// FormatValue renders a decoded parameter value. Integer parameters print
// without a fractional part.
func FormatValue(p Parameter, v float64) string {
	if p.Scale == 1 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatParameter returns a one-line description of a parameter
func FormatParameter(p Parameter) string {
	return fmt.Sprintf("%-13s id=0x%02X width=%d scale=%g range=[%g, %g] %s",
		p.Name, p.ID, p.Width, p.Scale, p.Min, p.Max, p.Validator)
}

// FormatStatus returns the human-readable name of a response status
func FormatStatus(status byte) string {
	if status == Ack {
		return "ACK"
	}
	if msg, ok := ResolveStatus(status); ok {
		return strings.ToUpper(strings.ReplaceAll(msg, " ", "_"))
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", status)
}
