// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"fmt"
	"math"
)

// EncodeRaw emits width bytes of n, least-significant byte first.
// Bytes above width are dropped; callers validate bounds beforehand.
func EncodeRaw(n int64, width int) []byte {
	out := make([]byte, width)
	u := uint64(n)
	for i := 0; i < width; i++ {
		out[i] = byte(u)
		u >>= 8
	}
	return out
}

// DecodeRaw folds the first width bytes of b (little-endian) into an
// unsigned integer.
func DecodeRaw(b []byte, width int) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, fmt.Errorf("invalid width %d", width)
	}
	if len(b) < width {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, width, len(b))
	}
	var acc uint64
	for i := width - 1; i >= 0; i-- {
		acc = acc*256 + uint64(b[i])
	}
	return acc, nil
}

// ScaleToRaw converts a real value to its on-wire integer.
func ScaleToRaw(value, scale float64) int64 {
	return int64(math.Round(value * scale))
}

// Encode scales value and emits it as width little-endian bytes.
func Encode(value float64, width int, scale float64) []byte {
	return EncodeRaw(ScaleToRaw(value, scale), width)
}

// Decode reads width little-endian bytes from b and divides by scale.
func Decode(b []byte, width int, scale float64) (float64, error) {
	raw, err := DecodeRaw(b, width)
	if err != nil {
		return 0, err
	}
	return float64(raw) / scale, nil
}

// EncodeInteger is Encode with a scale of 1.
func EncodeInteger(n int64, width int) []byte {
	return EncodeRaw(n, width)
}

// DecodeInteger is Decode with a scale of 1.
func DecodeInteger(b []byte, width int) (uint64, error) {
	return DecodeRaw(b, width)
}
