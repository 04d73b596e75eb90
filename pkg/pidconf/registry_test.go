// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInvariants(t *testing.T) {
	seen := map[byte]string{}
	for _, p := range Parameters() {
		if other, dup := seen[p.ID]; dup {
			t.Errorf("id 0x%02X used by %s and %s", p.ID, other, p.Name)
		}
		seen[p.ID] = p.Name

		assert.LessOrEqual(t, p.ID, byte(63), p.Name)
		assert.GreaterOrEqual(t, p.Width, 1, p.Name)
		assert.LessOrEqual(t, p.Width, 4, p.Name)
		assert.LessOrEqual(t, p.Min, p.Max, p.Name)
		assert.Greater(t, p.Scale, 0.0, p.Name)
	}
	assert.Len(t, seen, 7)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Parameter
	}{
		{"kp", "kp", Parameter{Name: "kp", ID: 0, Width: 2, Scale: 256, Min: 0, Max: 256, Validator: Always}},
		{"upper case", "KI", Parameter{Name: "ki", ID: 1, Width: 2, Scale: 256, Min: 0, Max: 256, Validator: Always}},
		{"kd", "kd", Parameter{Name: "kd", ID: 2, Width: 2, Scale: 256, Min: 0, Max: 256, Validator: Always}},
		{"mixed case", "PID-Blend", Parameter{Name: "pid-blend", ID: 3, Width: 1, Scale: 255, Min: 0, Max: 1, Validator: Always}},
		{"enc-frames", "enc-frames", Parameter{Name: "enc-frames", ID: 4, Width: 1, Scale: 1, Min: 0, Max: 32, Validator: IsInteger}},
		{"recv-samples", "recv-samples", Parameter{Name: "recv-samples", ID: 5, Width: 1, Scale: 1, Min: 0, Max: 31, Validator: IsOddInteger}},
		{"right-board", "right-board", Parameter{Name: "right-board", ID: 6, Width: 1, Scale: 1, Min: 0, Max: 1, Validator: IsInteger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Lookup(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, name := range []string{"", "kp ", "k", "pid_blend", "speed"} {
		_, err := Lookup(name)
		assert.ErrorIs(t, err, ErrUnknownParameter, "name %q", name)
	}
}

func TestLookupID(t *testing.T) {
	p, ok := LookupID(5)
	require.True(t, ok)
	assert.Equal(t, "recv-samples", p.Name)

	_, ok = LookupID(7)
	assert.False(t, ok)
}

func TestOpcodes(t *testing.T) {
	p, err := Lookup("pid-blend")
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), p.ReadOpcode())
	assert.Equal(t, byte(0x33), p.WriteOpcode())
}

func TestValidateInclusiveBounds(t *testing.T) {
	const eps = 1e-9
	for _, p := range Parameters() {
		t.Run(p.Name, func(t *testing.T) {
			if p.Validator.Accepts(p.Min) {
				assert.True(t, Validate(p, p.Min), "min")
			}
			assert.False(t, Validate(p, p.Min-eps), "below min")
			assert.False(t, Validate(p, p.Max+eps), "above max")
			assert.True(t, Validate(p, p.Max), "max")
			assert.False(t, Validate(p, math.NaN()), "NaN")
		})
	}
}

func TestValidateRecvSamples(t *testing.T) {
	p, err := Lookup("recv-samples")
	require.NoError(t, err)

	for v := 0; v <= 32; v++ {
		want := v%2 == 1 && v <= 31
		assert.Equal(t, want, p.Validate(float64(v)), "value %d", v)
	}
	for _, v := range []float64{0.5, 1.5, 2.25, 30.999} {
		assert.False(t, p.Validate(v), "value %g", v)
	}
	assert.True(t, p.Validate(p.Max))

	// The range starts at 0 but the odd rule rejects it
	assert.False(t, p.Validate(p.Min))
	assert.True(t, p.Validate(1))
}

func TestValidateIntegers(t *testing.T) {
	enc, err := Lookup("enc-frames")
	require.NoError(t, err)
	assert.True(t, enc.Validate(32))
	assert.True(t, enc.Validate(16))
	assert.False(t, enc.Validate(16.5))
	assert.False(t, enc.Validate(33))

	rb, err := Lookup("right-board")
	require.NoError(t, err)
	assert.True(t, rb.Validate(0))
	assert.True(t, rb.Validate(1))
	assert.False(t, rb.Validate(0.5))
	assert.False(t, rb.Validate(2))
}

func TestValidateFixedPoint(t *testing.T) {
	kp, err := Lookup("kp")
	require.NoError(t, err)
	assert.True(t, kp.Validate(0.00390625))
	assert.True(t, kp.Validate(123.456))
	assert.False(t, kp.Validate(-0.1))
	assert.False(t, kp.Validate(256.5))
}

func TestCheckReportsRule(t *testing.T) {
	p, err := Lookup("recv-samples")
	require.NoError(t, err)

	err = p.Check(4)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "odd integer")
	assert.NoError(t, p.Check(5))
}

func TestParametersIsCopy(t *testing.T) {
	ps := Parameters()
	ps[0].Max = -1

	p, err := Lookup("kp")
	require.NoError(t, err)
	assert.Equal(t, 256.0, p.Max)
	assert.Equal(t, 256.0, Parameters()[0].Max)
}
