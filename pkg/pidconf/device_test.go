// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceHandle(t *testing.T) {
	dev := NewDevice(zerolog.Nop())
	require.NoError(t, dev.Set("kp", 1))

	tests := []struct {
		name       string
		body       []byte
		want       Response
		wantFinish bool
	}{
		{"empty frame", []byte{}, Response{Status: StatusInvalidCommand}, false},
		{"oversized frame", make([]byte, DeviceBufferSize+1), Response{Status: StatusBufferTooLarge}, false},
		{"read kp", []byte{0x00}, Response{Status: Ack, Payload: []byte{0x00, 0x01}}, false},
		{"read unknown", []byte{0x0C}, Response{Status: StatusInvalidReadVariable}, false},
		{"write unknown", []byte{0x3C, 0x01}, Response{Status: StatusInvalidVariable}, false},
		{"write wrong width", []byte{0x30, 0x01}, Response{Status: StatusInvalidParameters}, false},
		{"write even samples", []byte{0x35, 0x04}, Response{Status: StatusInvalidParameters}, false},
		{"write odd samples", []byte{0x35, 0x05}, Response{Status: Ack}, false},
		{"unknown opcode", []byte{0x80}, Response{Status: StatusInvalidCommand}, false},
		{"finish", []byte{0xFF}, Response{Status: Ack}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, finish := dev.Handle(tt.body)
			assert.Equal(t, tt.want.Status, resp.Status)
			if len(tt.want.Payload) > 0 {
				assert.Equal(t, tt.want.Payload, resp.Payload)
			}
			assert.Equal(t, tt.wantFinish, finish)
		})
	}

	v, err := dev.Value("recv-samples")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestDeviceSetRejectsInvalid(t *testing.T) {
	dev := NewDevice(zerolog.Nop())
	assert.ErrorIs(t, dev.Set("recv-samples", 2), ErrOutOfRange)
	assert.ErrorIs(t, dev.Set("nope", 2), ErrUnknownParameter)
}

func TestSessionAgainstDevice(t *testing.T) {
	dev := NewDevice(testLogger(t))
	ch, done := startDevice(t, dev)

	s := NewSession(ch, WithLogger(testLogger(t)))
	require.NoError(t, s.Handshake())

	_, err := s.Write("kp", 3.25)
	require.NoError(t, err)
	_, err = s.Write("pid-blend", 0.5)
	require.NoError(t, err)
	_, err = s.Write("recv-samples", 7)
	require.NoError(t, err)

	_, v, err := s.Read("kp")
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)

	_, v, err = s.Read("pid-blend")
	require.NoError(t, err)
	assert.InDelta(t, 128.0/255.0, v, 1e-12)

	_, v, err = s.Read("recv-samples")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	resp, err := s.Raw([]string{"0c"})
	require.NoError(t, err)
	assert.Equal(t, "e2", FormatHex(resp.Bytes()))

	resp, err = s.Raw([]string{"3c"})
	require.NoError(t, err)
	assert.Equal(t, "e1", FormatHex(resp.Bytes()))

	_, err = s.Raw([]string{"01", "02", "03", "04", "05", "06", "07", "08", "09"})
	require.NoError(t, err)

	require.NoError(t, s.Finish())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("device did not stop after finish")
	}

	stored, err := dev.Value("kp")
	require.NoError(t, err)
	assert.Equal(t, 3.25, stored)
	assert.Equal(t, uint64(7), s.Statistics().Acks)
}

func TestSessionAgainstDeviceReportsDeviceErrors(t *testing.T) {
	dev := NewDevice(zerolog.Nop())
	ch, _ := startDevice(t, dev)

	s := NewSession(ch)
	require.NoError(t, s.Handshake())

	// A raw write carrying the wrong width is refused by the firmware.
	resp, err := s.Raw([]string{"31", "1"})
	require.NoError(t, err)
	cerr := Classify(resp)

	var devErr *DeviceError
	require.True(t, errors.As(cerr, &devErr))
	assert.Equal(t, "invalid parameters", devErr.Message)
}
