// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Device simulates the controller firmware's configuration mode. It is
// used for bench testing without hardware and as the peer in tests.
type Device struct {
	mu     sync.Mutex
	values map[byte]int64
	logger zerolog.Logger
}

// NewDevice creates a simulated device with every parameter at zero.
func NewDevice(logger zerolog.Logger) *Device {
	values := make(map[byte]int64, len(parameters))
	for _, p := range parameters {
		values[p.ID] = 0
	}
	return &Device{values: values, logger: logger}
}

// Set stores a parameter value as the firmware would after a write.
func (d *Device) Set(name string, value float64) error {
	p, err := Lookup(name)
	if err != nil {
		return err
	}
	if err := p.Check(value); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[p.ID] = ScaleToRaw(value, p.Scale)
	return nil
}

// Value returns the stored value of a parameter in real units.
func (d *Device) Value(name string) (float64, error) {
	p, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.values[p.ID]) / p.Scale, nil
}

// Handle processes one frame body and returns the response. finish is true
// once the reset command has been acknowledged.
func (d *Device) Handle(body []byte) (resp Response, finish bool) {
	if len(body) > DeviceBufferSize {
		return Response{Status: StatusBufferTooLarge}, false
	}
	if len(body) == 0 {
		return Response{Status: StatusInvalidCommand}, false
	}

	op, payload := body[0], body[1:]
	switch {
	case op == FinishOpcode:
		return Response{Status: Ack}, true

	case op&0xF0 == 0x00:
		p, ok := LookupID(op & 0x0F)
		if !ok {
			return Response{Status: StatusInvalidReadVariable}, false
		}
		d.mu.Lock()
		raw := d.values[p.ID]
		d.mu.Unlock()
		return Response{Status: Ack, Payload: EncodeRaw(raw, p.Width)}, false

	case op&0xF0 == WriteOffset:
		p, ok := LookupID(op & 0x0F)
		if !ok {
			return Response{Status: StatusInvalidVariable}, false
		}
		if len(payload) != p.Width {
			return Response{Status: StatusInvalidParameters}, false
		}
		raw, err := DecodeRaw(payload, p.Width)
		if err != nil || !p.Validate(float64(raw)/p.Scale) {
			return Response{Status: StatusInvalidParameters}, false
		}
		d.mu.Lock()
		d.values[p.ID] = int64(raw)
		d.mu.Unlock()
		return Response{Status: Ack}, false
	}

	return Response{Status: StatusInvalidCommand}, false
}

// Serve waits for the sync byte, acknowledges it, then answers commands
// until the reset command, ctx cancellation or a channel error. Partial
// frames cut short by a read timeout are discarded.
func (d *Device) Serve(ctx context.Context, ch Channel) error {
	if err := d.awaitSync(ctx, ch); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, ok, err := ReadRequest(ch)
		if errors.Is(err, ErrTruncated) {
			d.logger.Debug().Err(err).Msg("device: discarding partial frame")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !ok {
			continue
		}

		resp, finish := d.Handle(body)
		d.logger.Debug().
			Str("request", FormatHex(body)).
			Str("status", FormatStatus(resp.Status)).
			Msg("device: handled")
		if err := WriteResponse(ch, resp); err != nil {
			return fmt.Errorf("device: write response: %w", err)
		}
		if finish {
			d.logger.Info().Msg("device: finish received, resetting")
			return nil
		}
	}
}

func (d *Device) awaitSync(ctx context.Context, ch Channel) error {
	buf := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := ch.Read(buf)
		if err != nil {
			return err
		}
		if n == 1 && buf[0] == SyncByte {
			_, err := ch.Write([]byte{Ack})
			return err
		}
	}
}
