// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// Channel carries frames to and from the device. A Read that returns
// (0, nil) means the per-read timeout elapsed with no data, which is how
// go.bug.st/serial reports timeouts.
type Channel interface {
	io.Reader
	io.Writer
}

// Command is one request to the device.
type Command struct {
	Opcode  byte
	Payload []byte
}

// Frame returns the wire bytes: length, opcode, payload.
func (c Command) Frame() ([]byte, error) {
	return Frame(c.Opcode, c.Payload)
}

// Response is one reply from the device.
type Response struct {
	Status  byte
	Payload []byte
}

// IsAck reports whether the device accepted the command
func (r Response) IsAck() bool {
	return r.Status == Ack
}

// Bytes returns the response block as received: status then payload.
func (r Response) Bytes() []byte {
	out := make([]byte, 0, 1+len(r.Payload))
	out = append(out, r.Status)
	return append(out, r.Payload...)
}

// Frame prepends the length byte (opcode + payload) to a command.
func Frame(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	out := make([]byte, 0, 2+len(payload))
	out = append(out, byte(1+len(payload)), opcode)
	return append(out, payload...), nil
}

// Exchange writes one framed command and reads the framed response.
func Exchange(ch Channel, cmd Command) (Response, error) {
	frame, err := cmd.Frame()
	if err != nil {
		return Response{}, err
	}
	if _, err := ch.Write(frame); err != nil {
		return Response{}, fmt.Errorf("write command 0x%02x: %w", cmd.Opcode, err)
	}
	return ReadResponse(ch)
}

// ReadResponse reads a length byte and then exactly that many bytes.
func ReadResponse(ch Channel) (Response, error) {
	var size [1]byte
	n, err := readFull(ch, size[:])
	if err != nil {
		return Response{}, err
	}
	if n == 0 {
		return Response{}, ErrTimeout
	}
	if size[0] == 0 {
		return Response{}, fmt.Errorf("%w: zero-length response", ErrTruncated)
	}

	body := make([]byte, size[0])
	n, err = readFull(ch, body)
	if err != nil {
		return Response{}, err
	}
	if n < len(body) {
		return Response{}, fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, n, len(body))
	}
	return Response{Status: body[0], Payload: body[1:]}, nil
}

// ReadRequest is the device side of ReadResponse: it reads one length byte
// and the frame body that follows (opcode + payload, possibly empty). The
// boolean is false when the read timed out before the length byte arrived.
func ReadRequest(ch Channel) ([]byte, bool, error) {
	var size [1]byte
	n, err := readFull(ch, size[:])
	if err != nil || n == 0 {
		return nil, false, err
	}
	body := make([]byte, size[0])
	n, err = readFull(ch, body)
	if err != nil {
		return nil, true, err
	}
	if n < len(body) {
		return nil, true, fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, n, len(body))
	}
	return body, true, nil
}

// WriteResponse frames and writes a response.
func WriteResponse(ch Channel, resp Response) error {
	frame, err := Frame(resp.Status, resp.Payload)
	if err != nil {
		return err
	}
	_, err = ch.Write(frame)
	return err
}

// readFull reads until buf is full or a read times out. It returns the
// number of bytes read; a short count with a nil error means timeout.
func readFull(ch Channel, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := ch.Read(buf[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// DeadlineConn is the subset of net.Conn used by NewDeadlineChannel.
type DeadlineConn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
}

// deadlineChannel gives a deadline-based connection serial-port timeout semantics.
type deadlineChannel struct {
	conn    DeadlineConn
	timeout time.Duration
}

// NewDeadlineChannel wraps conn so that every Read waits at most timeout
// and reports expiry as (0, nil).
func NewDeadlineChannel(conn DeadlineConn, timeout time.Duration) Channel {
	return &deadlineChannel{conn: conn, timeout: timeout}
}

func (d *deadlineChannel) Read(p []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	n, err := d.conn.Read(p)
	if err != nil && isTimeout(err) {
		return n, nil
	}
	return n, err
}

func (d *deadlineChannel) Write(p []byte) (int, error) {
	return d.conn.Write(p)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
