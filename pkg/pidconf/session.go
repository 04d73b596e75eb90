// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrNotSynced is returned when an exchange is attempted before the handshake.
var ErrNotSynced = errors.New("handshake not completed")

// ErrFinished is returned when an exchange is attempted after Finish.
var ErrFinished = errors.New("session finished")

// Session owns the channel to one device and runs one exchange at a time.
// It is not safe for concurrent use.
type Session struct {
	ch       Channel
	logger   zerolog.Logger
	attempts int
	stats    *Statistics

	state    LinkState
	broken   error
	finished bool
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the diagnostic logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithHandshakeAttempts caps the number of sync bytes sent by Handshake
func WithHandshakeAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithStatistics shares a statistics tracker with the session
func WithStatistics(stats *Statistics) Option {
	return func(s *Session) {
		if stats != nil {
			s.stats = stats
		}
	}
}

// NewSession creates a session over ch. Call Handshake before anything else.
func NewSession(ch Channel, opts ...Option) *Session {
	s := &Session{
		ch:       ch,
		logger:   zerolog.Nop(),
		attempts: DefaultHandshakeAttempts,
		stats:    NewStatistics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Statistics returns the session's exchange counters
func (s *Session) Statistics() *Statistics {
	return s.stats
}

// State returns the link state
func (s *Session) State() LinkState {
	return s.state
}

// Finished reports whether Finish has been sent
func (s *Session) Finished() bool {
	return s.finished
}

// Err returns the fatal error that broke the session, if any
func (s *Session) Err() error {
	return s.broken
}

// Handshake synchronizes with the device. Failure breaks the session.
func (s *Session) Handshake() error {
	if s.broken != nil {
		return fmt.Errorf("%w: %v", ErrSessionBroken, s.broken)
	}
	h := NewHandshake(s.attempts, s.logger)
	if err := h.Run(s.ch); err != nil {
		s.broken = err
		return err
	}
	s.state = h.State()
	s.logger.Info().Int("attempts", h.Attempts()).Msg("device synchronized")
	return nil
}

// Read fetches and decodes the named parameter.
func (s *Session) Read(name string) (Parameter, float64, error) {
	p, err := Lookup(name)
	if err != nil {
		s.stats.RecordLocalReject()
		return Parameter{}, 0, err
	}

	resp, err := s.exchange(ReadCommand(p))
	if err != nil {
		return p, 0, err
	}
	if resp.IsAck() && len(resp.Payload) >= p.Width {
		v, err := Decode(resp.Payload, p.Width, p.Scale)
		return p, v, err
	}
	if resp.IsAck() {
		return p, 0, &StatusError{Status: resp.Status, Reason: fmt.Sprintf("short payload (%d of %d bytes)", len(resp.Payload), p.Width)}
	}
	return p, 0, Classify(resp)
}

// Write validates, encodes and stores value in the named parameter.
// Rejected values never reach the device.
func (s *Session) Write(name string, value float64) (Parameter, error) {
	p, err := Lookup(name)
	if err != nil {
		s.stats.RecordLocalReject()
		return Parameter{}, err
	}
	cmd, err := WriteCommand(p, value)
	if err != nil {
		s.stats.RecordLocalReject()
		return p, err
	}

	resp, err := s.exchange(cmd)
	if err != nil {
		return p, err
	}
	return p, Classify(resp)
}

// WriteText parses value text and writes it.
func (s *Session) WriteText(name, text string) (Parameter, float64, error) {
	if _, err := Lookup(name); err != nil {
		s.stats.RecordLocalReject()
		return Parameter{}, 0, err
	}
	v, err := ParseValue(text)
	if err != nil {
		s.stats.RecordLocalReject()
		return Parameter{}, 0, err
	}
	p, err := s.Write(name, v)
	return p, v, err
}

// Raw sends hex byte tokens as a command and returns the response
// uninterpreted.
func (s *Session) Raw(tokens []string) (Response, error) {
	cmd, err := ParseRawCommand(tokens)
	if err != nil {
		s.stats.RecordLocalReject()
		return Response{}, err
	}
	return s.exchange(cmd)
}

// Finish tells the device to leave configuration mode and reset. The
// session is finished whatever the device answers.
func (s *Session) Finish() error {
	resp, err := s.exchange(FinishCommand())
	s.finished = true
	if err != nil {
		return err
	}
	if cerr := Classify(resp); cerr != nil {
		s.logger.Warn().Err(cerr).Msg("finish not acknowledged")
	}
	return nil
}

// Close releases the channel if it can be closed.
func (s *Session) Close() error {
	if c, ok := s.ch.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Session) exchange(cmd Command) (Response, error) {
	switch {
	case s.broken != nil:
		return Response{}, fmt.Errorf("%w: %v", ErrSessionBroken, s.broken)
	case s.finished:
		return Response{}, ErrFinished
	case s.state != Synced:
		return Response{}, ErrNotSynced
	}

	s.logger.Debug().
		Str("opcode", fmt.Sprintf("0x%02x", cmd.Opcode)).
		Str("payload", FormatHex(cmd.Payload)).
		Msg("tx")

	resp, err := Exchange(s.ch, cmd)
	if err != nil {
		s.stats.RecordExchange(err, nil)
		if IsFatal(err) {
			s.broken = err
		}
		s.logger.Debug().Err(err).Msg("exchange failed")
		return Response{}, err
	}
	s.stats.RecordExchange(nil, Classify(resp))

	s.logger.Debug().
		Str("status", FormatStatus(resp.Status)).
		Str("payload", FormatHex(resp.Payload)).
		Msg("rx")
	return resp, nil
}
