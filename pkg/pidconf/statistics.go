// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pidconf

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks exchange outcomes for one session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Exchanges     uint64
	Acks          uint64
	DeviceErrors  uint64
	Unclassified  uint64
	Timeouts      uint64
	Truncated     uint64
	ChannelErrors uint64
	LocalRejects  uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordExchange updates counters for one completed (or failed) exchange.
// classifyErr is the result of Classify when the exchange itself succeeded.
func (s *Statistics) RecordExchange(exchangeErr, classifyErr error) {
	s.Exchanges++
	s.LastUpdateTime = time.Now()

	if exchangeErr != nil {
		switch {
		case errors.Is(exchangeErr, ErrTimeout):
			s.Timeouts++
		case errors.Is(exchangeErr, ErrTruncated):
			s.Truncated++
		default:
			s.ChannelErrors++
		}
		return
	}

	var devErr *DeviceError
	switch {
	case classifyErr == nil:
		s.Acks++
	case errors.As(classifyErr, &devErr):
		s.DeviceErrors++
	default:
		s.Unclassified++
	}
}

// RecordLocalReject counts a command refused before reaching the device
func (s *Statistics) RecordLocalReject() {
	s.LocalRejects++
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates the exchange rate
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.Exchanges) / elapsed
	}
}

// Failures returns the number of exchanges that did not end in an ack
func (s *Statistics) Failures() uint64 {
	return s.Exchanges - s.Acks
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var ackPercent float64
	if s.Exchanges > 0 {
		ackPercent = float64(s.Acks) * 100.0 / float64(s.Exchanges)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Exchanges:       %8d\n", s.Exchanges)
	result += fmt.Sprintf("Acknowledged:    %8d (%.1f%%)\n", s.Acks, ackPercent)

	if s.DeviceErrors > 0 {
		result += fmt.Sprintf("Device Errors:   %8d\n", s.DeviceErrors)
	}
	if s.Unclassified > 0 {
		result += fmt.Sprintf("Unclassified:    %8d\n", s.Unclassified)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.Truncated > 0 {
		result += fmt.Sprintf("Truncated:       %8d\n", s.Truncated)
	}
	if s.ChannelErrors > 0 {
		result += fmt.Sprintf("Channel Errors:  %8d\n", s.ChannelErrors)
	}
	if s.LocalRejects > 0 {
		result += fmt.Sprintf("Local Rejects:   %8d\n", s.LocalRejects)
	}

	result += fmt.Sprintf("Exchange Rate:   %8.1f /sec\n", s.ExchangeRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
