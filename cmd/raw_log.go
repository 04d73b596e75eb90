// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
)

// rawLogConnection copies every byte crossing the link to a log, one line
// per read or write:
//
//	15:04:05.000 tx 2 0
//	15:04:05.012 rx 3 ac 0 1
type rawLogConnection struct {
	Connection
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func newRawLogConnection(conn Connection, out io.Writer) *rawLogConnection {
	return &rawLogConnection{Connection: conn, out: out, now: time.Now}
}

// openRawLog wraps conn so that link traffic is appended to path
func openRawLog(conn Connection, path string) (Connection, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw log %s: %w", path, err)
	}
	return &rawLogFile{rawLogConnection: newRawLogConnection(conn, f), file: f}, nil
}

func (r *rawLogConnection) Read(p []byte) (int, error) {
	n, err := r.Connection.Read(p)
	if n > 0 {
		r.record("rx", p[:n])
	}
	return n, err
}

func (r *rawLogConnection) Write(p []byte) (int, error) {
	n, err := r.Connection.Write(p)
	if n > 0 {
		r.record("tx", p[:n])
	}
	return n, err
}

func (r *rawLogConnection) record(dir string, b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s %s\n", r.now().Format("15:04:05.000"), dir, pidconf.FormatHex(b))
}

// rawLogFile also closes the log file with the link
type rawLogFile struct {
	*rawLogConnection
	file *os.File
}

func (r *rawLogFile) Close() error {
	return errors.Join(r.rawLogConnection.Close(), r.file.Close())
}
