// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Socket is a Stream over a TCP connection, typically a serial-over-IP
// bridge in front of a cradle or simulator.
type Socket struct {
	conn net.Conn
	log  *slog.Logger

	timeout time.Duration
}

var _ Stream = (*Socket)(nil)

// OpenSocket connects to the given "host:port" address.
func OpenSocket(addr string, log *slog.Logger) (*Socket, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %q: %w", addr, translateSysError(err))
	}
	return &Socket{
		conn:    conn,
		log:     log,
		timeout: NoTimeout,
	}, nil
}

func (s *Socket) SetTimeout(timeout time.Duration) error {
	s.timeout = timeout
	return nil
}

func (s *Socket) Read(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		// Reset the deadline on every iteration so the timeout bounds
		// the wait for the next chunk, not the whole transfer.
		switch {
		case s.timeout < 0:
			if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
				return nbytes, translateSysError(err)
			}
		default:
			if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
				return nbytes, translateSysError(err)
			}
		}
		n, err := s.conn.Read(p[nbytes:])
		nbytes += n
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF) {
				break
			}
			return nbytes, translateSysError(err)
		}
	}
	trace(s.log, "read", p[:nbytes])
	if nbytes != len(p) {
		return nbytes, ErrTimeout
	}
	return nbytes, nil
}

func (s *Socket) Write(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		n, err := s.conn.Write(p[nbytes:])
		nbytes += n
		if err != nil {
			return nbytes, translateSysError(err)
		}
	}
	trace(s.log, "write", p[:nbytes])
	return nbytes, nil
}

func (s *Socket) Available() (int, error) {
	tcp, ok := s.conn.(*net.TCPConn)
	if !ok {
		return 0, ErrUnsupported
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return 0, translateSysError(err)
	}
	var (
		navail int
		ierr   error
	)
	err = raw.Control(func(fd uintptr) {
		navail, ierr = unix.IoctlGetInt(int(fd), unix.TIOCINQ)
	})
	if err != nil {
		return 0, translateSysError(err)
	}
	if ierr != nil {
		return 0, translateSysError(ierr)
	}
	return navail, nil
}

// Configure is accepted and ignored: a socket carries no serial line
// parameters.
func (s *Socket) Configure(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error {
	return nil
}

// Purge is accepted and ignored: the kernel owns the socket buffers.
func (s *Socket) Purge(dir Direction) error {
	return nil
}

func (s *Socket) SetDTR(on bool) error        { return nil }
func (s *Socket) SetRTS(on bool) error        { return nil }
func (s *Socket) SetBreak(on bool) error      { return nil }
func (s *Socket) SetHalfDuplex(on bool) error { return nil }

func (s *Socket) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("could not close socket: %w", translateSysError(err))
	}
	return nil
}
