// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

import (
	"log/slog"
	"time"
)

// Callbacks supplies host-provided implementations for a serial-like
// Stream. Any member may be nil; the corresponding operation then
// returns ErrUnsupported.
type Callbacks struct {
	SetTimeout    func(timeout time.Duration) error
	Read          func(p []byte) (int, error)
	Write         func(p []byte) (int, error)
	Available     func() (int, error)
	Configure     func(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error
	Purge         func(dir Direction) error
	SetDTR        func(on bool) error
	SetRTS        func(on bool) error
	SetBreak      func(on bool) error
	SetHalfDuplex func(on bool) error
	Close         func() error
}

// Custom is a Stream dispatching every operation to host callbacks.
type Custom struct {
	cb  Callbacks
	log *slog.Logger
}

var _ Stream = (*Custom)(nil)

// OpenCustom wraps the given callback table as a Stream.
func OpenCustom(cb Callbacks, log *slog.Logger) *Custom {
	return &Custom{cb: cb, log: log}
}

func (c *Custom) SetTimeout(timeout time.Duration) error {
	if c.cb.SetTimeout == nil {
		return ErrUnsupported
	}
	return c.cb.SetTimeout(timeout)
}

func (c *Custom) Read(p []byte) (int, error) {
	if c.cb.Read == nil {
		return 0, ErrUnsupported
	}
	n, err := c.cb.Read(p)
	trace(c.log, "read", p[:n])
	return n, err
}

func (c *Custom) Write(p []byte) (int, error) {
	if c.cb.Write == nil {
		return 0, ErrUnsupported
	}
	n, err := c.cb.Write(p)
	trace(c.log, "write", p[:n])
	return n, err
}

func (c *Custom) Available() (int, error) {
	if c.cb.Available == nil {
		return 0, ErrUnsupported
	}
	return c.cb.Available()
}

func (c *Custom) Configure(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error {
	if c.cb.Configure == nil {
		return ErrUnsupported
	}
	return c.cb.Configure(baudrate, databits, parity, stopbits, flow)
}

func (c *Custom) Purge(dir Direction) error {
	if c.cb.Purge == nil {
		return ErrUnsupported
	}
	return c.cb.Purge(dir)
}

func (c *Custom) SetDTR(on bool) error {
	if c.cb.SetDTR == nil {
		return ErrUnsupported
	}
	return c.cb.SetDTR(on)
}

func (c *Custom) SetRTS(on bool) error {
	if c.cb.SetRTS == nil {
		return ErrUnsupported
	}
	return c.cb.SetRTS(on)
}

func (c *Custom) SetBreak(on bool) error {
	if c.cb.SetBreak == nil {
		return ErrUnsupported
	}
	return c.cb.SetBreak(on)
}

func (c *Custom) SetHalfDuplex(on bool) error {
	if c.cb.SetHalfDuplex == nil {
		return ErrUnsupported
	}
	return c.cb.SetHalfDuplex(on)
}

func (c *Custom) Close() error {
	if c.cb.Close == nil {
		return nil
	}
	return c.cb.Close()
}
