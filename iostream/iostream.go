// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iostream provides the blocking transport layer used to talk
// to dive computers: serial lines, TCP sockets, IrDA sockets and
// host-supplied custom I/O.
//
// All backends share the same read/write contract: Read and Write
// attempt to transfer exactly len(p) bytes, looping over partial
// transfers, and report the count actually moved together with
// ErrTimeout when a bounded wait expired (or the peer closed) before
// the transfer completed. Line-control operations are meaningful only
// for serial-like backends; the others accept them and no-op so that
// protocol code stays transport-agnostic.
package iostream // import "sbinet.org/x/divelog/iostream"

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrTimeout reports that a bounded wait elapsed, or that a
	// partial transfer stalled, before the requested amount of data
	// moved. It is recoverable: protocol engines retry on it.
	ErrTimeout = errors.New("divelog: timeout")

	// ErrUnsupported reports an operation the backend has no notion of
	// and chose not to no-op, such as a missing custom I/O callback.
	ErrUnsupported = errors.New("divelog: unsupported operation")

	// ErrNoAccess reports a permission problem on the underlying
	// resource.
	ErrNoAccess = errors.New("divelog: access denied")

	// ErrInvalidArgs reports malformed caller input.
	ErrInvalidArgs = errors.New("divelog: invalid arguments")

	// ErrNoDevice reports that no matching device could be found.
	ErrNoDevice = errors.New("divelog: no device found")
)

// NoTimeout configures a stream to block forever on reads.
// A zero timeout means an immediate, non-blocking poll.
const NoTimeout = time.Duration(-1)

// The parity checking scheme of a serial line.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// The number of stop bits of a serial line.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

// The flow control of a serial line.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
	FlowControlSoftware
)

// Direction selects the data direction(s) a Purge applies to.
type Direction int

const (
	DirectionInput  Direction = 0x01
	DirectionOutput Direction = 0x02
	DirectionAll    Direction = DirectionInput | DirectionOutput
)

// Stream is the polymorphic blocking stream every protocol engine is
// written against. A Stream owns exactly one underlying resource: it is
// either fully open and usable, or closed. Close releases the resource
// and must be called exactly once.
type Stream interface {
	// SetTimeout configures the wait applied to subsequent reads:
	// NoTimeout (or any negative value) blocks forever, zero polls,
	// positive values bound the wait.
	SetTimeout(timeout time.Duration) error

	// Read transfers exactly len(p) bytes into p, looping over partial
	// transfers. It returns the count actually read, and ErrTimeout
	// when fewer bytes arrived before the configured wait expired.
	Read(p []byte) (int, error)

	// Write transfers exactly len(p) bytes from p.
	Write(p []byte) (int, error)

	// Available reports a best-effort count of bytes ready to read
	// without blocking.
	Available() (int, error)

	// Configure applies serial line parameters. Backends without such
	// a notion accept the call and no-op.
	Configure(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error

	// Purge discards buffered but untransferred bytes in the given
	// direction(s).
	Purge(dir Direction) error

	SetDTR(on bool) error
	SetRTS(on bool) error
	SetBreak(on bool) error
	SetHalfDuplex(on bool) error

	Close() error
}

// trace emits a debug-level hexdump of transferred bytes.
func trace(log *slog.Logger, op string, p []byte) {
	if log == nil {
		return
	}
	log.Debug(op, "n", len(p), "data", hex.EncodeToString(p))
}
