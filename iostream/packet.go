// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

import (
	"log/slog"
	"time"
)

// PacketCallbacks supplies host-provided implementations for a
// packet-oriented transport such as BLE GATT characteristics, where the
// link moves whole packets instead of a byte stream.
type PacketCallbacks struct {
	// PacketSize is the maximum payload per packet. Writes are split
	// into chunks of at most this size.
	PacketSize int

	// Read receives one packet into p and reports its length.
	Read func(p []byte) (int, error)

	// Write transmits one packet.
	Write func(p []byte) (int, error)

	SetTimeout func(timeout time.Duration) error
	Close      func() error
}

// Packet adapts a packet-oriented transport to the byte-stream
// contract, buffering packet remainders across reads.
type Packet struct {
	cb  PacketCallbacks
	log *slog.Logger

	buf []byte // bytes received but not yet consumed
}

var _ Stream = (*Packet)(nil)

// OpenPacket wraps the given packet callback table as a Stream.
// PacketSize, Read and Write are mandatory.
func OpenPacket(cb PacketCallbacks, log *slog.Logger) (*Packet, error) {
	if cb.PacketSize <= 0 || cb.Read == nil || cb.Write == nil {
		return nil, ErrInvalidArgs
	}
	return &Packet{cb: cb, log: log}, nil
}

func (pk *Packet) SetTimeout(timeout time.Duration) error {
	if pk.cb.SetTimeout == nil {
		return ErrUnsupported
	}
	return pk.cb.SetTimeout(timeout)
}

func (pk *Packet) Read(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		if len(pk.buf) > 0 {
			n := copy(p[nbytes:], pk.buf)
			pk.buf = pk.buf[n:]
			nbytes += n
			continue
		}
		pkt := make([]byte, pk.cb.PacketSize)
		n, err := pk.cb.Read(pkt)
		if err != nil {
			trace(pk.log, "read", p[:nbytes])
			return nbytes, err
		}
		pk.buf = pkt[:n]
	}
	trace(pk.log, "read", p[:nbytes])
	return nbytes, nil
}

func (pk *Packet) Write(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		chunk := len(p) - nbytes
		if chunk > pk.cb.PacketSize {
			chunk = pk.cb.PacketSize
		}
		n, err := pk.cb.Write(p[nbytes : nbytes+chunk])
		nbytes += n
		if err != nil {
			trace(pk.log, "write", p[:nbytes])
			return nbytes, err
		}
	}
	trace(pk.log, "write", p[:nbytes])
	return nbytes, nil
}

func (pk *Packet) Available() (int, error) {
	return len(pk.buf), nil
}

// Configure is accepted and ignored: packet transports carry no serial
// line parameters.
func (pk *Packet) Configure(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error {
	return nil
}

func (pk *Packet) Purge(dir Direction) error {
	if dir&DirectionInput != 0 {
		pk.buf = nil
	}
	return nil
}

func (pk *Packet) SetDTR(on bool) error        { return nil }
func (pk *Packet) SetRTS(on bool) error        { return nil }
func (pk *Packet) SetBreak(on bool) error      { return nil }
func (pk *Packet) SetHalfDuplex(on bool) error { return nil }

func (pk *Packet) Close() error {
	if pk.cb.Close == nil {
		return nil
	}
	return pk.cb.Close()
}
