// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package divelog

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"sbinet.org/x/divelog/internal/array"
	"sbinet.org/x/divelog/internal/checksum"
	"sbinet.org/x/divelog/internal/ringbuffer"
	"sbinet.org/x/divelog/iostream"
)

const (
	leonardoMemSize         = 32000
	leonardoPacketSize      = 32
	leonardoFingerprintSize = 5

	rbLogbookBegin = 0x0100
	rbLogbookEnd   = 0x1438
	rbLogbookSize  = 0x52
	rbLogbookCount = (rbLogbookEnd - rbLogbookBegin) / rbLogbookSize

	rbProfileBegin = 0x1438
	rbProfileEnd   = leonardoMemSize
)

// Leonardo drives the checksum-framed polling protocol spoken by the
// Cressi Leonardo family over a 115200 8N1 serial line.
type Leonardo struct {
	ios iostream.Stream
	cfg config

	fingerprint    [leonardoFingerprintSize]byte
	hasFingerprint bool

	cancelled atomic.Bool
}

var _ Device = (*Leonardo)(nil)

// OpenLeonardo establishes a session over ios. The stream is configured
// and the instrument reset with a DTR/RTS pulse sequence; on any setup
// failure the stream is closed before the error is returned.
func OpenLeonardo(ios iostream.Stream, opts ...Option) (*Leonardo, error) {
	dev := &Leonardo{
		ios: ios,
		cfg: newConfig(opts),
	}
	if err := dev.setup(); err != nil {
		_ = ios.Close()
		return nil, err
	}
	return dev, nil
}

func (dev *Leonardo) setup() error {
	if err := dev.ios.Configure(115200, 8, iostream.ParityNone, iostream.StopBitsOne, iostream.FlowControlNone); err != nil {
		return fmt.Errorf("could not set the terminal attributes: %w", err)
	}
	if err := dev.ios.SetTimeout(1 * time.Second); err != nil {
		return fmt.Errorf("could not set the timeout: %w", err)
	}

	// Reset the instrument with a DTR pulse.
	if err := dev.ios.SetRTS(true); err != nil {
		return fmt.Errorf("could not set the RTS line: %w", err)
	}
	if err := dev.ios.SetDTR(true); err != nil {
		return fmt.Errorf("could not set the DTR line: %w", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := dev.ios.SetDTR(false); err != nil {
		return fmt.Errorf("could not clear the DTR line: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	_ = dev.ios.Purge(iostream.DirectionAll)

	return nil
}

// makeASCII frames raw as '{' + hex(raw) + hex(crc) + '}', with the CRC
// computed over the hex digits of the payload.
func makeASCII(raw []byte) []byte {
	cmd := make([]byte, 2*(len(raw)+3))
	cmd[0] = '{'
	array.Bin2Hex(cmd[1:1+2*len(raw)], raw)
	crc := checksum.CRCCCITT(cmd[1 : 1+2*len(raw)])
	csum := []byte{byte(crc >> 8), byte(crc)}
	array.Bin2Hex(cmd[1+2*len(raw):len(cmd)-1], csum)
	cmd[len(cmd)-1] = '}'
	return cmd
}

// packet performs one command/answer exchange and validates the answer
// framing.
func (dev *Leonardo) packet(cmd, answer []byte) error {
	if dev.cancelled.Load() {
		return ErrCancelled
	}

	if _, err := dev.ios.Write(cmd); err != nil {
		return fmt.Errorf("could not send the command: %w", err)
	}
	if _, err := dev.ios.Read(answer); err != nil {
		return fmt.Errorf("could not receive the answer: %w", err)
	}

	n := len(answer)
	if answer[0] != '{' || answer[n-1] != '}' {
		return fmt.Errorf("%w: unexpected answer header/trailer byte", ErrProtocol)
	}

	var csum [2]byte
	if err := array.Hex2Bin(csum[:], answer[n-5:n-1]); err != nil {
		return fmt.Errorf("%w: malformed answer checksum", ErrProtocol)
	}
	crc := uint16(array.Uint16BE(csum[:]))
	ccrc := checksum.CRCCCITT(answer[1 : n-5])
	if crc != ccrc {
		return fmt.Errorf("%w: unexpected answer checksum %#04x (want %#04x)", ErrProtocol, crc, ccrc)
	}

	return nil
}

// transfer wraps packet with a bounded retry budget: corrupted or timed
// out packets are discarded and requested again.
func (dev *Leonardo) transfer(cmd, answer []byte) error {
	var err error
	for attempt := 0; attempt < dev.cfg.retries; attempt++ {
		if attempt > 0 {
			// Give the instrument a moment, then discard garbage bytes.
			time.Sleep(100 * time.Millisecond)
			_ = dev.ios.Purge(iostream.DirectionInput)
		}
		err = dev.packet(cmd, answer)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrProtocol) && !errors.Is(err, ErrTimeout) {
			return err
		}
	}
	return err
}

func (dev *Leonardo) SetFingerprint(fp []byte) error {
	switch len(fp) {
	case 0:
		dev.fingerprint = [leonardoFingerprintSize]byte{}
		dev.hasFingerprint = false
	case leonardoFingerprintSize:
		copy(dev.fingerprint[:], fp)
		dev.hasFingerprint = true
	default:
		return ErrInvalidArgs
	}
	return nil
}

func (dev *Leonardo) Read(address uint32, p []byte) error {
	nbytes := 0
	for nbytes < len(p) {
		n := len(p) - nbytes
		if n > leonardoPacketSize {
			n = leonardoPacketSize
		}

		raw := []byte{
			byte(address >> 8), byte(address),
			byte(n >> 8), byte(n),
		}
		cmd := makeASCII(raw)

		answer := make([]byte, 2*(n+3))
		if err := dev.transfer(cmd, answer); err != nil {
			return err
		}

		if err := array.Hex2Bin(p[nbytes:nbytes+n], answer[1:1+2*n]); err != nil {
			return fmt.Errorf("%w: malformed answer payload", ErrProtocol)
		}

		nbytes += n
		address += uint32(n)
	}
	return nil
}

func (dev *Leonardo) Dump() ([]byte, error) {
	if dev.cancelled.Load() {
		return nil, ErrCancelled
	}

	data := make([]byte, leonardoMemSize)
	dev.cfg.emitProgress(0, leonardoMemSize)

	cmd := []byte{0x7B, 0x31, 0x32, 0x33, 0x44, 0x42, 0x41, 0x7D}
	if _, err := dev.ios.Write(cmd); err != nil {
		return nil, fmt.Errorf("could not send the command: %w", err)
	}

	header := make([]byte, 7)
	if _, err := dev.ios.Read(header); err != nil {
		return nil, fmt.Errorf("could not receive the answer: %w", err)
	}
	expected := []byte{0x7B, 0x21, 0x44, 0x35, 0x42, 0x33, 0x7D}
	if !bytes.Equal(header, expected) {
		return nil, fmt.Errorf("%w: unexpected answer header", ErrProtocol)
	}

	nbytes := 0
	for nbytes < leonardoMemSize {
		// Read at least 1024 bytes, more if already buffered.
		n := 1024
		if avail, err := dev.ios.Available(); err == nil && avail > n {
			n = avail
		}
		if nbytes+n > leonardoMemSize {
			n = leonardoMemSize - nbytes
		}

		if _, err := dev.ios.Read(data[nbytes : nbytes+n]); err != nil {
			return nil, fmt.Errorf("could not receive the answer: %w", err)
		}

		nbytes += n
		dev.cfg.emitProgress(uint32(nbytes), leonardoMemSize)
	}

	// The trailer carries the expected CRC of the whole image as four
	// hex digits.
	trailer := make([]byte, 4)
	if _, err := dev.ios.Read(trailer); err != nil {
		return nil, fmt.Errorf("could not receive the answer: %w", err)
	}
	var csum [2]byte
	if err := array.Hex2Bin(csum[:], trailer); err != nil {
		return nil, fmt.Errorf("%w: malformed image checksum", ErrProtocol)
	}
	crc := uint16(array.Uint16BE(csum[:]))
	ccrc := checksum.CRCCCITT(data)
	if crc != ccrc {
		return nil, fmt.Errorf("%w: unexpected image checksum %#04x (want %#04x)", ErrProtocol, crc, ccrc)
	}

	return data, nil
}

func (dev *Leonardo) ForEach(cb DiveCallback) error {
	data, err := dev.Dump()
	if err != nil {
		return err
	}

	dev.cfg.emitDevInfo(DevInfo{
		Model:    uint32(data[0]),
		Firmware: 0,
		Serial:   array.Uint24LE(data[1:4]),
	})

	return dev.extract(data, cb)
}

func (dev *Leonardo) Cancel() {
	dev.cancelled.Store(true)
}

func (dev *Leonardo) Close() error {
	return dev.ios.Close()
}

// ExtractLeonardoDives walks the logbook ring of a full memory image
// and hands each dive to cb, most recent first.
func ExtractLeonardoDives(data []byte, cb DiveCallback) error {
	dev := Leonardo{cfg: newConfig(nil)}
	return dev.extract(data, cb)
}

func (dev *Leonardo) extract(data []byte, cb DiveCallback) error {
	if len(data) < leonardoMemSize {
		return fmt.Errorf("%w: image too small (%d bytes)", ErrDataFormat, len(data))
	}

	// Locate the most recent dive. The device stores a monotonically
	// incremented counter in every dive header, so the most recent
	// dive carries the highest value.
	var (
		count   int
		latest  int
		maximum uint32
	)
	for i := 0; i < rbLogbookCount; i++ {
		offset := rbLogbookBegin + i*rbLogbookSize

		// An uninitialized entry ends the logbook.
		if array.IsEqual(data[offset:offset+rbLogbookSize], 0xFF) {
			break
		}

		current := array.Uint16LE(data[offset:])
		if current == 0xFFFF {
			if dev.cfg.log != nil {
				dev.cfg.log.Warn("unexpected internal dive number", "slot", i)
			}
			break
		}
		if current > maximum {
			maximum = current
			latest = i
		}

		count++
	}

	buffer := make([]byte, rbLogbookSize+rbProfileEnd-rbProfileBegin)

	var (
		previous  uint
		remaining uint = rbProfileEnd - rbProfileBegin
	)
	for i := 0; i < count; i++ {
		idx := (latest + rbLogbookCount - i) % rbLogbookCount
		offset := rbLogbookBegin + idx*rbLogbookSize

		header := uint(array.Uint16LE(data[offset+2:]))
		footer := uint(array.Uint16LE(data[offset+4:]))
		if header < rbProfileBegin || header+2 > rbProfileEnd ||
			footer < rbProfileBegin || footer+2 > rbProfileEnd {
			return fmt.Errorf("%w: invalid ringbuffer pointer (%#04x %#04x)", ErrDataFormat, header, footer)
		}

		// Consecutive dives must be contiguous in the profile ring.
		if previous != 0 && previous != footer+2 {
			return fmt.Errorf("%w: profiles are not continuous (%#04x %#04x %#04x)", ErrDataFormat, header, footer, previous)
		}

		// Stop at the first dive already seen.
		if dev.hasFingerprint && bytes.Equal(data[offset+8:offset+8+leonardoFingerprintSize], dev.fingerprint[:]) {
			break
		}

		copy(buffer, data[offset:offset+rbLogbookSize])

		address := header + 2
		var length uint
		if dist := ringbuffer.Distance(header, footer, false, rbProfileBegin, rbProfileEnd); dist >= 2 {
			length = dist - 2
		}

		if remaining != 0 && remaining >= length+4 {
			// The profile echoes the ring pointers back; a disagreement
			// means the ring structure itself is inconsistent.
			header2 := uint(array.Uint16LE(data[footer:]))
			footer2 := uint(array.Uint16LE(data[header:]))
			if header2 != header || footer2 != footer {
				return fmt.Errorf("%w: invalid ringbuffer pointer (%#04x %#04x)", ErrDataFormat, header2, footer2)
			}

			if address+length > rbProfileEnd {
				na := rbProfileEnd - address
				nb := length - na
				copy(buffer[rbLogbookSize:], data[address:address+na])
				copy(buffer[rbLogbookSize+na:], data[rbProfileBegin:rbProfileBegin+nb])
			} else {
				copy(buffer[rbLogbookSize:], data[address:address+length])
			}

			remaining -= length + 4
		} else {
			// No more profile data available: deliver the header alone.
			remaining = 0
			length = 0
		}

		if cb != nil && !cb(buffer[:rbLogbookSize+length], buffer[8:8+leonardoFingerprintSize]) {
			break
		}

		previous = header
	}

	return nil
}
