// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package divelog

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"sbinet.org/x/divelog/internal/array"
	"sbinet.org/x/divelog/iostream"
)

const smartFingerprintSize = 4

// smartNames lists the IrDA nicknames advertised by the Uwatec Smart
// family.
var smartNames = []string{
	"Aladin Smart Com",
	"Aladin Smart Pro",
	"Aladin Smart Tec",
	"Aladin Smart Z",
	"Uwatec Aladin",
	"UWATEC Galileo",
	"UWATEC Galileo Sol",
}

// IsSmartName reports whether an IrDA nickname belongs to the Uwatec
// Smart family.
func IsSmartName(name string) bool {
	for _, v := range smartNames {
		if strings.EqualFold(name, v) {
			return true
		}
	}
	return false
}

// Smart drives the length-prefixed handshake protocol spoken by the
// Uwatec Smart family, typically over IrDA.
type Smart struct {
	ios iostream.Stream
	cfg config

	// Clock calibration state: the device timestamp of the last dive
	// already seen, and the device/host clock pair observed at dump
	// time.
	timestamp uint32
	devtime   uint32
	systime   time.Time

	cancelled atomic.Bool
}

var _ Device = (*Smart)(nil)

// OpenSmart establishes a session over ios and performs the two-stage
// handshake. On handshake failure the stream is closed before the error
// is returned.
func OpenSmart(ios iostream.Stream, opts ...Option) (*Smart, error) {
	dev := &Smart{
		ios: ios,
		cfg: newConfig(opts),
	}
	if err := dev.handshake(); err != nil {
		_ = ios.Close()
		return nil, fmt.Errorf("could not handshake with the device: %w", err)
	}
	return dev, nil
}

// OpenSmartIrDA discovers a Uwatec Smart dive computer over IrDA,
// connects to it and performs the handshake.
func OpenSmartIrDA(opts ...Option) (*Smart, error) {
	cfg := newConfig(opts)

	devs, err := iostream.DiscoverIrDA(cfg.log)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate the IrDA devices: %w", err)
	}
	for _, dev := range devs {
		if !IsSmartName(dev.Name) {
			continue
		}
		ios, err := iostream.OpenIrDA(dev.Address, 1, cfg.log)
		if err != nil {
			return nil, fmt.Errorf("could not open the IrDA socket: %w", err)
		}
		return OpenSmart(ios, opts...)
	}
	return nil, ErrNoDevice
}

// transfer performs one command/answer exchange.
func (dev *Smart) transfer(cmd, answer []byte) error {
	if dev.cancelled.Load() {
		return ErrCancelled
	}

	if _, err := dev.ios.Write(cmd); err != nil {
		return fmt.Errorf("could not send the command: %w", err)
	}
	if _, err := dev.ios.Read(answer); err != nil {
		return fmt.Errorf("could not receive the answer: %w", err)
	}
	return nil
}

func (dev *Smart) handshake() error {
	var answer [1]byte

	if err := dev.transfer([]byte{0x1B}, answer[:]); err != nil {
		return err
	}
	if answer[0] != 0x01 {
		return fmt.Errorf("%w: unexpected handshake answer %#02x", ErrProtocol, answer[0])
	}

	if err := dev.transfer([]byte{0x1C, 0x10, 0x27, 0, 0}, answer[:]); err != nil {
		return err
	}
	if answer[0] != 0x01 {
		return fmt.Errorf("%w: unexpected handshake answer %#02x", ErrProtocol, answer[0])
	}

	return nil
}

// SetFingerprint registers the device timestamp of the most recent dive
// already downloaded. The timestamp is sent along with the download
// commands, so the instrument itself only transfers newer dives.
func (dev *Smart) SetFingerprint(fp []byte) error {
	switch len(fp) {
	case 0:
		dev.timestamp = 0
	case smartFingerprintSize:
		dev.timestamp = array.Uint32LE(fp)
	default:
		return ErrInvalidArgs
	}
	return nil
}

// Read is not supported: the instrument has no random memory access.
func (dev *Smart) Read(address uint32, p []byte) error {
	return ErrUnsupported
}

func (dev *Smart) Dump() ([]byte, error) {
	dev.cfg.emitProgress(0, 0)

	var model [1]byte
	if err := dev.transfer([]byte{0x10}, model[:]); err != nil {
		return nil, err
	}

	var serial [4]byte
	if err := dev.transfer([]byte{0x14}, serial[:]); err != nil {
		return nil, err
	}

	var devtime [4]byte
	if err := dev.transfer([]byte{0x1A}, devtime[:]); err != nil {
		return nil, err
	}

	dev.systime = time.Now()
	dev.devtime = array.Uint32LE(devtime[:])

	dev.cfg.emitProgress(9, 0)
	dev.cfg.emitClock(Clock{SysTime: dev.systime, DevTime: dev.devtime})
	dev.cfg.emitDevInfo(DevInfo{
		Model:    uint32(model[0]),
		Firmware: 0,
		Serial:   array.Uint32LE(serial[:]),
	})

	// Command template, carrying the timestamp of the last dive already
	// seen.
	command := []byte{0x00,
		byte(dev.timestamp),
		byte(dev.timestamp >> 8),
		byte(dev.timestamp >> 16),
		byte(dev.timestamp >> 24),
		0x10, 0x27, 0, 0,
	}

	// Data length.
	command[0] = 0xC6
	var answer [4]byte
	if err := dev.transfer(command, answer[:]); err != nil {
		return nil, err
	}
	length := array.Uint32LE(answer[:])

	maximum := uint32(4 + 9)
	if length != 0 {
		maximum += length + 4
	}
	dev.cfg.emitProgress(9+4, maximum)

	if length == 0 {
		return nil, nil
	}

	data := make([]byte, length)

	// Data transfer.
	command[0] = 0xC4
	if err := dev.transfer(command, answer[:]); err != nil {
		return nil, err
	}
	total := array.Uint32LE(answer[:])

	dev.cfg.emitProgress(9+4+4, maximum)

	if total != length+4 {
		return nil, fmt.Errorf("%w: unexpected data size %d (want %d)", ErrProtocol, total, length+4)
	}

	nbytes := uint32(0)
	for nbytes < length {
		// Read at least 32 bytes, more if already buffered.
		n := uint32(32)
		if avail, err := dev.ios.Available(); err == nil && uint32(avail) > n {
			n = uint32(avail)
		}
		if nbytes+n > length {
			n = length - nbytes
		}

		if _, err := dev.ios.Read(data[nbytes : nbytes+n]); err != nil {
			return nil, fmt.Errorf("could not receive the answer: %w", err)
		}

		nbytes += n
		dev.cfg.emitProgress(9+4+4+nbytes, maximum)
	}

	return data, nil
}

func (dev *Smart) ForEach(cb DiveCallback) error {
	data, err := dev.Dump()
	if err != nil {
		return err
	}
	return ExtractSmartDives(data, cb)
}

func (dev *Smart) Cancel() {
	dev.cancelled.Store(true)
}

func (dev *Smart) Close() error {
	return dev.ios.Close()
}

// smartMarker starts every dive record in the data stream.
var smartMarker = []byte{0xA5, 0xA5, 0x5A, 0x5A}

// ExtractSmartDives scans the downloaded data stream backward for dive
// start markers and hands each dive to cb, most recent first. Each
// record is length-prefixed right after the marker, with the dive
// timestamp at offset 8.
func ExtractSmartDives(data []byte, cb DiveCallback) error {
	previous := len(data)
	current := 0
	if len(data) >= 4 {
		current = len(data) - 4
	}
	for current > 0 {
		current--
		if !bytes.HasPrefix(data[current:], smartMarker) {
			continue
		}

		if current+8+smartFingerprintSize > len(data) {
			return fmt.Errorf("%w: truncated dive record at offset %#x", ErrDataFormat, current)
		}
		length := int(array.Uint32LE(data[current+4:]))

		// A record running past the previous one means the stream is
		// inconsistent.
		if current+length > previous {
			return fmt.Errorf("%w: overlapping dive records at offset %#x", ErrDataFormat, current)
		}

		if cb != nil && !cb(data[current:current+length], data[current+8:current+8+smartFingerprintSize]) {
			return nil
		}

		previous = current
		if current >= 4 {
			current -= 4
		} else {
			current = 0
		}
	}
	return nil
}
