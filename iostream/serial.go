// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

import (
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// Serial is a Stream over a serial (or USB CDC) port.
type Serial struct {
	name string
	port serial.Port
	log  *slog.Logger

	timeout    time.Duration
	halfduplex bool
}

var _ Stream = (*Serial)(nil)

// OpenSerial opens the named serial port. The port starts out with the
// platform default line parameters and an infinite read timeout; use
// Configure and SetTimeout before talking to a device.
func OpenSerial(name string, log *slog.Logger) (*Serial, error) {
	port, err := serial.Open(name, &serial.Mode{})
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %q: %w", name, translateSysError(err))
	}
	s := &Serial{
		name:    name,
		port:    port,
		log:     log,
		timeout: NoTimeout,
	}
	if err := s.port.SetReadTimeout(serial.NoTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("could not set the serial timeout: %w", translateSysError(err))
	}
	return s, nil
}

func (s *Serial) SetTimeout(timeout time.Duration) error {
	t := timeout
	if t < 0 {
		t = serial.NoTimeout
	}
	if err := s.port.SetReadTimeout(t); err != nil {
		return translateSysError(err)
	}
	s.timeout = timeout
	return nil
}

func (s *Serial) Configure(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error {
	// go.bug.st/serial has no flow control knob; the devices in scope
	// all run without it.
	if flow != FlowControlNone {
		return ErrUnsupported
	}

	mode := serial.Mode{
		BaudRate: baudrate,
		DataBits: databits,
	}
	switch parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		return ErrInvalidArgs
	}
	switch stopbits {
	case StopBitsOne:
		mode.StopBits = serial.OneStopBit
	case StopBitsOnePointFive:
		mode.StopBits = serial.OnePointFiveStopBits
	case StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		return ErrInvalidArgs
	}

	if err := s.port.SetMode(&mode); err != nil {
		return translateSysError(err)
	}
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		n, err := s.port.Read(p[nbytes:])
		if err != nil {
			return nbytes, translateSysError(err)
		}
		if n == 0 {
			break // timeout
		}
		nbytes += n
	}
	trace(s.log, "read", p[:nbytes])
	if nbytes != len(p) {
		return nbytes, ErrTimeout
	}
	return nbytes, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		n, err := s.port.Write(p[nbytes:])
		if err != nil {
			return nbytes, translateSysError(err)
		}
		nbytes += n
	}
	trace(s.log, "write", p[:nbytes])

	if s.halfduplex {
		// The RX line echoes everything we transmit; drain the echo so
		// the next read starts at the device's answer.
		echo := make([]byte, nbytes)
		ndrained := 0
		for ndrained < nbytes {
			n, err := s.port.Read(echo[ndrained:])
			if err != nil || n == 0 {
				break
			}
			ndrained += n
		}
	}
	return nbytes, nil
}

// Available is not supported by the underlying library; callers use it
// only as an optimization and ignore the error.
func (s *Serial) Available() (int, error) {
	return 0, ErrUnsupported
}

func (s *Serial) Purge(dir Direction) error {
	if dir&DirectionInput != 0 {
		if err := s.port.ResetInputBuffer(); err != nil {
			return translateSysError(err)
		}
	}
	if dir&DirectionOutput != 0 {
		if err := s.port.ResetOutputBuffer(); err != nil {
			return translateSysError(err)
		}
	}
	return nil
}

func (s *Serial) SetDTR(on bool) error {
	return translateSysError(s.port.SetDTR(on))
}

func (s *Serial) SetRTS(on bool) error {
	return translateSysError(s.port.SetRTS(on))
}

// SetBreak asserts the break condition. The underlying library only
// exposes timed break pulses, so a set transmits one pulse and a clear
// is a no-op.
func (s *Serial) SetBreak(on bool) error {
	if !on {
		return nil
	}
	return translateSysError(s.port.Break(100 * time.Millisecond))
}

func (s *Serial) SetHalfDuplex(on bool) error {
	s.halfduplex = on
	return nil
}

func (s *Serial) Close() error {
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("could not close serial port %q: %w", s.name, translateSysError(err))
	}
	return nil
}
