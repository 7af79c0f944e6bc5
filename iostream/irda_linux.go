// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package iostream

import (
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	solIRLMP = 266

	irlmpEnumDevices = 1

	irdaMaxDevices = 10
)

// struct sockaddr_irda, from linux/irda.h.
type sockaddrIrda struct {
	Family  uint16
	LsapSel uint8
	_       uint8
	Addr    uint32
	Name    [25]byte
}

// struct irda_device_info, from linux/irda.h.
type irdaDeviceInfo struct {
	Saddr   uint32
	Daddr   uint32
	Info    [22]byte
	Charset uint8
	Hints   [2]byte
	_       [3]byte
}

// IrDA is a Stream over a Linux IrDA socket.
type IrDA struct {
	fd  int
	log *slog.Logger

	timeout time.Duration
}

var _ Stream = (*IrDA)(nil)

// DiscoverIrDA enumerates IrDA peers currently in range.
func DiscoverIrDA(log *slog.Logger) ([]IrDADevice, error) {
	fd, err := unix.Socket(unix.AF_IRDA, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open IrDA socket: %w", translateSysError(err))
	}
	defer unix.Close(fd)

	var (
		size = uint32(4 + irdaMaxDevices*uint32(unsafe.Sizeof(irdaDeviceInfo{})))
		buf  = make([]byte, size)
	)
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT,
		uintptr(fd), solIRLMP, irlmpEnumDevices,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)), 0)
	if errno != 0 {
		if errno == unix.EAGAIN {
			return nil, nil // no devices in range
		}
		return nil, fmt.Errorf("could not enumerate IrDA devices: %w", translateSysError(errno))
	}

	ndevs := int(*(*uint32)(unsafe.Pointer(&buf[0])))
	if ndevs > irdaMaxDevices {
		ndevs = irdaMaxDevices
	}
	devs := make([]IrDADevice, 0, ndevs)
	for i := 0; i < ndevs; i++ {
		info := (*irdaDeviceInfo)(unsafe.Pointer(&buf[4+i*int(unsafe.Sizeof(irdaDeviceInfo{}))]))
		name := info.Info[:]
		for j, c := range name {
			if c == 0 {
				name = name[:j]
				break
			}
		}
		devs = append(devs, IrDADevice{
			Address: info.Daddr,
			Name:    string(name),
			Charset: info.Charset,
			Hints:   info.Hints,
		})
	}
	if log != nil {
		log.Debug("irda discovery", "n", len(devs))
	}
	return devs, nil
}

// OpenIrDA connects to the given peer address. A non-negative lsap
// selects a service endpoint directly; a negative one connects by the
// conventional service name instead.
func OpenIrDA(address uint32, lsap int, log *slog.Logger) (*IrDA, error) {
	fd, err := unix.Socket(unix.AF_IRDA, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open IrDA socket: %w", translateSysError(err))
	}

	sa := sockaddrIrda{
		Family: unix.AF_IRDA,
		Addr:   address,
	}
	switch {
	case lsap >= 0:
		sa.LsapSel = uint8(lsap)
	default:
		sa.LsapSel = 0xFF
		copy(sa.Name[:], "LSAP")
	}
	_, _, errno := unix.Syscall(unix.SYS_CONNECT,
		uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("could not connect to IrDA device %#08x: %w",
			address, translateSysError(errno))
	}

	return &IrDA{
		fd:      fd,
		log:     log,
		timeout: NoTimeout,
	}, nil
}

func (ir *IrDA) SetTimeout(timeout time.Duration) error {
	ir.timeout = timeout
	return nil
}

func (ir *IrDA) Read(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		var tv *unix.Timeval
		if ir.timeout >= 0 {
			v := unix.NsecToTimeval(ir.timeout.Nanoseconds())
			tv = &v
		}
		var fds unix.FdSet
		fds.Set(ir.fd)
		n, err := unix.Select(ir.fd+1, &fds, nil, nil, tv)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nbytes, translateSysError(err)
		}
		if n == 0 {
			break // timeout
		}
		n, err = unix.Read(ir.fd, p[nbytes:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return nbytes, translateSysError(err)
		}
		if n == 0 {
			break // peer closed
		}
		nbytes += n
	}
	trace(ir.log, "read", p[:nbytes])
	if nbytes != len(p) {
		return nbytes, ErrTimeout
	}
	return nbytes, nil
}

func (ir *IrDA) Write(p []byte) (int, error) {
	nbytes := 0
	for nbytes < len(p) {
		n, err := unix.Write(ir.fd, p[nbytes:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return nbytes, translateSysError(err)
		}
		nbytes += n
	}
	trace(ir.log, "write", p[:nbytes])
	return nbytes, nil
}

func (ir *IrDA) Available() (int, error) {
	n, err := unix.IoctlGetInt(ir.fd, unix.TIOCINQ)
	if err != nil {
		return 0, translateSysError(err)
	}
	return n, nil
}

// Configure is accepted and ignored: the IrDA stack negotiates its own
// link parameters.
func (ir *IrDA) Configure(baudrate, databits int, parity Parity, stopbits StopBits, flow FlowControl) error {
	return nil
}

func (ir *IrDA) Purge(dir Direction) error   { return nil }
func (ir *IrDA) SetDTR(on bool) error        { return nil }
func (ir *IrDA) SetRTS(on bool) error        { return nil }
func (ir *IrDA) SetBreak(on bool) error      { return nil }
func (ir *IrDA) SetHalfDuplex(on bool) error { return nil }

func (ir *IrDA) Close() error {
	if err := unix.Close(ir.fd); err != nil {
		return fmt.Errorf("could not close IrDA socket: %w", translateSysError(err))
	}
	return nil
}
