// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

import (
	"errors"
	"io/fs"
	"os"

	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// translateSysError maps platform and library error codes onto the
// shared taxonomy. It is the only platform-facing translation path;
// errors with no mapping pass through unchanged so that callers keep
// the full diagnostic.
func translateSysError(err error) error {
	if err == nil {
		return nil
	}

	var perr *serial.PortError
	if errors.As(err, &perr) {
		switch perr.Code() {
		case serial.PortNotFound:
			return ErrNoDevice
		case serial.PermissionDenied:
			return ErrNoAccess
		case serial.InvalidSerialPort:
			return ErrInvalidArgs
		}
		return err
	}

	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES):
		return ErrNoAccess
	case errors.Is(err, fs.ErrNotExist):
		return ErrNoDevice
	case errors.Is(err, unix.EINVAL):
		return ErrInvalidArgs
	case errors.Is(err, unix.EAFNOSUPPORT), errors.Is(err, unix.EOPNOTSUPP):
		return ErrUnsupported
	}
	return err
}
