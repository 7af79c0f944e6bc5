// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package divelog

import (
	"errors"

	"sbinet.org/x/divelog/iostream"
)

var (
	// ErrProtocol reports a response that violates the device protocol:
	// a bad header byte, a checksum mismatch, an unexpected answer.
	ErrProtocol = errors.New("divelog: protocol error")

	// ErrDataFormat reports downloaded data that cannot be parsed:
	// an out-of-range ring-buffer pointer, a truncated dive record.
	ErrDataFormat = errors.New("divelog: data format error")

	// ErrCancelled reports an operation abandoned after Cancel.
	ErrCancelled = errors.New("divelog: cancelled")
)

// Transport errors surface unchanged through the device layer.
var (
	ErrTimeout     = iostream.ErrTimeout
	ErrUnsupported = iostream.ErrUnsupported
	ErrNoAccess    = iostream.ErrNoAccess
	ErrInvalidArgs = iostream.ErrInvalidArgs
	ErrNoDevice    = iostream.ErrNoDevice
)
