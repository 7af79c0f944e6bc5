// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package iostream

import "log/slog"

// DiscoverIrDA enumerates IrDA peers currently in range.
//
// IrDA sockets are only available on Linux.
func DiscoverIrDA(log *slog.Logger) ([]IrDADevice, error) {
	return nil, ErrUnsupported
}

// OpenIrDA connects to the given peer address.
//
// IrDA sockets are only available on Linux.
func OpenIrDA(address uint32, lsap int, log *slog.Logger) (Stream, error) {
	return nil, ErrUnsupported
}
