// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

// IrDADevice describes a peer found during IrDA discovery.
type IrDADevice struct {
	Address uint32 // 32-bit device address
	Name    string // nickname advertised by the peer
	Charset uint8
	Hints   [2]byte // service hint bits
}
