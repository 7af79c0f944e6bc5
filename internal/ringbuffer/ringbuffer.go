// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ringbuffer provides circular address arithmetic for the
// fixed-size on-device memory regions that store dive profiles.
package ringbuffer // import "sbinet.org/x/divelog/internal/ringbuffer"

// Distance returns the number of bytes from a to b, walking forward
// through the circular region [begin, end). When a equals b the result
// is zero, or the full region size if full is set. Addresses outside
// the region yield zero.
func Distance(a, b uint, full bool, begin, end uint) uint {
	if a < begin || a >= end || b < begin || b >= end {
		return 0
	}
	switch {
	case a < b:
		return b - a
	case a > b:
		return (end - a) + (b - begin)
	case full:
		return end - begin
	}
	return 0
}

// Increment advances a by delta within the circular region [begin, end).
func Increment(a, delta uint, begin, end uint) uint {
	if a < begin || a >= end {
		return begin
	}
	size := end - begin
	return (a - begin + delta) % size + begin
}
