// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package array provides byte array helpers: ASCII-hex conversion and
// endian-aware integer extraction.
package array // import "sbinet.org/x/divelog/internal/array"

import "fmt"

const hextab = "0123456789ABCDEF"

// Bin2Hex encodes src as uppercase ASCII-hex digits into dst.
// dst must be exactly twice the length of src.
func Bin2Hex(dst, src []byte) {
	if len(dst) != 2*len(src) {
		panic("array: invalid hex destination size")
	}
	for i, v := range src {
		dst[2*i] = hextab[v>>4]
		dst[2*i+1] = hextab[v&0x0F]
	}
}

// Hex2Bin decodes the ASCII-hex digits in src into dst, accepting both
// upper and lower case. src must be exactly twice the length of dst.
func Hex2Bin(dst, src []byte) error {
	if len(src) != 2*len(dst) {
		return fmt.Errorf("array: invalid hex source size %d", len(src))
	}
	for i := range dst {
		hi, ok1 := fromHex(src[2*i])
		lo, ok2 := fromHex(src[2*i+1])
		if !ok1 || !ok2 {
			return fmt.Errorf("array: invalid hex digit %q", src[2*i:2*i+2])
		}
		dst[i] = hi<<4 | lo
	}
	return nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// IsEqual reports whether every byte of data equals value.
func IsEqual(data []byte, value byte) bool {
	for _, v := range data {
		if v != value {
			return false
		}
	}
	return true
}

func Uint16LE(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8
}

func Uint16BE(data []byte) uint32 {
	return uint32(data[0])<<8 | uint32(data[1])
}

func Uint24LE(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
}

func Uint32LE(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}
