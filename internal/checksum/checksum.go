// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package checksum implements the checksums used on dive computer links.
package checksum // import "sbinet.org/x/divelog/internal/checksum"

const (
	ccittPoly = 0x1021
	ccittInit = 0xFFFF
)

// CRCCCITT computes the CRC16-CCITT checksum of data, with polynomial
// 0x1021 and initial value 0xFFFF. The result is reported big-endian in
// wire frames.
func CRCCCITT(data []byte) uint16 {
	crc := uint16(ccittInit)
	for _, v := range data {
		crc ^= uint16(v) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ ccittPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
