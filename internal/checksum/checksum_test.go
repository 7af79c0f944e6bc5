// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRCCCITT(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0xFFFF},
		{"check", []byte("123456789"), 0x29B1},
		{"single", []byte{0x00}, 0xE1F0},
		{"ascii", []byte("A"), 0xB915},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CRCCCITT(tc.data))
		})
	}
}

func TestCRCCCITTBitFlip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x20, 0x7F}
	want := CRCCCITT(data)
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(data))
			copy(flipped, data)
			flipped[i] ^= 1 << bit
			assert.NotEqual(t, want, CRCCCITT(flipped),
				"bit flip at byte %d bit %d went undetected", i, bit)
		}
	}
}
