// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package array

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	for _, src := range [][]byte{
		{},
		{0x00},
		{0xFF},
		{0xDE, 0xAD, 0xBE, 0xEF},
		{0x00, 0x01, 0x7F, 0x80, 0xFE, 0xFF},
	} {
		enc := make([]byte, 2*len(src))
		Bin2Hex(enc, src)

		dec := make([]byte, len(src))
		err := Hex2Bin(dec, enc)
		require.NoError(t, err)
		assert.Equal(t, src, dec)
	}
}

func TestBin2HexUppercase(t *testing.T) {
	enc := make([]byte, 4)
	Bin2Hex(enc, []byte{0xAB, 0xCD})
	assert.Equal(t, []byte("ABCD"), enc)
}

func TestHex2BinLowercase(t *testing.T) {
	dst := make([]byte, 2)
	err := Hex2Bin(dst, []byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD}, dst)
}

func TestHex2BinInvalid(t *testing.T) {
	dst := make([]byte, 2)
	assert.Error(t, Hex2Bin(dst, []byte("12g4")))
	assert.Error(t, Hex2Bin(dst, []byte("123")))
}

func TestUint(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, uint32(0x0201), Uint16LE(data))
	assert.Equal(t, uint32(0x0102), Uint16BE(data))
	assert.Equal(t, uint32(0x030201), Uint24LE(data))
	assert.Equal(t, uint32(0x04030201), Uint32LE(data))
}

func TestIsEqual(t *testing.T) {
	assert.True(t, IsEqual([]byte{0xFF, 0xFF, 0xFF}, 0xFF))
	assert.False(t, IsEqual([]byte{0xFF, 0xFE, 0xFF}, 0xFF))
	assert.True(t, IsEqual(nil, 0xFF))
}
