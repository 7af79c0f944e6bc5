// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iostream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomNilCallbacks(t *testing.T) {
	ios := OpenCustom(Callbacks{}, nil)

	assert.ErrorIs(t, ios.SetTimeout(time.Second), ErrUnsupported)
	_, err := ios.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = ios.Write([]byte{0x42})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = ios.Available()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, ios.Configure(115200, 8, ParityNone, StopBitsOne, FlowControlNone), ErrUnsupported)
	assert.ErrorIs(t, ios.Purge(DirectionAll), ErrUnsupported)
	assert.ErrorIs(t, ios.SetDTR(true), ErrUnsupported)
	assert.ErrorIs(t, ios.SetRTS(true), ErrUnsupported)
	assert.ErrorIs(t, ios.SetBreak(true), ErrUnsupported)
	assert.ErrorIs(t, ios.SetHalfDuplex(true), ErrUnsupported)
	assert.NoError(t, ios.Close())
}

func TestCustomDispatch(t *testing.T) {
	var (
		wrote  []byte
		purged Direction
		closed bool
	)
	ios := OpenCustom(Callbacks{
		Read: func(p []byte) (int, error) {
			return copy(p, []byte{0xAA, 0xBB, 0xCC}), nil
		},
		Write: func(p []byte) (int, error) {
			wrote = append(wrote, p...)
			return len(p), nil
		},
		Available: func() (int, error) { return 3, nil },
		Purge: func(dir Direction) error {
			purged = dir
			return nil
		},
		Close: func() error {
			closed = true
			return nil
		},
	}, nil)

	n, err := ios.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x01, 0x02}, wrote)

	buf := make([]byte, 3)
	n, err = ios.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, buf)

	n, err = ios.Available()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, ios.Purge(DirectionInput))
	assert.Equal(t, DirectionInput, purged)

	require.NoError(t, ios.Close())
	assert.True(t, closed)
}

func TestPacketInvalid(t *testing.T) {
	rd := func(p []byte) (int, error) { return 0, nil }
	wr := func(p []byte) (int, error) { return len(p), nil }

	for _, tc := range []struct {
		name string
		cb   PacketCallbacks
	}{
		{"no-size", PacketCallbacks{Read: rd, Write: wr}},
		{"no-read", PacketCallbacks{PacketSize: 20, Write: wr}},
		{"no-write", PacketCallbacks{PacketSize: 20, Read: rd}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := OpenPacket(tc.cb, nil)
			assert.ErrorIs(t, err, ErrInvalidArgs)
		})
	}
}

func TestPacketReassembly(t *testing.T) {
	packets := [][]byte{
		{0x01, 0x02, 0x03, 0x04, 0x05},
		{0x06, 0x07},
		{0x08, 0x09, 0x0A},
	}
	ios, err := OpenPacket(PacketCallbacks{
		PacketSize: 5,
		Read: func(p []byte) (int, error) {
			if len(packets) == 0 {
				return 0, ErrTimeout
			}
			n := copy(p, packets[0])
			packets = packets[1:]
			return n, nil
		},
		Write: func(p []byte) (int, error) { return len(p), nil },
	}, nil)
	require.NoError(t, err)

	// A read smaller than one packet leaves the remainder buffered.
	buf := make([]byte, 3)
	n, err := ios.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, buf)

	n, err = ios.Available()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A read spanning packet boundaries pulls more packets in.
	buf = make([]byte, 6)
	n, err = ios.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{0x04, 0x05, 0x06, 0x07, 0x08, 0x09}, buf)

	// Purging the input drops the buffered remainder.
	require.NoError(t, ios.Purge(DirectionInput))
	n, err = ios.Available()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPacketWriteChunking(t *testing.T) {
	var chunks [][]byte
	ios, err := OpenPacket(PacketCallbacks{
		PacketSize: 4,
		Read:       func(p []byte) (int, error) { return 0, ErrTimeout },
		Write: func(p []byte) (int, error) {
			chunks = append(chunks, append([]byte(nil), p...))
			return len(p), nil
		},
	}, nil)
	require.NoError(t, err)

	n, err := ios.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10},
	}, chunks)
}
