// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package divelog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smartHandshake = []exchange{
	{cmd: []byte{0x1B}, answer: []byte{0x01}},
	{cmd: []byte{0x1C, 0x10, 0x27, 0, 0}, answer: []byte{0x01}},
}

// smartRecord builds one dive record: marker, length, timestamp,
// payload.
func smartRecord(timestamp uint32, payload []byte) []byte {
	rec := make([]byte, 12+len(payload))
	copy(rec, smartMarker)
	binary.LittleEndian.PutUint32(rec[4:], uint32(len(rec)))
	binary.LittleEndian.PutUint32(rec[8:], timestamp)
	copy(rec[12:], payload)
	return rec
}

func TestSmartHandshake(t *testing.T) {
	dev, err := OpenSmart(scripted(t, smartHandshake))
	require.NoError(t, err)
	assert.NoError(t, dev.Close())
}

func TestSmartHandshakeBadAck(t *testing.T) {
	_, err := OpenSmart(scripted(t, []exchange{
		{cmd: []byte{0x1B}, answer: []byte{0xFF}},
	}))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSmartSetFingerprint(t *testing.T) {
	dev := &Smart{cfg: newConfig(nil)}

	assert.ErrorIs(t, dev.SetFingerprint([]byte{1, 2}), ErrInvalidArgs)
	assert.Equal(t, uint32(0), dev.timestamp)

	require.NoError(t, dev.SetFingerprint([]byte{0x78, 0x56, 0x34, 0x12}))
	assert.Equal(t, uint32(0x12345678), dev.timestamp)

	require.NoError(t, dev.SetFingerprint(nil))
	assert.Equal(t, uint32(0), dev.timestamp)
}

func TestSmartReadUnsupported(t *testing.T) {
	dev := &Smart{cfg: newConfig(nil)}
	assert.ErrorIs(t, dev.Read(0, make([]byte, 4)), ErrUnsupported)
}

func smartDumpScript(timestamp uint32, payload []byte) []exchange {
	lenAnswer := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenAnswer, uint32(len(payload)))
	totAnswer := make([]byte, 4)
	binary.LittleEndian.PutUint32(totAnswer, uint32(len(payload))+4)

	ts := make([]byte, 4)
	binary.LittleEndian.PutUint32(ts, timestamp)

	script := append([]exchange(nil), smartHandshake...)
	script = append(script,
		exchange{cmd: []byte{0x10}, answer: []byte{0x18}},
		exchange{cmd: []byte{0x14}, answer: []byte{0x44, 0x33, 0x22, 0x11}},
		exchange{cmd: []byte{0x1A}, answer: []byte{0x01, 0x02, 0x03, 0x04}},
		exchange{
			cmd:    append(append([]byte{0xC6}, ts...), 0x10, 0x27, 0, 0),
			answer: lenAnswer,
		},
		exchange{
			cmd:    append(append([]byte{0xC4}, ts...), 0x10, 0x27, 0, 0),
			answer: append(totAnswer, payload...),
		},
	)
	return script
}

func TestSmartDump(t *testing.T) {
	payload := append(
		smartRecord(1000, []byte{0xAA, 0xBB}),
		smartRecord(2000, []byte{0xCC})...,
	)

	var (
		info     DevInfo
		clock    Clock
		progress []Progress
	)
	dev, err := OpenSmart(scripted(t, smartDumpScript(0, payload)),
		WithDevInfo(func(v DevInfo) { info = v }),
		WithClock(func(v Clock) { clock = v }),
		WithProgress(func(p Progress) { progress = append(progress, p) }),
	)
	require.NoError(t, err)
	defer dev.Close()

	data, err := dev.Dump()
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	assert.Equal(t, DevInfo{Model: 0x18, Serial: 0x11223344}, info)
	assert.Equal(t, uint32(0x04030201), clock.DevTime)
	assert.False(t, clock.SysTime.IsZero())

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, last.Maximum, last.Current)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Current, progress[i-1].Current)
	}
}

func TestSmartDumpEmpty(t *testing.T) {
	dev, err := OpenSmart(scripted(t, smartDumpScript(0, nil)[:6]))
	require.NoError(t, err)
	defer dev.Close()

	data, err := dev.Dump()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSmartDumpBadTotal(t *testing.T) {
	payload := smartRecord(1000, []byte{0xAA})
	script := smartDumpScript(0, payload)
	// Report a total that disagrees with the announced length.
	bad := make([]byte, 4)
	binary.LittleEndian.PutUint32(bad, uint32(len(payload))+8)
	script[len(script)-1].answer = bad

	dev, err := OpenSmart(scripted(t, script))
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.Dump()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSmartDumpSendsFingerprint(t *testing.T) {
	// The registered timestamp rides along in the download commands so
	// the instrument only sends newer dives.
	dev, err := OpenSmart(scripted(t, smartDumpScript(0x12345678, nil)[:6]))
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.SetFingerprint([]byte{0x78, 0x56, 0x34, 0x12}))
	_, err = dev.Dump()
	require.NoError(t, err)
}

func TestSmartForEach(t *testing.T) {
	payload := append(
		smartRecord(1000, []byte{0xAA, 0xBB}),
		smartRecord(2000, []byte{0xCC})...,
	)

	dev, err := OpenSmart(scripted(t, smartDumpScript(0, payload)))
	require.NoError(t, err)
	defer dev.Close()

	var got []diveRecord
	require.NoError(t, dev.ForEach(collect(&got)))
	require.Len(t, got, 2)

	// Most recent first.
	assert.Equal(t, uint32(2000), binary.LittleEndian.Uint32(got[0].fp))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(got[1].fp))
	assert.Equal(t, smartRecord(2000, []byte{0xCC}), got[0].data)
	assert.Equal(t, smartRecord(1000, []byte{0xAA, 0xBB}), got[1].data)
}

func TestSmartExtractOverlap(t *testing.T) {
	rec := smartRecord(1000, []byte{0xAA})
	// Claim a length running past the end of the stream.
	binary.LittleEndian.PutUint32(rec[4:], uint32(len(rec))+100)
	data := append(rec, smartRecord(2000, nil)...)

	var got []diveRecord
	err := ExtractSmartDives(data, collect(&got))
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestSmartExtractCallbackStop(t *testing.T) {
	data := append(
		smartRecord(1000, []byte{0xAA}),
		smartRecord(2000, []byte{0xBB})...,
	)

	var n int
	err := ExtractSmartDives(data, func(dive, fp []byte) bool {
		n++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSmartExtractEmpty(t *testing.T) {
	var got []diveRecord
	require.NoError(t, ExtractSmartDives(nil, collect(&got)))
	assert.Empty(t, got)
}

func TestSmartCancel(t *testing.T) {
	dev, err := OpenSmart(scripted(t, smartHandshake))
	require.NoError(t, err)
	defer dev.Close()

	dev.Cancel()
	_, err = dev.Dump()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestIsSmartName(t *testing.T) {
	assert.True(t, IsSmartName("UWATEC Galileo"))
	assert.True(t, IsSmartName("uwatec galileo")) // case insensitive
	assert.False(t, IsSmartName("Mares Puck Pro"))
	assert.False(t, IsSmartName(""))
}
