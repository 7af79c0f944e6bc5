// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package divelog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sbinet.org/x/divelog/iostream"
)

// exchange is one scripted command/answer pair.
type exchange struct {
	cmd    []byte
	answer []byte
}

// scripted returns a Stream that replays the given exchanges: every
// write must match the next expected command and queues its answer for
// subsequent reads. Reads drain the queue and time out when it runs
// dry.
func scripted(t *testing.T, script []exchange) iostream.Stream {
	t.Helper()
	var (
		rdbuf []byte
		idx   int
	)
	return iostream.OpenCustom(iostream.Callbacks{
		SetTimeout: func(timeout time.Duration) error { return nil },
		Configure: func(baudrate, databits int, parity iostream.Parity, stopbits iostream.StopBits, flow iostream.FlowControl) error {
			return nil
		},
		SetDTR: func(on bool) error { return nil },
		SetRTS: func(on bool) error { return nil },
		Purge: func(dir iostream.Direction) error {
			if dir&iostream.DirectionInput != 0 {
				rdbuf = nil
			}
			return nil
		},
		Write: func(p []byte) (int, error) {
			require.Less(t, idx, len(script), "unexpected command %#x", p)
			ex := script[idx]
			idx++
			require.Equal(t, ex.cmd, p, "unexpected command (exchange %d)", idx-1)
			rdbuf = append(rdbuf, ex.answer...)
			return len(p), nil
		},
		Read: func(p []byte) (int, error) {
			n := copy(p, rdbuf)
			rdbuf = rdbuf[n:]
			if n < len(p) {
				return n, iostream.ErrTimeout
			}
			return n, nil
		},
		Available: func() (int, error) { return len(rdbuf), nil },
		Close:     func() error { return nil },
	}, nil)
}

// collect returns a DiveCallback appending copies of every dive to dst.
type diveRecord struct {
	data []byte
	fp   []byte
}

func collect(dst *[]diveRecord) DiveCallback {
	return func(data, fp []byte) bool {
		*dst = append(*dst, diveRecord{
			data: append([]byte(nil), data...),
			fp:   append([]byte(nil), fp...),
		})
		return true
	}
}
