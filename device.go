// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package divelog downloads dive logs from dive computers.
//
// A Device wraps an iostream.Stream with the protocol of one device
// family. After opening, set the fingerprint of the most recent dive
// already in the logbook and call ForEach: only newer dives are
// delivered, most recent first.
package divelog // import "sbinet.org/x/divelog"

import (
	"log/slog"
	"time"
)

// Progress reports how far a long-running download has come.
type Progress struct {
	Current uint32
	Maximum uint32
}

// DevInfo identifies the connected device.
type DevInfo struct {
	Model    uint32
	Firmware uint32
	Serial   uint32
}

// Clock pairs a device timestamp with the host time it was observed at,
// so dive times can be mapped onto host time.
type Clock struct {
	SysTime time.Time
	DevTime uint32
}

// DiveCallback receives one dive, most recent first. The dive data and
// fingerprint are owned by the callback. Returning false stops the
// enumeration without error.
type DiveCallback func(dive, fingerprint []byte) bool

// Device is a dive computer with an established connection.
type Device interface {
	// SetFingerprint registers the fingerprint of the most recent dive
	// already downloaded. ForEach then stops before re-delivering it.
	// An empty fingerprint clears the mark and delivers everything.
	SetFingerprint(fp []byte) error

	// Read copies len(p) bytes of device memory starting at address.
	// Devices without random memory access return ErrUnsupported.
	Read(address uint32, p []byte) error

	// Dump downloads the full memory image.
	Dump() ([]byte, error)

	// ForEach downloads the dives newer than the fingerprint and hands
	// them to cb, most recent first.
	ForEach(cb DiveCallback) error

	// Cancel requests that the ongoing operation stop at the next
	// request boundary. It is safe to call from another goroutine.
	Cancel()

	// Close shuts the device down and releases the transport.
	Close() error
}

type config struct {
	retries  int
	log      *slog.Logger
	progress func(p Progress)
	devinfo  func(info DevInfo)
	clock    func(clock Clock)
}

func newConfig(opts []Option) config {
	cfg := config{retries: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a device at open time.
type Option func(*config)

// WithRetries sets the total number of attempts per device request.
// Values below one are ignored.
func WithRetries(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.retries = n
		}
	}
}

// WithLogger routes protocol-level tracing to log.
func WithLogger(log *slog.Logger) Option {
	return func(cfg *config) { cfg.log = log }
}

// WithProgress registers a callback receiving download progress.
func WithProgress(fn func(p Progress)) Option {
	return func(cfg *config) { cfg.progress = fn }
}

// WithDevInfo registers a callback receiving the device identity as
// soon as it is known.
func WithDevInfo(fn func(info DevInfo)) Option {
	return func(cfg *config) { cfg.devinfo = fn }
}

// WithClock registers a callback receiving the device/host time pair as
// soon as it is known.
func WithClock(fn func(clock Clock)) Option {
	return func(cfg *config) { cfg.clock = fn }
}

func (cfg *config) emitProgress(cur, max uint32) {
	if cfg.progress != nil {
		cfg.progress(Progress{Current: cur, Maximum: max})
	}
}

func (cfg *config) emitDevInfo(info DevInfo) {
	if cfg.devinfo != nil {
		cfg.devinfo(info)
	}
}

func (cfg *config) emitClock(clock Clock) {
	if cfg.clock != nil {
		cfg.clock(clock)
	}
}
