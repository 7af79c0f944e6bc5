// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ble adapts a Bluetooth Low Energy GATT link to the divelog
// transport contract. Many current dive computers expose their serial
// protocol over a pair of GATT characteristics (one writable, one
// notifying); Dial wires those into a packet-oriented stream usable by
// the protocol engines.
package ble // import "sbinet.org/x/divelog/ble"

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"

	"sbinet.org/x/divelog/iostream"
)

var adapter = bluetooth.DefaultAdapter

const (
	defaultScanTimeout = 10 * time.Second
	defaultPacketSize  = 20
	defaultReadTimeout = 10 * time.Second
)

// Config names the GATT endpoints of a BLE dive computer.
type Config struct {
	Service bluetooth.UUID // serial service
	Write   bluetooth.UUID // characteristic commands are written to
	Notify  bluetooth.UUID // characteristic answers arrive on

	// PacketSize is the maximum GATT payload per packet (default 20,
	// the BLE 4.0 minimum).
	PacketSize int

	// ReadTimeout bounds the wait for a notification (default 10s).
	ReadTimeout time.Duration
}

// MustParseUUID parses a UUID in its canonical string form and panics
// on malformed input. It is intended for configuration literals.
func MustParseUUID(v string) bluetooth.UUID {
	o, err := bluetooth.ParseUUID(v)
	if err != nil {
		panic(fmt.Errorf("ble: could not parse UUID %q: %+v", v, err))
	}
	return o
}

// Dial scans for the device with the given Bluetooth address, connects
// to it and returns a Stream speaking through the configured GATT
// characteristics.
func Dial(ctx context.Context, addr string, cfg Config, log *slog.Logger) (iostream.Stream, error) {
	if cfg.PacketSize <= 0 {
		cfg.PacketSize = defaultPacketSize
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	err := adapter.Enable()
	if err != nil {
		return nil, fmt.Errorf("could not enable default adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultScanTimeout)
	defer cancel()

	var (
		scan    bluetooth.ScanResult
		errc    = make(chan error)
		errScan error
	)

	defer adapter.StopScan()
	go func() {
		errc <- adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.Address.String() != addr {
				return
			}
			scan = result
			errScan = adapter.StopScan()
		})
	}()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errc:
	}
	if err != nil {
		return nil, fmt.Errorf("could not scan for %q: %w", addr, err)
	}
	if errScan != nil {
		return nil, fmt.Errorf("could not stop scan for %q: %w", addr, errScan)
	}

	dev, err := adapter.Connect(scan.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("could not connect to %q: %w", addr, err)
	}

	svc, err := findService(dev, cfg.Service)
	if err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("could not discover serial service: %w", err)
	}

	wr, err := charByUUID(svc, cfg.Write)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}
	rd, err := charByUUID(svc, cfg.Notify)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}

	link := &link{
		dev:     dev,
		log:     log,
		pkts:    make(chan []byte, 16),
		timeout: cfg.ReadTimeout,
	}
	err = rd.EnableNotifications(func(buf []byte) {
		pkt := append([]byte(nil), buf...)
		select {
		case link.pkts <- pkt:
		default:
			if log != nil {
				log.Warn("dropping packet", "n", len(pkt))
			}
		}
	})
	if err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("could not enable notifications: %w", err)
	}

	return iostream.OpenPacket(iostream.PacketCallbacks{
		PacketSize: cfg.PacketSize,
		Read:       link.read,
		Write: func(p []byte) (int, error) {
			n, err := wr.WriteWithoutResponse(p)
			if err != nil {
				return n, fmt.Errorf("could not write characteristic: %w", err)
			}
			return n, nil
		},
		SetTimeout: link.setTimeout,
		Close:      link.close,
	}, log)
}

// link carries the notification plumbing behind the packet callbacks.
type link struct {
	dev     bluetooth.Device
	log     *slog.Logger
	pkts    chan []byte
	timeout time.Duration
}

func (l *link) read(p []byte) (int, error) {
	if l.timeout < 0 {
		pkt := <-l.pkts
		return copy(p, pkt), nil
	}
	select {
	case pkt := <-l.pkts:
		return copy(p, pkt), nil
	case <-time.After(l.timeout):
		return 0, iostream.ErrTimeout
	}
}

func (l *link) setTimeout(timeout time.Duration) error {
	l.timeout = timeout
	return nil
}

func (l *link) close() error {
	err := l.dev.Disconnect()
	if err != nil {
		return fmt.Errorf("could not disconnect: %w", err)
	}
	return nil
}

// Scan reports nearby BLE devices until ctx expires, invoking fn for
// every advertisement seen.
func Scan(ctx context.Context, fn func(addr, name string, rssi int16)) error {
	err := adapter.Enable()
	if err != nil {
		return fmt.Errorf("could not enable default adapter: %w", err)
	}

	errc := make(chan error)
	go func() {
		errc <- adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			fn(result.Address.String(), result.LocalName(), result.RSSI)
		})
	}()

	select {
	case <-ctx.Done():
		if err := adapter.StopScan(); err != nil {
			return fmt.Errorf("could not stop scan: %w", err)
		}
		return <-errc
	case err := <-errc:
		return err
	}
}

func findService(dev bluetooth.Device, id bluetooth.UUID) (*bluetooth.DeviceService, error) {
	svcs, err := dev.DiscoverServices([]bluetooth.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("could not discover services: %w", err)
	}
	for i := range svcs {
		if svcs[i].UUID() == id {
			return &svcs[i], nil
		}
	}
	return nil, fmt.Errorf("could not find service %q", id)
}

func charByUUID(svc *bluetooth.DeviceService, id bluetooth.UUID) (*bluetooth.DeviceCharacteristic, error) {
	chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("could not get characteristic %q: %w", id, err)
	}
	for i := range chars {
		if chars[i].UUID() == id {
			return &chars[i], nil
		}
	}
	return nil, fmt.Errorf("could not get characteristic for %q", id)
}
