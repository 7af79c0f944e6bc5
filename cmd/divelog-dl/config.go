// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the set of dive computers to download from.
type Config struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig describes one dive computer and how to reach it.
// Exactly one of Port, Addr, IrDA or BLE selects the transport.
type DeviceConfig struct {
	Name   string     `yaml:"name"`   // unique name, keys the fingerprint store
	Family string     `yaml:"family"` // "leonardo" or "smart"
	Port   string     `yaml:"port"`   // serial device path
	Addr   string     `yaml:"addr"`   // host:port of a serial-over-IP bridge
	IrDA   bool       `yaml:"irda"`   // discover and connect over IrDA
	BLE    *BLEConfig `yaml:"ble"`
}

// BLEConfig names the GATT endpoints of a BLE dive computer.
type BLEConfig struct {
	Addr    string `yaml:"addr"`
	Service string `yaml:"service"`
	Write   string `yaml:"write"`
	Notify  string `yaml:"notify"`
}

func loadConfig(fname string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(fname)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file %q: %w", fname, err)
	}

	names := make(map[string]bool, len(cfg.Devices))
	for i, dev := range cfg.Devices {
		if dev.Name == "" {
			return cfg, fmt.Errorf("device #%d: missing name", i)
		}
		if names[dev.Name] {
			return cfg, fmt.Errorf("device %q: duplicate name", dev.Name)
		}
		names[dev.Name] = true

		switch dev.Family {
		case "leonardo", "smart":
		default:
			return cfg, fmt.Errorf("device %q: unknown family %q", dev.Name, dev.Family)
		}

		n := 0
		if dev.Port != "" {
			n++
		}
		if dev.Addr != "" {
			n++
		}
		if dev.IrDA {
			n++
		}
		if dev.BLE != nil {
			n++
		}
		if n != 1 {
			return cfg, fmt.Errorf("device %q: exactly one of port, addr, irda or ble must be set", dev.Name)
		}
	}

	return cfg, nil
}
