// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command divelog-ls lists candidate dive computer transports: serial
// ports, IrDA peers in range and, on request, nearby BLE devices.
package main // import "sbinet.org/x/divelog/cmd/divelog-ls"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"go.bug.st/serial/enumerator"

	"sbinet.org/x/divelog"
	"sbinet.org/x/divelog/ble"
	"sbinet.org/x/divelog/iostream"
)

func main() {
	log.SetPrefix("divelog-ls: ")
	log.SetFlags(0)

	var (
		doBLE   = flag.Bool("ble", false, "also scan for BLE devices")
		timeout = flag.Duration("timeout", 5*time.Second, "BLE scan duration")
	)

	flag.Parse()

	err := xmain(*doBLE, *timeout)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(doBLE bool, timeout time.Duration) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("could not list serial ports: %w", err)
	}
	for _, port := range ports {
		switch {
		case port.IsUSB:
			fmt.Printf("serial: %s (usb %s:%s %s)\n", port.Name, port.VID, port.PID, port.Product)
		default:
			fmt.Printf("serial: %s\n", port.Name)
		}
	}

	devs, err := iostream.DiscoverIrDA(nil)
	switch {
	case err == nil:
		for _, dev := range devs {
			known := ""
			if divelog.IsSmartName(dev.Name) {
				known = " (uwatec smart)"
			}
			fmt.Printf("irda: %#08x %q%s\n", dev.Address, dev.Name, known)
		}
	case errors.Is(err, iostream.ErrUnsupported):
		// No IrDA stack on this platform.
	default:
		log.Printf("could not list IrDA devices: %+v", err)
	}

	if doBLE {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := ble.Scan(ctx, func(addr, name string, rssi int16) {
			fmt.Printf("ble: %s %q (rssi %d)\n", addr, name, rssi)
		})
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("could not scan for BLE devices: %w", err)
		}
	}

	return nil
}
