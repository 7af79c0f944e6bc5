// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command divelog-dl downloads new dives from one or more dive
// computers and stores each dive as a raw file, remembering the most
// recent dive per device so subsequent runs only fetch new ones.
package main // import "sbinet.org/x/divelog/cmd/divelog-dl"

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"sbinet.org/x/divelog"
	"sbinet.org/x/divelog/ble"
	"sbinet.org/x/divelog/internal/fpstore"
	"sbinet.org/x/divelog/iostream"
)

func main() {
	log.SetPrefix("divelog-dl: ")
	log.SetFlags(0)

	var (
		cfgFile = flag.String("config", "", "path to a YAML file describing the devices")
		dbFile  = flag.String("db", "divelog-fp.db", "path to the fingerprint database")
		outDir  = flag.String("o", "dives", "directory where to store downloaded dives")
		verbose = flag.Bool("v", false, "enable verbose protocol tracing")

		name   = flag.String("name", "dc", "device name (single-device mode)")
		family = flag.String("family", "", "device family: leonardo or smart (single-device mode)")
		port   = flag.String("port", "", "serial port of the device (single-device mode)")
		addr   = flag.String("addr", "", "host:port of a serial-over-IP bridge (single-device mode)")
		irda   = flag.Bool("irda", false, "discover and connect over IrDA (single-device mode)")
	)

	flag.Parse()

	var (
		cfg Config
		err error
	)
	switch {
	case *cfgFile != "":
		cfg, err = loadConfig(*cfgFile)
		if err != nil {
			log.Fatalf("could not load config: %+v", err)
		}
	default:
		if *family == "" {
			flag.Usage()
			log.Fatalf("missing -config or -family")
		}
		cfg.Devices = []DeviceConfig{{
			Name:   *name,
			Family: *family,
			Port:   *port,
			Addr:   *addr,
			IrDA:   *irda,
		}}
	}

	err = xmain(cfg, *dbFile, *outDir, *verbose)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(cfg Config, dbFile, outDir string, verbose bool) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	db, err := fpstore.Open(dbFile)
	if err != nil {
		return fmt.Errorf("could not open fingerprint db: %w", err)
	}
	defer db.Close()

	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	// One worker per device: a device handle is not safe for
	// concurrent use, but distinct devices download in parallel.
	var grp errgroup.Group
	for _, dc := range cfg.Devices {
		dc := dc
		grp.Go(func() error {
			err := download(dc, db, outDir, logger.With("device", dc.Name))
			if err != nil {
				return fmt.Errorf("device %q: %w", dc.Name, err)
			}
			return nil
		})
	}
	return grp.Wait()
}

func download(dc DeviceConfig, db *fpstore.DB, outDir string, log *slog.Logger) error {
	dev, err := open(dc, log)
	if err != nil {
		return err
	}
	defer dev.Close()

	fp, err := db.Fingerprint(dc.Name)
	if err != nil {
		return err
	}
	if fp != nil {
		if err := dev.SetFingerprint(fp); err != nil {
			return fmt.Errorf("could not set fingerprint: %w", err)
		}
	}

	var (
		ndives int
		newest []byte
		cbErr  error
	)
	err = dev.ForEach(func(dive, fp []byte) bool {
		fname := filepath.Join(outDir, fmt.Sprintf("%s-%s.bin", dc.Name, hex.EncodeToString(fp)))
		if err := os.WriteFile(fname, dive, 0644); err != nil {
			cbErr = fmt.Errorf("could not write dive file: %w", err)
			return false
		}
		log.Info("downloaded dive", "file", fname, "size", len(dive))
		if newest == nil {
			newest = append([]byte(nil), fp...)
		}
		ndives++
		return true
	})
	if err != nil {
		return fmt.Errorf("could not download dives: %w", err)
	}
	if cbErr != nil {
		return cbErr
	}

	if newest != nil {
		if err := db.SetFingerprint(dc.Name, newest); err != nil {
			return err
		}
	}
	log.Info("download complete", "dives", ndives)
	return nil
}

// open establishes the transport named by the configuration and wraps
// it with the device family protocol.
func open(dc DeviceConfig, log *slog.Logger) (divelog.Device, error) {
	opts := []divelog.Option{divelog.WithLogger(log)}

	if dc.IrDA {
		switch dc.Family {
		case "smart":
			return divelog.OpenSmartIrDA(opts...)
		default:
			return nil, fmt.Errorf("family %q does not support IrDA", dc.Family)
		}
	}

	var (
		ios iostream.Stream
		err error
	)
	switch {
	case dc.Port != "":
		ios, err = iostream.OpenSerial(dc.Port, log)
	case dc.Addr != "":
		ios, err = iostream.OpenSocket(dc.Addr, log)
	case dc.BLE != nil:
		ios, err = ble.Dial(context.Background(), dc.BLE.Addr, ble.Config{
			Service: ble.MustParseUUID(dc.BLE.Service),
			Write:   ble.MustParseUUID(dc.BLE.Write),
			Notify:  ble.MustParseUUID(dc.BLE.Notify),
		}, log)
	default:
		return nil, fmt.Errorf("device %q: no transport configured", dc.Name)
	}
	if err != nil {
		return nil, err
	}

	switch dc.Family {
	case "leonardo":
		return divelog.OpenLeonardo(ios, opts...)
	case "smart":
		return divelog.OpenSmart(ios, opts...)
	default:
		_ = ios.Close()
		return nil, fmt.Errorf("unknown device family %q", dc.Family)
	}
}
