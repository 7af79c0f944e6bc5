// Copyright ©2026 The divelog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fpstore persists per-device dive fingerprints between
// download sessions, backed by bbolt.
package fpstore // import "sbinet.org/x/divelog/internal/fpstore"

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRoot = []byte("divelog")

// DB stores the fingerprint of the most recent downloaded dive, keyed
// by device name.
type DB struct {
	db *bbolt.DB
}

// Open opens and initializes a boltdb-backed fingerprint store.
func Open(fname string) (*DB, error) {
	db, err := bbolt.Open(fname, 0644, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open fingerprint db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRoot)
		if err != nil {
			return fmt.Errorf("could not create %q bucket: %w", bucketRoot, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not setup fingerprint db bucket: %w", err)
	}

	return &DB{db: db}, nil
}

// Fingerprint returns the stored fingerprint for the named device, or
// nil when none has been stored yet.
func (db *DB) Fingerprint(device string) ([]byte, error) {
	var fp []byte
	err := db.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketRoot)
		if root == nil {
			return fmt.Errorf("could not find %q bucket", bucketRoot)
		}
		if v := root.Get([]byte(device)); v != nil {
			fp = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not read fingerprint for %q: %w", device, err)
	}
	return fp, nil
}

// SetFingerprint stores the fingerprint for the named device.
func (db *DB) SetFingerprint(device string, fp []byte) error {
	err := db.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketRoot)
		if root == nil {
			return fmt.Errorf("could not find %q bucket", bucketRoot)
		}
		return root.Put([]byte(device), fp)
	})
	if err != nil {
		return fmt.Errorf("could not store fingerprint for %q: %w", device, err)
	}
	return nil
}

// Close closes the fingerprint store.
func (db *DB) Close() error {
	if db.db != nil {
		err := db.db.Close()
		if err != nil {
			return fmt.Errorf("could not close boltdb: %w", err)
		}
		db.db = nil
	}
	return nil
}
