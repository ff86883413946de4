// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ldb provides a LevelDB based key/value store for hosting the
// execution unit with persistent storage.
package ldb

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Config configures a LevelDB store.
type Config struct {
	// Compress enables snappy compression of individual values. The setting
	// must be the same for every opening of a database.
	Compress bool
	// NoSync disables syncing writes to disk.
	NoSync bool
}

// DefaultConfig is used when no explicit configuration is given.
var DefaultConfig = Config{}

// Store is a host.KeyValueStore persisted in a LevelDB instance.
type Store struct {
	db       *leveldb.DB
	compress bool
	wo       *opt.WriteOptions
}

// Open opens or creates a store in the given directory.
func Open(directory string, config Config) (*Store, error) {
	db, err := leveldb.OpenFile(directory, &opt.Options{
		Compression: opt.NoCompression,
		NoSync:      config.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB at %s: %w", directory, err)
	}
	return &Store{
		db:       db,
		compress: config.Compress,
		wo:       &opt.WriteOptions{Sync: !config.NoSync},
	}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, host.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.compress {
		return value, nil
	}
	res, err := snappy.Decode(nil, value)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress value: %w", err)
	}
	return res, nil
}

func (s *Store) Put(key, value []byte) error {
	if s.compress {
		value = snappy.Encode(nil, value)
	}
	return s.db.Put(key, value, s.wo)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, s.wo)
}

func (s *Store) Close() error {
	return s.db.Close()
}
