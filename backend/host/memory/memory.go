// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package memory provides an in-memory key/value store for hosting the
// execution unit in tests and short-lived tools.
package memory

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/panoptisDev/triehost/go/backend/host"
)

// Store is an in-memory host.KeyValueStore. It is not thread-safe.
type Store struct {
	db *memorydb.Database
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{db: memorydb.New()}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	found, err := s.db.Has(key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up key: %w", err)
	}
	if !found {
		return nil, host.ErrNotFound
	}
	return s.db.Get(key)
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key)
}

// Len returns the number of entries in the store.
func (s *Store) Len() int {
	return s.db.Len()
}

func (s *Store) Close() error {
	return s.db.Close()
}
