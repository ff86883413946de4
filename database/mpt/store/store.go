// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package store adapts the key/value storage of a host into a reference
// counted, content addressed node database.
//
// Every value is stored under its blake2b-256 hash. A 4-byte little-endian
// reference counter is kept under the hash extended by a marker byte. The
// value is written when its counter goes from 0 to 1 and removed together
// with the counter when it drops back to 0. A counter of 0 is never stored.
//
// The hash of the empty node doubles as the root of the empty trie. It is
// never stored nor counted; all operations short-circuit it without any
// host access.
//
// Any unexpected host response aborts the current call.
package store

import (
	"encoding/binary"

	"github.com/panoptisDev/triehost/go/backend/arena"
	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/common/fault"
)

// DefaultMaxValueSize is the default upper bound for stored values.
const DefaultMaxValueSize = 4096

// counterMarker is appended to a hash to form the key of its counter.
const counterMarker = 0xFF

const counterSize = 4

// rootSlot is the reserved key holding the current root hash.
var rootSlot = []byte{}

// Store is a reference counted node database on top of a host. It is not
// thread-safe and only valid for the duration of a single call.
type Store struct {
	host         host.Host
	arena        *arena.Arena
	maxValueSize int
}

// New creates a store reading and writing through the given host. Values
// fetched from the host are placed in the given arena, which must be live
// while values are retrieved.
func New(h host.Host, a *arena.Arena, maxValueSize int) *Store {
	if maxValueSize <= 0 {
		maxValueSize = DefaultMaxValueSize
	}
	return &Store{host: h, arena: a, maxValueSize: maxValueSize}
}

// CounterKey returns the key under which the reference count of the value
// with the given hash is stored.
func CounterKey(hash common.Hash) []byte {
	key := make([]byte, common.HashSize+1)
	copy(key, hash[:])
	key[common.HashSize] = counterMarker
	return key
}

// RootHash loads the current root hash. If no root has been recorded yet,
// the empty trie hash is recorded and returned.
func (s *Store) RootHash() common.Hash {
	var res common.Hash
	n, status := s.host.GetStorage(rootSlot, res[:])
	switch status {
	case host.StatusSuccess:
		switch n {
		case common.HashSize:
			return res
		case 0:
		default:
			fault.Abort("get root hash: expected %d bytes, got %d", common.HashSize, n)
		}
	case host.StatusNotFound:
	default:
		fault.Abort("get root hash: get storage failed with code %d", status)
	}
	s.SetRootHash(common.EmptyTrieHash)
	return common.EmptyTrieHash
}

// SetRootHash records the given root hash.
func (s *Store) SetRootHash(hash common.Hash) {
	if status := s.host.SetStorage(rootSlot, hash[:]); status != host.StatusSuccess {
		fault.Abort("set root hash: set storage failed with code %d", status)
	}
}

// Get retrieves the value stored under the given hash. The result is
// allocated in the arena and stays valid until the end of the current call.
func (s *Store) Get(hash common.Hash) ([]byte, bool) {
	if hash == common.EmptyTrieHash {
		return []byte{0x00}, true
	}
	found := true
	res := s.arena.PreAllocate(s.maxValueSize+1, func(buf []byte) int {
		n, status := s.host.GetStorage(hash[:], buf)
		switch status {
		case host.StatusSuccess:
		case host.StatusNotFound:
			found = false
			return 0
		default:
			fault.Abort("get: get storage failed with code %d", status)
		}
		if n > s.maxValueSize {
			fault.Abort("get: buffer overflow, value of %d bytes exceeds limit of %d", n, s.maxValueSize)
		}
		return n
	})
	if !found {
		return nil, false
	}
	return res, true
}

// Contains checks whether a value with the given hash is referenced.
func (s *Store) Contains(hash common.Hash) bool {
	if hash == common.EmptyTrieHash {
		return true
	}
	return s.Count(hash) > 0
}

// Insert adds a reference to the given value and returns its hash.
func (s *Store) Insert(value []byte) common.Hash {
	if len(value) == 0 || (len(value) == 1 && value[0] == 0) {
		return common.EmptyTrieHash
	}
	hash := common.Blake2b256(value)
	s.emplace(hash, value)
	return hash
}

// Emplace adds a reference to the value stored under the given hash. The
// hash must be the hash of the value.
func (s *Store) Emplace(hash common.Hash, value []byte) {
	if len(value) == 0 || hash == common.EmptyTrieHash {
		return
	}
	s.emplace(hash, value)
}

func (s *Store) emplace(hash common.Hash, value []byte) {
	count := s.Count(hash) + 1
	if count == 1 {
		if status := s.host.SetStorage(hash[:], value); status != host.StatusSuccess {
			fault.Abort("emplace: set storage failed with code %d", status)
		}
	}
	s.setCount(hash, count)
}

// Remove drops a reference to the value stored under the given hash. The
// value is deleted once the last reference is gone. Removing an absent value
// is a no-op.
func (s *Store) Remove(hash common.Hash) {
	if hash == common.EmptyTrieHash {
		return
	}
	count := s.Count(hash)
	if count == 1 {
		if status := s.host.ClearStorage(hash[:]); status != host.StatusSuccess {
			fault.Abort("remove: clear storage failed with code %d", status)
		}
	}
	if count > 0 {
		s.setCount(hash, count-1)
	}
}

// Count returns the number of references to the value with the given hash.
func (s *Store) Count(hash common.Hash) int32 {
	var buf [counterSize]byte
	n, status := s.host.GetStorage(CounterKey(hash), buf[:])
	switch status {
	case host.StatusSuccess:
	case host.StatusNotFound:
		return 0
	default:
		fault.Abort("get counter: get storage failed with code %d", status)
	}
	if n == 0 {
		return 0
	}
	if n != counterSize {
		fault.Abort("get counter: expected %d bytes, got %d", counterSize, n)
	}
	count := int32(binary.LittleEndian.Uint32(buf[:]))
	if count < 0 {
		fault.Abort("get counter: negative reference count %d", count)
	}
	return count
}

func (s *Store) setCount(hash common.Hash, count int32) {
	key := CounterKey(hash)
	if count == 0 {
		if status := s.host.ClearStorage(key); status != host.StatusSuccess {
			fault.Abort("set counter: clear storage failed with code %d", status)
		}
		return
	}
	var buf [counterSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(count))
	if status := s.host.SetStorage(key, buf[:]); status != host.StatusSuccess {
		fault.Abort("set counter: set storage failed with code %d", status)
	}
}
