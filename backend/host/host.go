// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package host defines the narrow call surface through which the execution
// unit reaches persistent storage, and adapts plain key/value stores to it.
package host

//go:generate mockgen -source host.go -destination host_mocks.go -package host

import "errors"

// Status is the result code of a storage host call.
type Status uint32

const (
	StatusSuccess  Status = 0
	StatusFailure  Status = 1
	StatusNotFound Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusNotFound:
		return "not found"
	}
	return "unknown"
}

// Host is the capability set granted to the execution unit. All calls are
// synchronous.
type Host interface {
	// Log emits a diagnostic message.
	Log(msg string)
	// Input copies the input of the current call into buf and returns the
	// full length of the input.
	Input(buf []byte) int
	// SetStorage stores value under key.
	SetStorage(key, value []byte) Status
	// GetStorage copies as much of the value stored under key as fits into
	// out and returns the full length of the value.
	GetStorage(key, out []byte) (int, Status)
	// ClearStorage removes the value stored under key.
	ClearStorage(key []byte) Status
}

// ErrNotFound is returned by a KeyValueStore for absent keys.
var ErrNotFound = errors.New("key not found")

// KeyValueStore is the minimal storage capability a host needs to serve the
// execution unit. Implementations need not be thread-safe.
type KeyValueStore interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// Put stores a copy of value under key, replacing any previous value.
	Put(key, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key []byte) error
	// Close releases all resources held by the store.
	Close() error
}

// RootSlotKey is the storage key used for the reserved zero-length key.
var RootSlotKey = []byte{0x00}

// StorageKey maps a key requested by the execution unit to the key used in
// the underlying store.
func StorageKey(key []byte) []byte {
	if len(key) == 0 {
		return RootSlotKey
	}
	return key
}
