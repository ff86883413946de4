// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package host

import (
	"errors"
	"log"
)

// Environment implements the Host interface on top of a KeyValueStore. It
// holds the input of the current call and forwards log messages to a logger.
type Environment struct {
	store  KeyValueStore
	input  []byte
	logger *log.Logger
}

// NewEnvironment creates a host backed by the given store. Log messages are
// dropped if logger is nil.
func NewEnvironment(store KeyValueStore, logger *log.Logger) *Environment {
	return &Environment{store: store, logger: logger}
}

// SetInput defines the input handed to the next call.
func (e *Environment) SetInput(data []byte) {
	e.input = data
}

func (e *Environment) Log(msg string) {
	if e.logger != nil {
		e.logger.Print(msg)
	}
}

func (e *Environment) Input(buf []byte) int {
	copy(buf, e.input)
	return len(e.input)
}

func (e *Environment) SetStorage(key, value []byte) Status {
	if err := e.store.Put(StorageKey(key), value); err != nil {
		e.Log("set storage failed: " + err.Error())
		return StatusFailure
	}
	return StatusSuccess
}

func (e *Environment) GetStorage(key, out []byte) (int, Status) {
	value, err := e.store.Get(StorageKey(key))
	if errors.Is(err, ErrNotFound) {
		return 0, StatusNotFound
	}
	if err != nil {
		e.Log("get storage failed: " + err.Error())
		return 0, StatusFailure
	}
	copy(out, value)
	return len(value), StatusSuccess
}

func (e *Environment) ClearStorage(key []byte) Status {
	if err := e.store.Delete(StorageKey(key)); err != nil {
		e.Log("clear storage failed: " + err.Error())
		return StatusFailure
	}
	return StatusSuccess
}

// Store returns the key/value store backing this environment.
func (e *Environment) Store() KeyValueStore {
	return e.store
}

// Close closes the underlying store.
func (e *Environment) Close() error {
	return e.store.Close()
}
