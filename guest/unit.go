// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package guest implements the execution unit maintaining a trie in host
// storage, and a client driving it from the host side.
//
// Every call starts from a fresh arena and the root recorded in the host,
// performs a single operation, and records the new root before returning.
// Nothing is retained between calls. Any fault aborts the call as a whole,
// leaving the state recorded by the last successful call in place.
package guest

import (
	"encoding/binary"
	"fmt"

	"github.com/panoptisDev/triehost/go/backend/arena"
	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/common/fault"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
	"github.com/panoptisDev/triehost/go/database/mpt/graph"
	"github.com/panoptisDev/triehost/go/database/mpt/store"
	"github.com/panoptisDev/triehost/go/database/mpt/trie"
)

// Op identifies the operation performed by a call.
type Op uint32

const (
	OpInsert Op = 0 // < input: u32-LE key length, key, value; result: 0
	OpRemove Op = 1 // < input: key; result: 0
	OpExists Op = 2 // < input: key; result: 0 or 1
	OpGet    Op = 3 // < input: key; result: 0 if absent, packed value otherwise
	OpRoot   Op = 4 // < input: ignored; result: packed root hash
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpExists:
		return "exists"
	case OpGet:
		return "get"
	case OpRoot:
		return "root"
	}
	return fmt.Sprintf("op(%d)", uint32(o))
}

// Unit is an execution unit. It is not thread-safe; nested calls abort.
type Unit struct {
	host   host.Host
	config Config
	arena  *arena.Arena
}

// NewUnit creates an execution unit operating on the given host.
func NewUnit(h host.Host, config Config) *Unit {
	if config.MaxValueSize <= 0 {
		config.MaxValueSize = store.DefaultMaxValueSize
	}
	memory := arena.NewLinearMemory(config.InitialPages, config.MaxPages)
	return &Unit{
		host:   h,
		config: config,
		arena:  arena.New(memory, config.HeapBase),
	}
}

// Call performs the given operation on an input of inputLen bytes obtained
// from the host. Packed results address the memory of the unit and stay
// readable through Read until the next call.
func (u *Unit) Call(op Op, inputLen uint32) (res uint64, err error) {
	defer u.logFault(&err)
	defer fault.Recover(&err)
	u.arena.Reset()
	defer u.arena.Release()

	u.debugf("call(%v, %d)", op, inputLen)

	input := u.arena.PreAllocate(int(inputLen), func(buf []byte) int {
		if n := u.host.Input(buf); n != len(buf) {
			fault.Abort("input length mismatch, expected %d got %d", len(buf), n)
		}
		return len(buf)
	})

	db := store.New(u.host, u.arena, u.config.MaxValueSize)
	tr := trie.New(db, db.RootHash())

	switch op {
	case OpInsert:
		key, value := splitInsertInput(input)
		check(tr.Insert(key, value))
		u.commit(db, tr)
		return 0, nil
	case OpRemove:
		check(tr.Remove(input))
		u.commit(db, tr)
		return 0, nil
	case OpExists:
		found, err := tr.Contains(input)
		check(err)
		if found {
			return 1, nil
		}
		return 0, nil
	case OpGet:
		value, found, err := tr.Get(input)
		check(err)
		if !found {
			return 0, nil
		}
		return u.pack(value), nil
	case OpRoot:
		root, err := tr.Root()
		check(err)
		return u.pack(root[:]), nil
	}
	fault.Abort("invalid call %v", op)
	return 0, nil
}

// ListNodes exports the node graph of the current trie.
func (u *Unit) ListNodes() (res *graph.ExportedNode, err error) {
	defer u.logFault(&err)
	defer fault.Recover(&err)
	u.arena.Reset()
	defer u.arena.Release()

	u.debugf("list nodes")
	db := store.New(u.host, u.arena, u.config.MaxValueSize)
	nodes, root := graph.Decode(db.RootHash(), db, codec.NodeCodec{})
	return graph.NewExporter(nodes, db).Export(root), nil
}

// RefCount returns the reference count recorded for the given hash.
func (u *Unit) RefCount(hash common.Hash) (res int32, err error) {
	defer u.logFault(&err)
	defer fault.Recover(&err)
	u.arena.Reset()
	defer u.arena.Release()
	return store.New(u.host, u.arena, u.config.MaxValueSize).Count(hash), nil
}

// Read retrieves the data addressed by a packed result of the last call.
func (u *Unit) Read(packed uint64) ([]byte, error) {
	offset, length := Unpack(packed)
	return u.arena.Memory().Read(offset, length)
}

// Footprint reports the memory usage of the unit.
func (u *Unit) Footprint() arena.Footprint {
	return u.arena.Footprint()
}

// Pack combines a memory offset and a length into a call result.
func Pack(offset, length int) uint64 {
	return uint64(uint32(offset))<<32 | uint64(uint32(length))
}

// Unpack splits a call result into memory offset and length.
func Unpack(packed uint64) (offset, length int) {
	return int(packed >> 32), int(packed & 0xFFFFFFFF)
}

func (u *Unit) pack(data []byte) uint64 {
	return Pack(u.arena.Copy(data), len(data))
}

func (u *Unit) commit(db *store.Store, tr *trie.Trie) {
	root, err := tr.Commit()
	check(err)
	db.SetRootHash(root)
	u.debugf("new root %v", root)
}

func (u *Unit) debugf(format string, args ...any) {
	if u.config.Debug {
		u.host.Log(fmt.Sprintf(format, args...))
	}
}

func (u *Unit) logFault(err *error) {
	if *err != nil {
		u.host.Log((*err).Error())
	}
}

// splitInsertInput parses the input of an insert: a 4-byte little-endian key
// length followed by the key and the value.
func splitInsertInput(input []byte) (key, value []byte) {
	if len(input) < 4 {
		fault.Abort("invalid insert input: missing key length")
	}
	length := binary.LittleEndian.Uint32(input)
	rest := input[4:]
	if uint64(length) > uint64(len(rest)) {
		fault.Abort("invalid insert input: key of %d bytes out of bounds", length)
	}
	return rest[:length], rest[length:]
}

// check escalates an error of the trie to a fault.
func check(err error) {
	if err != nil {
		fault.Abort("trie: %v", err)
	}
}
