// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package arena implements the single-threaded bump allocator serving all
// memory needs of one call of the execution unit.
//
// The arena is built from pages of a LinearMemory. New pages are requested as
// needed until the memory refuses to grow, at which point the call is
// aborted. Individual allocations are never freed; instead the whole arena is
// released at the end of a call and rebuilt from the heap base at the start of
// the next one.
//
// Allocations not fitting into the remaining space of the current region are
// served from the start of a freshly granted region. The tail of the previous
// region is abandoned for the rest of the call.
package arena

import (
	"github.com/panoptisDev/triehost/go/common/fault"
	"golang.org/x/exp/constraints"
)

type state byte

const (
	uninitialized state = iota
	live
	borrowed // < handed to a PreAllocate transform
)

// Arena is a bump allocator over a LinearMemory. It is not thread-safe.
type Arena struct {
	memory   *LinearMemory
	heapBase int // < first byte of memory owned by the arena
	next     int // < start of the next available allocation
	limit    int // < end of the memory currently reserved for the arena
	state    state
}

// Footprint summarizes the current extent of an arena.
type Footprint struct {
	Next  int
	Limit int
	Pages int
}

// New creates an arena allocating from the given memory, starting at heapBase.
// The arena is not live until Reset is called or the first allocation occurs.
func New(memory *LinearMemory, heapBase int) *Arena {
	return &Arena{memory: memory, heapBase: heapBase}
}

// Reset makes the arena live with an empty heap. Resetting a live arena is a
// programming error, indicating a nested call, and aborts.
func (a *Arena) Reset() {
	if a.state != uninitialized {
		fault.Abort("memory already initialized")
	}
	a.init()
}

func (a *Arena) init() {
	if missing := requiredPages(a.heapBase) - a.memory.Size(); missing > 0 {
		if _, ok := a.memory.Grow(missing); !ok {
			fault.Abort("out of memory: heap base %d not addressable", a.heapBase)
		}
	}
	a.next = a.heapBase
	a.limit = a.memory.Size() * PageSize
	a.state = live
}

// Release discards all allocations of the current call. The underlying memory
// is retained, so data handed to the host stays readable until the next call
// allocates over it.
func (a *Arena) Release() {
	a.state = uninitialized
}

// IsLive reports whether the arena currently serves a call.
func (a *Arena) IsLive() bool {
	return a.state != uninitialized
}

// Memory returns the memory the arena is allocating from.
func (a *Arena) Memory() *LinearMemory {
	return a.memory
}

// Footprint reports the current cursors of the arena.
func (a *Arena) Footprint() Footprint {
	return Footprint{Next: a.next, Limit: a.limit, Pages: a.memory.Size()}
}

// Alloc reserves size bytes aligned to align and returns the offset of the
// reserved range within the memory. An uninitialized arena becomes live.
func (a *Arena) Alloc(size, align int) int {
	switch a.state {
	case uninitialized:
		a.init()
	case borrowed:
		fault.Abort("memory initialized during PreAllocate")
	}
	if size < 0 {
		fault.Abort("invalid allocation size %d", size)
	}
	if align <= 0 || align&(align-1) != 0 || align > PageSize {
		fault.Abort("invalid alignment %d", align)
	}

	start := alignUp(a.next, align)
	end := start + size
	if end <= a.limit {
		a.next = end
		return start
	}

	pages := requiredPages(size)
	prev, ok := a.memory.Grow(pages)
	if !ok {
		fault.Abort("out of memory: failed to grow by %d pages", pages)
	}
	pageStart := prev * PageSize
	a.limit = pageStart + pages*PageSize
	a.next = pageStart + size
	return pageStart
}

// Allocate reserves size zeroed bytes aligned to align and returns a view on
// them. The view is valid until the arena is reset.
func (a *Arena) Allocate(size, align int) []byte {
	offset := a.Alloc(size, align)
	buf := a.memory.Slice(offset, size)
	clear(buf)
	return buf
}

// Bytes returns a view of an allocated range of the memory.
func (a *Arena) Bytes(offset, size int) []byte {
	return a.memory.Slice(offset, size)
}

// Deallocate is a no-op. Memory is only reclaimed by releasing the arena.
func (a *Arena) Deallocate(offset, size int) {}

// Copy allocates a copy of data within the arena and returns its offset.
func (a *Arena) Copy(data []byte) int {
	offset := a.Alloc(len(data), 1)
	copy(a.memory.Slice(offset, len(data)), data)
	return offset
}

// PreAllocate reserves a buffer of size bytes and hands it to transform,
// which reports how many of its bytes are actually used. The unused tail is
// returned to the arena and the used prefix is returned to the caller.
//
// While transform runs, the arena may not be used for anything else. Calling
// PreAllocate without a live arena, recursively, or with a transform claiming
// more than size bytes aborts.
func (a *Arena) PreAllocate(size int, transform func(buf []byte) int) []byte {
	if a.state != live {
		fault.Abort("recursive call to PreAllocate")
	}
	offset := a.Alloc(size, 1)
	buf := a.memory.Slice(offset, size)

	a.state = borrowed
	used := transform(buf)
	if used < 0 || used > size {
		fault.Abort("segmentation fault: transform used %d of %d pre-allocated bytes", used, size)
	}
	a.next = offset + used
	a.state = live
	return buf[:used:used]
}

func alignUp[T constraints.Integer](value, align T) T {
	return (value + align - 1) &^ (align - 1)
}

// requiredPages calculates the number of pages needed for an allocation of
// size bytes, rounded up to whole pages.
func requiredPages(size int) int {
	return (size + PageSize - 1) / PageSize
}
