// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package arena

import (
	"fmt"

	"github.com/pbnjay/memory"
)

// PageSize is the granularity in which linear memory grows, 64 KiB.
const PageSize = 64 * 1024

// LinearMemory emulates the growable memory of a sandboxed guest. Memory is
// granted in whole pages and never returned, so its content stays readable by
// the host after a call finished.
//
// Views obtained through Slice remain readable after the memory grew, but
// writes to them are only visible in the memory if they happen before the
// next growth.
type LinearMemory struct {
	data     []byte // all granted pages, len(data) is a multiple of PageSize
	maxPages int    // the amount of pages the host is willing to grant
}

// NewLinearMemory creates a memory with the given number of initially granted
// pages and an upper bound for growth. A non-positive maxPages selects a
// bound derived from the total memory of the system.
func NewLinearMemory(initialPages, maxPages int) *LinearMemory {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages()
	}
	return &LinearMemory{
		data:     make([]byte, initialPages*PageSize),
		maxPages: maxPages,
	}
}

// DefaultMaxPages caps guest memory at a quarter of the system memory, but
// never beyond a 32-bit address space.
func DefaultMaxPages() int {
	total := memory.TotalMemory() / 4 / PageSize
	switch {
	case total == 0:
		return 1 << 10
	case total > 1<<16:
		return 1 << 16
	}
	return int(total)
}

// Size returns the number of granted pages.
func (m *LinearMemory) Size() int {
	return len(m.data) / PageSize
}

// MaxPages returns the bound for growth.
func (m *LinearMemory) MaxPages() int {
	return m.maxPages
}

// Grow requests additional pages. It returns the previous size in pages, or
// false if the request exceeds the configured bound.
func (m *LinearMemory) Grow(pages int) (int, bool) {
	prev := m.Size()
	if pages < 0 || prev+pages > m.maxPages {
		return 0, false
	}
	m.data = append(m.data, make([]byte, pages*PageSize)...)
	return prev, true
}

// Slice returns a view of the memory range [offset, offset+size).
func (m *LinearMemory) Slice(offset, size int) []byte {
	return m.data[offset : offset+size : offset+size]
}

// Read copies size bytes starting at offset out of the memory.
func (m *LinearMemory) Read(offset, size int) ([]byte, error) {
	if err := m.check(offset, size); err != nil {
		return nil, err
	}
	res := make([]byte, size)
	copy(res, m.data[offset:])
	return res, nil
}

func (m *LinearMemory) check(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(m.data) {
		return fmt.Errorf("memory access out of bounds: offset %d, size %d, memory size %d", offset, size, len(m.data))
	}
	return nil
}
