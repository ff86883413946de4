// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package graph

import (
	"iter"
	"math/bits"

	"github.com/panoptisDev/triehost/go/common/fault"
)

// Children is a sparse index of the children of a branch, mapping nibbles to
// positions in a decoded node list. The zero value is an empty index.
type Children struct {
	mask  uint16
	slots [16]int // < position+1 of the child, 0 if unset
}

// Push records the child at the given position under the given nibble. Each
// nibble may only be used once.
func (c *Children) Push(position int, nibble byte) {
	if nibble >= 16 {
		fault.Abort("invalid child nibble %d", nibble)
	}
	flag := uint16(1) << nibble
	if c.mask&flag != 0 {
		fault.Abort("duplicate child for nibble %d", nibble)
	}
	if position < 0 {
		fault.Abort("invalid child position %d", position)
	}
	c.slots[nibble] = position + 1
	c.mask |= flag
}

// Get returns the position of the child at the given nibble, if present.
func (c *Children) Get(nibble byte) (int, bool) {
	if nibble >= 16 || c.mask&(1<<nibble) == 0 {
		return 0, false
	}
	return c.slots[nibble] - 1, true
}

// Len returns the number of children.
func (c *Children) Len() int {
	return bits.OnesCount16(c.mask)
}

// All enumerates (position, nibble) pairs in ascending nibble order.
func (c *Children) All() iter.Seq2[int, byte] {
	return func(yield func(int, byte) bool) {
		mask := c.mask
		for mask != 0 {
			lowest := mask & -mask
			mask ^= lowest
			nibble := byte(bits.TrailingZeros16(lowest))
			slot := c.slots[nibble]
			if slot == 0 {
				fault.Abort("inconsistent branch index: no child for nibble %d", nibble)
			}
			if !yield(slot-1, nibble) {
				return
			}
		}
	}
}
