// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package guest

import "github.com/panoptisDev/triehost/go/database/mpt/store"

// Config configures an execution unit.
type Config struct {
	// MaxValueSize bounds the size of values retrieved from the host.
	MaxValueSize int
	// HeapBase is the first address of the arena. Addresses below are never
	// handed out, so a packed result never points to address 0.
	HeapBase int
	// InitialPages is the number of memory pages granted at creation.
	InitialPages int
	// MaxPages bounds the memory of the unit. If not positive, a limit is
	// derived from the memory of the system.
	MaxPages int
	// Debug enables logging of every call through the host.
	Debug bool
}

// DefaultConfig is the configuration used by the tooling.
var DefaultConfig = Config{
	MaxValueSize: store.DefaultMaxValueSize,
	HeapBase:     1024,
	InitialPages: 1,
}
