// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the width of content hashes in bytes.
const HashSize = 32

// Hash is a blake2b-256 content hash identifying a stored trie node or value.
type Hash [HashSize]byte

// EmptyTrieHash is the hash of the empty node encoding (the single byte 0x00)
// and doubles as the root of an empty trie. It is never stored.
var EmptyTrieHash = Hash{
	0x03, 0x17, 0x0a, 0x2e, 0x75, 0x97, 0xb7, 0xb7,
	0xe3, 0xd8, 0x4c, 0x05, 0x39, 0x1d, 0x13, 0x9a,
	0x62, 0xb1, 0x57, 0xe7, 0x87, 0x86, 0xd8, 0xc0,
	0x82, 0xf2, 0x9d, 0xcf, 0x4c, 0x11, 0x13, 0x14,
}

// Blake2b256 computes the content hash of the given data.
func Blake2b256(data []byte) Hash {
	return Hash(blake2b.Sum256(data))
}

// HashFromBytes converts a 32-byte slice into a Hash.
func HashFromBytes(data []byte) (Hash, error) {
	if len(data) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length: expected %d, got %d", HashSize, len(data))
	}
	return Hash(data), nil
}

func (h Hash) IsEmptyTrie() bool {
	return h == EmptyTrieHash
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}
