// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package codec

import (
	"fmt"
	"strings"
)

// Nibbles is a sequence of 4-bit values stored one per byte.
type Nibbles []byte

// KeyToNibbles splits a key into its nibbles, high nibble first.
func KeyToNibbles(key []byte) Nibbles {
	res := make(Nibbles, 0, 2*len(key))
	for _, b := range key {
		res = append(res, b>>4, b&0xF)
	}
	return res
}

// Pack packs the nibbles two per byte. An odd number of nibbles is padded
// with a leading zero nibble.
func (n Nibbles) Pack() []byte {
	return n.appendPacked(make([]byte, 0, (len(n)+1)/2))
}

func (n Nibbles) appendPacked(out []byte) []byte {
	rest := n
	if len(rest)%2 == 1 {
		out = append(out, rest[0]&0xF)
		rest = rest[1:]
	}
	for i := 0; i < len(rest); i += 2 {
		out = append(out, rest[i]<<4|rest[i+1]&0xF)
	}
	return out
}

// CommonPrefixLength returns the number of leading nibbles shared by a and b.
func CommonPrefixLength(a, b Nibbles) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

// Concat creates a new nibble sequence holding all given parts.
func Concat(parts ...Nibbles) Nibbles {
	size := 0
	for _, part := range parts {
		size += len(part)
	}
	res := make(Nibbles, 0, size)
	for _, part := range parts {
		res = append(res, part...)
	}
	return res
}

func (n Nibbles) String() string {
	var builder strings.Builder
	for _, cur := range n {
		builder.WriteByte("0123456789abcdef"[cur&0xF])
	}
	return builder.String()
}

// unpackNibbles reverses Pack for a sequence of count nibbles.
func unpackNibbles(packed []byte, count int) (Nibbles, error) {
	if len(packed) != (count+1)/2 {
		return nil, fmt.Errorf("%w: %d bytes can not hold %d nibbles", ErrInvalidEncoding, len(packed), count)
	}
	res := make(Nibbles, 0, count)
	for i, b := range packed {
		if i == 0 && count%2 == 1 {
			if b&0xF0 != 0 {
				return nil, fmt.Errorf("%w: non-zero padding in partial key", ErrInvalidEncoding)
			}
			res = append(res, b&0xF)
			continue
		}
		res = append(res, b>>4, b&0xF)
	}
	return res, nil
}
