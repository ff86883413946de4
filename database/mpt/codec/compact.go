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
	"encoding/binary"
	"fmt"
)

// Lengths are encoded using the SCALE compact integer format restricted to
// 32-bit values. The two least significant bits of the first byte select one
// of four modes:
//
//	0b00: single byte, value in the upper six bits
//	0b01: two bytes little endian, value in the upper 14 bits
//	0b10: four bytes little endian, value in the upper 30 bits
//	0b11: big integer mode, for 32-bit values always the byte 0x03
//	      followed by the value as four bytes little endian
const (
	singleByteLimit = 1 << 6
	twoByteLimit    = 1 << 14
	fourByteLimit   = 1 << 30
)

// appendCompact appends the compact encoding of value to out.
func appendCompact(out []byte, value uint32) []byte {
	switch {
	case value < singleByteLimit:
		return append(out, byte(value<<2))
	case value < twoByteLimit:
		return binary.LittleEndian.AppendUint16(out, uint16(value<<2)|0b01)
	case value < fourByteLimit:
		return binary.LittleEndian.AppendUint32(out, value<<2|0b10)
	}
	out = append(out, 0b11)
	return binary.LittleEndian.AppendUint32(out, value)
}

// compactSize returns the number of bytes needed to encode value.
func compactSize(value uint32) int {
	switch {
	case value < singleByteLimit:
		return 1
	case value < twoByteLimit:
		return 2
	case value < fourByteLimit:
		return 4
	}
	return 5
}

// readCompact decodes a compact integer from the reader. Non-canonical
// encodings are rejected.
func readCompact(r *reader) (uint32, error) {
	first, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0b00:
		return uint32(first >> 2), nil
	case 0b01:
		next, err := r.readByte()
		if err != nil {
			return 0, err
		}
		value := uint32(binary.LittleEndian.Uint16([]byte{first, next})) >> 2
		if value < singleByteLimit {
			return 0, fmt.Errorf("%w: non-canonical compact integer %d", ErrInvalidEncoding, value)
		}
		return value, nil
	case 0b10:
		rest, err := r.take(3)
		if err != nil {
			return 0, err
		}
		value := binary.LittleEndian.Uint32([]byte{first, rest[0], rest[1], rest[2]}) >> 2
		if value < twoByteLimit {
			return 0, fmt.Errorf("%w: non-canonical compact integer %d", ErrInvalidEncoding, value)
		}
		return value, nil
	}
	if first != 0b11 {
		return 0, fmt.Errorf("%w: compact integer exceeds 32 bits", ErrInvalidEncoding)
	}
	rest, err := r.take(4)
	if err != nil {
		return 0, err
	}
	value := binary.LittleEndian.Uint32(rest)
	if value < fourByteLimit {
		return 0, fmt.Errorf("%w: non-canonical compact integer %d", ErrInvalidEncoding, value)
	}
	return value, nil
}

// reader is a bounds-checked cursor over an encoded node.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrInvalidEncoding)
	}
	res := r.data[r.pos]
	r.pos++
	return res, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, fmt.Errorf("%w: unexpected end of input, need %d bytes, have %d", ErrInvalidEncoding, n, len(r.data)-r.pos)
	}
	res := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return res, nil
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}
