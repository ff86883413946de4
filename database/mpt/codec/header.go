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

import "fmt"

// Node headers pack the node type and the length of the partial key into
// the leading bits of a node's first byte. Lengths not fitting into the
// remaining bits continue in subsequent bytes.
const (
	emptyNode               = 0b0000_0000
	leafPrefix              = 0b0100_0000
	branchNoValuePrefix     = 0b1000_0000
	branchWithValuePrefix   = 0b1100_0000
	hashedValueLeafPrefix   = 0b0010_0000
	hashedValueBranchPrefix = 0b0001_0000
)

// MaxPartialLength is the maximum number of nibbles in a partial key.
const MaxPartialLength = 1<<16 - 1

type header struct {
	kind          headerKind
	partialLength int
}

type headerKind byte

const (
	headerEmpty headerKind = iota
	headerLeaf
	headerBranchNoValue
	headerBranchWithValue
	headerHashedValueLeaf
	headerHashedValueBranch
)

// appendHeader appends a header with the given prefix, using prefixBits
// leading bits, and partial key length to out.
func appendHeader(out []byte, prefix byte, prefixBits uint, length int) []byte {
	length = min(length, MaxPartialLength)
	maxValue := 255 >> prefixBits
	first := min(maxValue-1, length)
	if length == first {
		return append(out, prefix+byte(first))
	}
	out = append(out, prefix+byte(maxValue))
	for rest := length - first; rest > 0; {
		if rest < 256 {
			out = append(out, byte(rest-1))
			break
		}
		out = append(out, 255)
		rest -= 255
	}
	return out
}

func readHeader(r *reader) (header, error) {
	first, err := r.readByte()
	if err != nil {
		return header{}, err
	}
	if first == emptyNode {
		return header{kind: headerEmpty}, nil
	}

	var kind headerKind
	var bits uint
	switch first & 0b1100_0000 {
	case leafPrefix:
		kind, bits = headerLeaf, 2
	case branchNoValuePrefix:
		kind, bits = headerBranchNoValue, 2
	case branchWithValuePrefix:
		kind, bits = headerBranchWithValue, 2
	default:
		switch {
		case first&0b1110_0000 == hashedValueLeafPrefix:
			kind, bits = headerHashedValueLeaf, 3
		case first&0b1111_0000 == hashedValueBranchPrefix:
			kind, bits = headerHashedValueBranch, 4
		default:
			return header{}, fmt.Errorf("%w: unknown node header 0x%02x", ErrInvalidEncoding, first)
		}
	}

	length, err := readPartialLength(first, r, bits)
	if err != nil {
		return header{}, err
	}
	return header{kind: kind, partialLength: length}, nil
}

func readPartialLength(first byte, r *reader, prefixBits uint) (int, error) {
	maxValue := 255 >> prefixBits
	res := int(first) & maxValue
	if res < maxValue {
		return res, nil
	}
	res--
	for {
		next, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if next < 255 {
			res += int(next) + 1
			break
		}
		res += 255
		if res > MaxPartialLength {
			return 0, fmt.Errorf("%w: partial key length exceeds %d", ErrInvalidEncoding, MaxPartialLength)
		}
	}
	if res > MaxPartialLength {
		return 0, fmt.Errorf("%w: partial key length exceeds %d", ErrInvalidEncoding, MaxPartialLength)
	}
	return res, nil
}
