// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package codec implements the binary encoding of trie nodes.
//
// Three kinds of nodes are encoded: the empty node, leaves holding a partial
// key and a value, and branches holding a partial key, an optional value and
// up to 16 children. Values longer than 32 bytes are not embedded in nodes;
// instead, nodes reference them by their hash. Children whose encoding is
// shorter than a hash are embedded inline into their parent, all other
// children are referenced by hash.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/panoptisDev/triehost/go/common"
)

// ErrInvalidEncoding is returned for data that is not a valid node encoding.
var ErrInvalidEncoding = errors.New("invalid node encoding")

// MaxInlineValueSize is the length limit for values embedded in nodes. Longer
// values are stored separately and referenced by hash.
const MaxInlineValueSize = common.HashSize

// Kind enumerates the node kinds a Plan may describe.
type Kind byte

const (
	Empty Kind = iota
	Leaf
	Branch
	Extension
	NibbledBranch
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Leaf:
		return "Leaf"
	case Branch:
		return "Branch"
	case Extension:
		return "Extension"
	case NibbledBranch:
		return "NibbledBranch"
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Value is a value as referenced by a node. If Hashed is set, Data is the
// hash of the value, otherwise the value itself.
type Value struct {
	Data   []byte
	Hashed bool
}

// ChildHandle references a child node. If Hashed is set, Data is the hash of
// the child, otherwise its encoding.
type ChildHandle struct {
	Hashed bool
	Data   []byte
}

// Plan is the decoded form of a single node. Slices reference the decoded
// input and must not be modified.
type Plan struct {
	Kind     Kind
	Partial  Nibbles
	Value    *Value          // < nil if the node has no value
	Children [16]*ChildHandle // < for Branch and NibbledBranch
	Child    *ChildHandle    // < for Extension
}

// PlanDecoder converts encoded nodes into plans.
type PlanDecoder interface {
	Decode(data []byte) (Plan, error)
}

// NodeCodec is the PlanDecoder for the encoding implemented by this package.
type NodeCodec struct{}

func (NodeCodec) Decode(data []byte) (Plan, error) {
	return Decode(data)
}

// EmptyNode returns the encoding of the empty node.
func EmptyNode() []byte {
	return []byte{emptyNode}
}

// EncodeLeaf encodes a leaf node.
func EncodeLeaf(partial Nibbles, value Value) []byte {
	out := make([]byte, 0, 4+len(partial)/2+len(value.Data))
	if value.Hashed {
		out = appendHeader(out, hashedValueLeafPrefix, 3, len(partial))
	} else {
		out = appendHeader(out, leafPrefix, 2, len(partial))
	}
	out = partial.appendPacked(out)
	return appendValue(out, value)
}

// EncodeBranch encodes a branch node. At least one child must be present.
func EncodeBranch(partial Nibbles, value *Value, children *[16]*ChildHandle) []byte {
	out := make([]byte, 0, 128)
	switch {
	case value == nil:
		out = appendHeader(out, branchNoValuePrefix, 2, len(partial))
	case value.Hashed:
		out = appendHeader(out, hashedValueBranchPrefix, 4, len(partial))
	default:
		out = appendHeader(out, branchWithValuePrefix, 2, len(partial))
	}
	out = partial.appendPacked(out)

	var bitmap uint16
	for i, child := range children {
		if child != nil {
			bitmap |= 1 << i
		}
	}
	out = binary.LittleEndian.AppendUint16(out, bitmap)

	if value != nil {
		out = appendValue(out, *value)
	}
	for _, child := range children {
		if child != nil {
			out = appendCompact(out, uint32(len(child.Data)))
			out = append(out, child.Data...)
		}
	}
	return out
}

func appendValue(out []byte, value Value) []byte {
	if value.Hashed {
		return append(out, value.Data...)
	}
	out = appendCompact(out, uint32(len(value.Data)))
	return append(out, value.Data...)
}

// Decode parses an encoded node.
func Decode(data []byte) (Plan, error) {
	r := &reader{data: data}
	h, err := readHeader(r)
	if err != nil {
		return Plan{}, err
	}

	var res Plan
	switch h.kind {
	case headerEmpty:
		res.Kind = Empty
	case headerLeaf, headerHashedValueLeaf:
		res.Kind = Leaf
		if res.Partial, err = readPartial(r, h.partialLength); err != nil {
			return Plan{}, err
		}
		if res.Value, err = readValue(r, h.kind == headerHashedValueLeaf); err != nil {
			return Plan{}, err
		}
	default:
		res.Kind = NibbledBranch
		if res.Partial, err = readPartial(r, h.partialLength); err != nil {
			return Plan{}, err
		}
		raw, err := r.take(2)
		if err != nil {
			return Plan{}, err
		}
		bitmap := binary.LittleEndian.Uint16(raw)
		if bitmap == 0 {
			return Plan{}, fmt.Errorf("%w: branch without children", ErrInvalidEncoding)
		}
		if h.kind != headerBranchNoValue {
			if res.Value, err = readValue(r, h.kind == headerHashedValueBranch); err != nil {
				return Plan{}, err
			}
		}
		for i := range res.Children {
			if bitmap&(1<<i) == 0 {
				continue
			}
			length, err := readCompact(r)
			if err != nil {
				return Plan{}, err
			}
			child, err := r.take(int(length))
			if err != nil {
				return Plan{}, err
			}
			res.Children[i] = &ChildHandle{
				Hashed: len(child) == common.HashSize,
				Data:   child,
			}
		}
	}

	if r.remaining() != 0 {
		return Plan{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidEncoding, r.remaining())
	}
	return res, nil
}

func readPartial(r *reader, length int) (Nibbles, error) {
	packed, err := r.take((length + 1) / 2)
	if err != nil {
		return nil, err
	}
	return unpackNibbles(packed, length)
}

func readValue(r *reader, hashed bool) (*Value, error) {
	if hashed {
		hash, err := r.take(common.HashSize)
		if err != nil {
			return nil, err
		}
		return &Value{Data: hash, Hashed: true}, nil
	}
	length, err := readCompact(r)
	if err != nil {
		return nil, err
	}
	data, err := r.take(int(length))
	if err != nil {
		return nil, err
	}
	return &Value{Data: data}, nil
}
