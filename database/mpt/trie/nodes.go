// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"bytes"
	"fmt"

	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
)

// node is either a *leaf or a *branch. Nodes are never modified once they
// became part of a trie; updates create new nodes instead.
type node interface {
	partialKey() codec.Nibbles
}

type leaf struct {
	partial codec.Nibbles
	value   *value
}

type branch struct {
	partial  codec.Nibbles
	value    *value // < nil if the branch holds no value
	children [16]*ref
}

func (l *leaf) partialKey() codec.Nibbles {
	return l.partial
}

func (b *branch) partialKey() codec.Nibbles {
	return b.partial
}

func (b *branch) numChildren() int {
	res := 0
	for _, child := range b.children {
		if child != nil {
			res++
		}
	}
	return res
}

// ref references a node. A ref with a hash refers to a node persisted in the
// node database; its node is loaded on demand. A ref without a hash refers to
// a node that is either new or embedded in its parent.
type ref struct {
	hash *common.Hash
	node node
}

// value is a value held by a leaf or branch. Values longer than an inline
// value are stored separately and referenced by hash.
type value struct {
	data   []byte       // < nil for stored values not loaded yet
	hash   *common.Hash // < set once a hashed value is stored
	hashed bool
}

func newValue(data []byte) *value {
	return &value{
		data:   bytes.Clone(data),
		hashed: len(data) > codec.MaxInlineValueSize,
	}
}

// equals checks whether this value is the given data.
func (v *value) equals(data []byte) bool {
	if v.hashed != (len(data) > codec.MaxInlineValueSize) {
		return false
	}
	if !v.hashed || v.data != nil {
		return bytes.Equal(v.data, data)
	}
	return *v.hash == common.Blake2b256(data)
}

// encoded returns the value in the form it is referenced by its node.
func (v *value) encoded() codec.Value {
	if v.hashed {
		return codec.Value{Data: v.hash[:], Hashed: true}
	}
	return codec.Value{Data: v.data}
}

// decodeNode converts the plan of an encoded node into a node. Inline
// children are decoded recursively.
func decodeNode(data []byte) (node, error) {
	plan, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	switch plan.Kind {
	case codec.Empty:
		return nil, nil
	case codec.Leaf:
		return &leaf{
			partial: bytes.Clone(plan.Partial),
			value:   valueFromPlan(plan.Value),
		}, nil
	case codec.NibbledBranch:
		res := &branch{partial: bytes.Clone(plan.Partial)}
		if plan.Value != nil {
			res.value = valueFromPlan(plan.Value)
		}
		for i, child := range plan.Children {
			if child == nil {
				continue
			}
			if child.Hashed {
				hash, err := common.HashFromBytes(child.Data)
				if err != nil {
					return nil, err
				}
				res.children[i] = &ref{hash: &hash}
				continue
			}
			inline, err := decodeNode(child.Data)
			if err != nil {
				return nil, err
			}
			if inline == nil {
				return nil, fmt.Errorf("%w: empty inline child", codec.ErrInvalidEncoding)
			}
			res.children[i] = &ref{node: inline}
		}
		return res, nil
	}
	return nil, fmt.Errorf("unsupported node kind %v", plan.Kind)
}

func valueFromPlan(v *codec.Value) *value {
	if v.Hashed {
		hash := common.Hash(v.Data)
		return &value{hash: &hash, hashed: true}
	}
	return &value{data: bytes.Clone(v.Data)}
}
