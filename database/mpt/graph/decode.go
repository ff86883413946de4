// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package graph reconstructs the node graph of a stored trie and exports it
// as a nested tree for inspection.
//
// Nodes are decoded into a flat list and reference their children by
// position. A node stored under a hash is decoded only once, even if it is
// referenced by multiple parents, so shared subtrees become shared
// positions. Nodes embedded into their parents have no identity and are
// decoded for every occurrence.
package graph

import (
	"bytes"

	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/common/fault"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
)

// NodeSource provides encoded nodes by their hash.
type NodeSource interface {
	Get(hash common.Hash) ([]byte, bool)
}

// Node is a decoded trie node.
type Node struct {
	Kind     codec.Kind
	ID       *common.Hash  // < nil for nodes embedded in their parent
	Partial  codec.Nibbles // < nil if the node has no partial key
	Value    *codec.Value  // < nil if the node holds no value
	Children Children
	RawBytes []byte // < the encoding of nodes without an ID
}

type decoder struct {
	source  NodeSource
	codec   codec.PlanDecoder
	nodes   []Node
	decoded map[common.Hash]int
}

// Decode decodes the trie with the given root from the source. It returns
// the list of decoded nodes and the position of the root within it. Children
// always precede their parents. Missing or malformed nodes abort.
func Decode(root common.Hash, source NodeSource, planDecoder codec.PlanDecoder) ([]Node, int) {
	data, found := source.Get(root)
	if !found {
		fault.Abort("no value for the root key %v", root)
	}
	d := &decoder{
		source:  source,
		codec:   planDecoder,
		nodes:   make([]Node, 0, 512),
		decoded: map[common.Hash]int{},
	}
	res := d.decode(data, &root)
	return d.nodes, res
}

func (d *decoder) decode(data []byte, id *common.Hash) int {
	plan, err := d.codec.Decode(data)
	if err != nil {
		fault.Abort("failed to decode node: %v", err)
	}

	node := Node{Kind: plan.Kind, ID: id}
	if id == nil {
		node.RawBytes = bytes.Clone(data)
	}
	if len(plan.Partial) > 0 {
		node.Partial = bytes.Clone(plan.Partial)
	}
	if plan.Value != nil {
		node.Value = &codec.Value{
			Data:   bytes.Clone(plan.Value.Data),
			Hashed: plan.Value.Hashed,
		}
	}

	switch plan.Kind {
	case codec.Branch, codec.NibbledBranch:
		for i, child := range plan.Children {
			if child != nil {
				node.Children.Push(d.child(child), byte(i))
			}
		}
	case codec.Extension:
		if plan.Child == nil {
			fault.Abort("extension node without child")
		}
		node.Children.Push(d.child(plan.Child), 0)
	}

	res := len(d.nodes)
	d.nodes = append(d.nodes, node)
	if id != nil {
		d.decoded[*id] = res
	}
	return res
}

func (d *decoder) child(handle *codec.ChildHandle) int {
	if !handle.Hashed {
		return d.decode(handle.Data, nil)
	}
	hash, err := common.HashFromBytes(handle.Data)
	if err != nil {
		fault.Abort("invalid child reference: %v", err)
	}
	if pos, found := d.decoded[hash]; found {
		return pos
	}
	data, found := d.source.Get(hash)
	if !found {
		fault.Abort("missing child node %v", hash)
	}
	return d.decode(data, &hash)
}
