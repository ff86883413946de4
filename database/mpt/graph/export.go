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
	"github.com/panoptisDev/triehost/go/common/fault"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
)

const alphabet = "0123456789ABCDEF"

// ExportedNode is the external representation of a decoded node. All byte
// strings are rendered as upper case hex strings with a 0x prefix.
type ExportedNode struct {
	ID        string          `json:"id,omitempty"`
	Nibbles   string          `json:"nibbles,omitempty"`
	Value     string          `json:"value,omitempty"`
	ValueHash string          `json:"valueHash,omitempty"`
	RawBytes  string          `json:"rawBytes,omitempty"`
	Children  []ExportedChild `json:"children,omitempty"`
}

// ExportedChild is a child of an exported node.
type ExportedChild struct {
	Nibble byte          `json:"nibble"`
	Node   *ExportedNode `json:"node"`
}

// Exporter converts a list of decoded nodes into a tree of exported nodes.
type Exporter struct {
	nodes  []Node
	source NodeSource
	buffer []byte
}

// NewExporter creates an exporter for the given decoded nodes. If source is
// not nil, it is consulted for the encoding of nodes with an ID.
func NewExporter(nodes []Node, source NodeSource) *Exporter {
	return &Exporter{
		nodes:  nodes,
		source: source,
		buffer: make([]byte, 0, 16384),
	}
}

// Export exports the subtree rooted by the node at the given position.
func (e *Exporter) Export(root int) *ExportedNode {
	return e.export(root, nil)
}

// ExportWithPrefix exports the subtree rooted by the node at the given
// position with the nibble leading to it prepended to its partial key.
func (e *Exporter) ExportWithPrefix(root int, nibble byte) *ExportedNode {
	return e.export(root, &nibble)
}

func (e *Exporter) export(pos int, prefix *byte) *ExportedNode {
	if pos < 0 || pos >= len(e.nodes) {
		fault.Abort("child at index %d not found", pos)
	}
	node := &e.nodes[pos]
	res := &ExportedNode{}

	if len(node.Partial) > 0 {
		res.Nibbles = e.renderNibbles(prefix, node.Partial)
	}
	if node.ID != nil {
		res.ID = e.render(node.ID[:])
		if node.RawBytes == nil && e.source != nil {
			if data, found := e.source.Get(*node.ID); found {
				res.RawBytes = e.render(data)
			}
		}
	}
	if node.Value != nil {
		if node.Value.Hashed {
			res.ValueHash = e.render(node.Value.Data)
		} else {
			res.Value = e.render(node.Value.Data)
		}
	}
	if node.RawBytes != nil {
		res.RawBytes = e.render(node.RawBytes)
	}

	for child, nibble := range node.Children.All() {
		res.Children = append(res.Children, ExportedChild{
			Nibble: nibble,
			Node:   e.export(child, nil),
		})
	}
	return res
}

func (e *Exporter) render(data []byte) string {
	e.buffer = append(e.buffer[:0], '0', 'x')
	for _, b := range data {
		e.buffer = append(e.buffer, alphabet[b>>4], alphabet[b&0xF])
	}
	return string(e.buffer)
}

func (e *Exporter) renderNibbles(prefix *byte, partial codec.Nibbles) string {
	e.buffer = append(e.buffer[:0], '0', 'x')
	if prefix != nil {
		e.buffer = append(e.buffer, alphabet[*prefix&0xF])
	}
	for _, nibble := range partial {
		e.buffer = append(e.buffer, alphabet[nibble&0xF])
	}
	return string(e.buffer)
}
