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
	"encoding/json"
	"strings"
	"testing"

	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/common/fault"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
	"github.com/stretchr/testify/require"
)

func TestExporter_RendersUpperCaseHex(t *testing.T) {
	require := require.New(t)
	id := common.Hash{0xAB, 0xCD}
	nodes := []Node{{
		Kind:    codec.Leaf,
		ID:      &id,
		Partial: codec.Nibbles{0xA, 0x1, 0xF},
		Value:   &codec.Value{Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
	}}

	got := NewExporter(nodes, nil).Export(0)
	require.Equal(&ExportedNode{
		ID:      "0xABCD" + strings.Repeat("00", 30),
		Nibbles: "0xA1F",
		Value:   "0xDEADBEEF",
	}, got)
}

func TestExporter_EmptyPartialKeysAreOmitted(t *testing.T) {
	require := require.New(t)
	nodes := []Node{{Kind: codec.Leaf, Value: &codec.Value{Data: []byte{}}, RawBytes: []byte{0x40, 0x00}}}

	got := NewExporter(nodes, nil).Export(0)
	require.Equal(&ExportedNode{Value: "0x", RawBytes: "0x4000"}, got)

	got = NewExporter(nodes, nil).ExportWithPrefix(0, 5)
	require.Empty(got.Nibbles)
}

func TestExporter_PrefixIsPrependedToPartialKey(t *testing.T) {
	nodes := []Node{{Kind: codec.Leaf, Partial: codec.Nibbles{1, 2}, Value: &codec.Value{Data: []byte{1}}}}
	got := NewExporter(nodes, nil).ExportWithPrefix(0, 0xC)
	require.Equal(t, "0xC12", got.Nibbles)
}

func TestExporter_HashedValuesAreRenderedAsValueHash(t *testing.T) {
	require := require.New(t)
	hash := common.Hash{1}
	nodes := []Node{{Kind: codec.Leaf, Value: &codec.Value{Data: hash[:], Hashed: true}}}

	got := NewExporter(nodes, nil).Export(0)
	require.Empty(got.Value)
	require.Equal("0x01"+strings.Repeat("00", 31), got.ValueHash)
}

func TestExporter_ChildrenAreExportedInNibbleOrder(t *testing.T) {
	require := require.New(t)
	nodes := []Node{
		{Kind: codec.Leaf, Value: &codec.Value{Data: []byte{1}}, RawBytes: []byte{1}},
		{Kind: codec.Leaf, Value: &codec.Value{Data: []byte{2}}, RawBytes: []byte{2}},
		{Kind: codec.NibbledBranch, Partial: codec.Nibbles{7}},
	}
	nodes[2].Children.Push(1, 9)
	nodes[2].Children.Push(0, 3)

	got := NewExporter(nodes, nil).Export(2)
	require.Equal("0x7", got.Nibbles)
	require.Len(got.Children, 2)
	require.Equal(byte(3), got.Children[0].Nibble)
	require.Equal("0x01", got.Children[0].Node.Value)
	require.Equal(byte(9), got.Children[1].Nibble)
	require.Equal("0x02", got.Children[1].Node.Value)
	// children never inherit a prefix
	require.Empty(got.Children[0].Node.Nibbles)
}

func TestExporter_RawBytesOfStoredNodesAreFetched(t *testing.T) {
	require := require.New(t)
	source := mapSource{}
	id := source.add([]byte{0x12, 0x34})
	missing := common.Hash{9}
	nodes := []Node{
		{Kind: codec.Empty, ID: &id},
		{Kind: codec.Empty, ID: &missing},
	}

	exporter := NewExporter(nodes, source)
	require.Equal("0x1234", exporter.Export(0).RawBytes)
	require.Empty(exporter.Export(1).RawBytes)
}

func TestExporter_DanglingChildAborts(t *testing.T) {
	nodes := []Node{{Kind: codec.NibbledBranch}}
	nodes[0].Children.Push(5, 0)

	exporter := NewExporter(nodes, nil)
	require.ErrorIs(t, fault.Catch(func() { exporter.Export(0) }), fault.ErrAborted)
	require.ErrorIs(t, fault.Catch(func() { exporter.Export(1) }), fault.ErrAborted)
	require.ErrorIs(t, fault.Catch(func() { exporter.Export(-1) }), fault.ErrAborted)
}

func TestExporter_ExportOfDecodedTrie(t *testing.T) {
	require := require.New(t)
	db := newTestStore(t)
	hash := buildTrie(t, db, map[string]string{"ab": "cd", "ac": "ef"})

	nodes, root := Decode(hash, db, codec.NodeCodec{})
	got := NewExporter(nodes, db).Export(root)

	require.Equal(hash.String(), strings.ToLower(got.ID))
	require.Equal("0x616", got.Nibbles)
	require.NotEmpty(got.RawBytes)
	require.Len(got.Children, 2)
	require.Equal(&ExportedNode{Value: "0x6364", RawBytes: "0x40086364"}, got.Children[0].Node)
	require.Equal(&ExportedNode{Value: "0x6566", RawBytes: "0x40086566"}, got.Children[1].Node)
}

func TestExportedNode_JsonEncoding(t *testing.T) {
	require := require.New(t)
	node := &ExportedNode{
		ID:      "0x01",
		Nibbles: "0x2",
		Children: []ExportedChild{
			{Nibble: 4, Node: &ExportedNode{ValueHash: "0x03"}},
		},
	}
	data, err := json.Marshal(node)
	require.NoError(err)
	require.JSONEq(`{
		"id": "0x01",
		"nibbles": "0x2",
		"children": [{"nibble": 4, "node": {"valueHash": "0x03"}}]
	}`, string(data))
}
