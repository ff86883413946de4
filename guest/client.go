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

import (
	"encoding/binary"
	"fmt"

	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/database/mpt/graph"
)

// InputSetter defines the input the host hands to the next call.
type InputSetter interface {
	SetInput(data []byte)
}

// Client drives an execution unit from the host side, framing inputs and
// reading results out of the memory of the unit.
type Client struct {
	unit  *Unit
	input InputSetter
}

// NewClient creates a client for a unit whose host obtains call inputs from
// the given setter.
func NewClient(unit *Unit, input InputSetter) *Client {
	return &Client{unit: unit, input: input}
}

func (c *Client) call(op Op, input []byte) (uint64, error) {
	c.input.SetInput(input)
	res, err := c.unit.Call(op, uint32(len(input)))
	if err != nil {
		return 0, fmt.Errorf("%v failed: %w", op, err)
	}
	return res, nil
}

// Insert stores value under key. An empty value removes the key.
func (c *Client) Insert(key, value []byte) error {
	input := make([]byte, 0, 4+len(key)+len(value))
	input = binary.LittleEndian.AppendUint32(input, uint32(len(key)))
	input = append(input, key...)
	input = append(input, value...)
	_, err := c.call(OpInsert, input)
	return err
}

// Remove deletes key.
func (c *Client) Remove(key []byte) error {
	_, err := c.call(OpRemove, key)
	return err
}

// Exists checks whether a value is stored under key.
func (c *Client) Exists(key []byte) (bool, error) {
	res, err := c.call(OpExists, key)
	return res == 1, err
}

// Get retrieves the value stored under key.
func (c *Client) Get(key []byte) ([]byte, bool, error) {
	res, err := c.call(OpGet, key)
	if err != nil || res == 0 {
		return nil, false, err
	}
	value, err := c.unit.Read(res)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Root returns the current root hash.
func (c *Client) Root() (common.Hash, error) {
	res, err := c.call(OpRoot, nil)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := c.unit.Read(res)
	if err != nil {
		return common.Hash{}, err
	}
	return common.HashFromBytes(data)
}

// Nodes exports the node graph of the current trie.
func (c *Client) Nodes() (*graph.ExportedNode, error) {
	return c.unit.ListNodes()
}

// RefCount returns the reference count of the node or value with the given
// hash.
func (c *Client) RefCount(hash common.Hash) (int32, error) {
	return c.unit.RefCount(hash)
}
