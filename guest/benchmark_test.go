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
	"testing"

	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/panoptisDev/triehost/go/backend/host/memory"
	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
)

var hashSink common.Hash

func newBenchmarkClient(b *testing.B) *Client {
	env := host.NewEnvironment(memory.NewStore(), nil)
	b.Cleanup(func() { _ = env.Close() })
	client := NewClient(NewUnit(env, DefaultConfig), env)
	if err := createBranchWithFullLeaves(client); err != nil {
		b.Fatalf("failed to create test nodes: %v", err)
	}
	return client
}

func Benchmark_Unit_Insert_BranchNode_All_Leaves_Updated(b *testing.B) {
	client := newBenchmarkClient(b)
	var counter uint64
	for i := 0; i < b.N; i++ {
		for j := 0; j < 16; j++ {
			counter++
			if err := client.Insert([]byte{byte(j) << 4}, valueOf(counter)); err != nil {
				b.Fatalf("failed to insert: %v", err)
			}
		}
		root, err := client.Root()
		if err != nil {
			b.Fatalf("failed to get root: %v", err)
		}
		hashSink = root
	}
}

func Benchmark_Unit_Insert_BranchNode_Single_Leaf_Updated(b *testing.B) {
	client := newBenchmarkClient(b)
	var counter uint64
	for i := 0; i < b.N; i++ {
		counter++
		if err := client.Insert([]byte{byte(i) << 4}, valueOf(counter)); err != nil {
			b.Fatalf("failed to insert: %v", err)
		}
		root, err := client.Root()
		if err != nil {
			b.Fatalf("failed to get root: %v", err)
		}
		hashSink = root
	}
}

func Benchmark_Unit_Get(b *testing.B) {
	client := newBenchmarkClient(b)
	for i := 0; i < b.N; i++ {
		if _, found, err := client.Get([]byte{byte(i) << 4}); err != nil || !found {
			b.Fatalf("failed to get value: %v, found %t", err, found)
		}
	}
}

var nibblesSink codec.Nibbles

func Benchmark_Key_To_Nibbles(b *testing.B) {
	key := make([]byte, 32)
	for i := 0; i < b.N; i++ {
		key[0] = byte(i)
		nibblesSink = codec.KeyToNibbles(key)
	}
}

func createBranchWithFullLeaves(client *Client) error {
	for i := 0; i < 16; i++ {
		if err := client.Insert([]byte{byte(i) << 4}, []byte{byte(i + 1)}); err != nil {
			return err
		}
	}
	return nil
}

func valueOf(counter uint64) []byte {
	return []byte{byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter)}
}
