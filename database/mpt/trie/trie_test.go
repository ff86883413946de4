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
	"math/rand"
	"testing"

	"github.com/panoptisDev/triehost/go/backend/arena"
	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/panoptisDev/triehost/go/backend/host/memory"
	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
	"github.com/panoptisDev/triehost/go/database/mpt/store"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) (*store.Store, *memory.Store) {
	t.Helper()
	kv := memory.NewStore()
	t.Cleanup(func() { require.NoError(t, kv.Close()) })
	a := arena.New(arena.NewLinearMemory(1, 0), 0)
	a.Reset()
	return store.New(host.NewEnvironment(kv, nil), a, store.DefaultMaxValueSize), kv
}

func TestTrie_EmptyTrieHasEmptyRoot(t *testing.T) {
	require := require.New(t)
	db, kv := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	root, err := trie.Root()
	require.NoError(err)
	require.Equal(common.EmptyTrieHash, root)

	_, found, err := trie.Get([]byte("ab"))
	require.NoError(err)
	require.False(found)
	require.Zero(kv.Len())
}

func TestTrie_SingleLeafRootIsHashOfItsEncoding(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	require.NoError(trie.Insert([]byte("ab"), []byte("cd")))
	root, err := trie.Root()
	require.NoError(err)

	encoding := []byte{0x44, 0x61, 0x62, 0x08, 'c', 'd'}
	require.Equal(common.Blake2b256(encoding), root)

	stored, found := db.Get(root)
	require.True(found)
	require.Equal(encoding, stored)
}

func TestTrie_InsertedValuesCanBeRetrieved(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	entries := map[string]string{
		"":      "root",
		"a":     "1",
		"ab":    "2",
		"abc":   "3",
		"abd":   "4",
		"b":     "5",
		"bcdef": string(bytes.Repeat([]byte{'x'}, 100)),
		"\xff":  "6",
	}
	for key, value := range entries {
		require.NoError(trie.Insert([]byte(key), []byte(value)))
	}
	check := func(trie *Trie) {
		for key, value := range entries {
			got, found, err := trie.Get([]byte(key))
			require.NoError(err)
			require.True(found, "key %q", key)
			require.Equal([]byte(value), got, "key %q", key)
		}
		for _, key := range []string{"abcd", "c", "ac", "bcde", "\xfe"} {
			found, err := trie.Contains([]byte(key))
			require.NoError(err)
			require.False(found, "key %q", key)
		}
	}
	check(trie)

	root, err := trie.Commit()
	require.NoError(err)
	check(trie)
	check(New(db, root))
}

func TestTrie_RootIsIndependentOfInsertionOrder(t *testing.T) {
	require := require.New(t)
	keys := [][]byte{}
	for i := range 100 {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i*7)))
	}

	roots := []common.Hash{}
	for _, seed := range []int64{1, 2, 3} {
		db, _ := newTestDatabase(t)
		trie := New(db, common.EmptyTrieHash)
		r := rand.New(rand.NewSource(seed))
		for _, i := range r.Perm(len(keys)) {
			require.NoError(trie.Insert(keys[i], append([]byte("value-"), keys[i]...)))
		}
		root, err := trie.Root()
		require.NoError(err)
		roots = append(roots, root)
	}
	require.Equal(roots[0], roots[1])
	require.Equal(roots[0], roots[2])
}

func TestTrie_InsertingEqualValueIsNoOp(t *testing.T) {
	require := require.New(t)
	db, kv := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	large := bytes.Repeat([]byte{1}, 64)
	require.NoError(trie.Insert([]byte("a"), []byte("short")))
	require.NoError(trie.Insert([]byte("b"), large))
	root, err := trie.Commit()
	require.NoError(err)
	entries := kv.Len()

	trie = New(db, root)
	require.NoError(trie.Insert([]byte("a"), []byte("short")))
	require.NoError(trie.Insert([]byte("b"), large))
	require.Empty(trie.deathRow)
	got, err := trie.Commit()
	require.NoError(err)
	require.Equal(root, got)
	require.Equal(entries, kv.Len())
}

func TestTrie_InsertingEmptyValueRemovesKey(t *testing.T) {
	require := require.New(t)
	db, kv := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	require.NoError(trie.Insert([]byte("a"), []byte("b")))
	_, err := trie.Commit()
	require.NoError(err)

	require.NoError(trie.Insert([]byte("a"), nil))
	root, err := trie.Commit()
	require.NoError(err)
	require.Equal(common.EmptyTrieHash, root)
	require.Zero(kv.Len())
}

func TestTrie_LargeValuesAreStoredSeparately(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	value := bytes.Repeat([]byte{0xAB}, codec.MaxInlineValueSize+1)
	hash := common.Blake2b256(value)
	require.NoError(trie.Insert([]byte{1}, value))
	require.NoError(trie.Insert([]byte{2}, value))
	_, err := trie.Commit()
	require.NoError(err)
	require.Equal(int32(2), db.Count(hash))

	require.NoError(trie.Remove([]byte{1}))
	_, err = trie.Commit()
	require.NoError(err)
	require.Equal(int32(1), db.Count(hash))

	require.NoError(trie.Insert([]byte{2}, []byte("small")))
	_, err = trie.Commit()
	require.NoError(err)
	require.Equal(int32(0), db.Count(hash))
	_, found := db.Get(hash)
	require.False(found)
}

func TestTrie_ValuesOfInlineSizeAreEmbedded(t *testing.T) {
	require := require.New(t)
	db, kv := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	value := bytes.Repeat([]byte{0xAB}, codec.MaxInlineValueSize)
	require.NoError(trie.Insert([]byte{1}, value))
	_, err := trie.Commit()
	require.NoError(err)

	require.Equal(int32(0), db.Count(common.Blake2b256(value)))
	require.Equal(2, kv.Len(), "only the root node and its counter should be stored")
}

func TestTrie_RemovingAllKeysReleasesAllNodes(t *testing.T) {
	require := require.New(t)
	db, kv := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	r := rand.New(rand.NewSource(42))
	reference := map[string][]byte{}
	for i := range 2000 {
		key := make([]byte, 1+r.Intn(3))
		for j := range key {
			key[j] = byte(r.Intn(4)) * 0x11
		}
		value := make([]byte, r.Intn(50))
		r.Read(value)

		if r.Intn(3) == 0 {
			require.NoError(trie.Remove(key))
			delete(reference, string(key))
		} else {
			require.NoError(trie.Insert(key, value))
			if len(value) == 0 {
				delete(reference, string(key))
			} else {
				reference[string(key)] = value
			}
		}

		if i%10 == 0 {
			root, err := trie.Commit()
			require.NoError(err)
			trie = New(db, root)
			for key, want := range reference {
				got, found, err := trie.Get([]byte(key))
				require.NoError(err)
				require.True(found)
				require.Equal(want, got)
			}
		}
	}

	for key := range reference {
		require.NoError(trie.Remove([]byte(key)))
	}
	root, err := trie.Commit()
	require.NoError(err)
	require.Equal(common.EmptyTrieHash, root)
	require.Zero(kv.Len(), "all nodes and counters should be released")
}

func TestTrie_RemovalMergesBranches(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)

	single := New(db, common.EmptyTrieHash)
	require.NoError(single.Insert([]byte("abc"), []byte("1")))
	want, err := single.Commit()
	require.NoError(err)

	trie := New(db, common.EmptyTrieHash)
	require.NoError(trie.Insert([]byte("abc"), []byte("1")))
	require.NoError(trie.Insert([]byte("abd"), []byte("2")))
	require.NoError(trie.Insert([]byte("ab"), []byte("3")))
	_, err = trie.Commit()
	require.NoError(err)

	require.NoError(trie.Remove([]byte("ab")))
	require.NoError(trie.Remove([]byte("abd")))
	got, err := trie.Commit()
	require.NoError(err)
	require.Equal(want, got)
}

func TestTrie_RemovingMissingKeyIsNoOp(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)

	require.NoError(trie.Remove([]byte("a")))
	require.NoError(trie.Insert([]byte("abc"), []byte("1")))
	root, err := trie.Commit()
	require.NoError(err)

	trie = New(db, root)
	for _, key := range []string{"a", "ab", "abcd", "b"} {
		require.NoError(trie.Remove([]byte(key)))
	}
	require.Empty(trie.deathRow)
	got, err := trie.Commit()
	require.NoError(err)
	require.Equal(root, got)
}

func TestTrie_MissingNodesAreReported(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)
	trie := New(db, common.Hash{1, 2, 3})

	_, _, err := trie.Get([]byte("a"))
	require.ErrorIs(err, ErrIncompleteDatabase)
	require.ErrorIs(trie.Insert([]byte("a"), []byte("b")), ErrIncompleteDatabase)
	require.ErrorIs(trie.Remove([]byte("a")), ErrIncompleteDatabase)
}

func TestTrie_InvalidNodesAreReported(t *testing.T) {
	require := require.New(t)
	db, _ := newTestDatabase(t)
	root := db.Insert([]byte{0x01, 0x02, 0x03})
	trie := New(db, root)

	_, _, err := trie.Get([]byte("a"))
	require.ErrorIs(err, codec.ErrInvalidEncoding)
}

func TestTrie_TooLongKeysAreRejected(t *testing.T) {
	db, _ := newTestDatabase(t)
	trie := New(db, common.EmptyTrieHash)
	err := trie.Insert(make([]byte, MaxKeyLength+1), []byte{1})
	require.ErrorIs(t, err, ErrKeyTooLong)
}
