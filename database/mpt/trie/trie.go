// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package trie implements a Merkle-Patricia trie on top of a content
// addressed node database.
//
// Keys are arbitrary byte strings split into nibbles. The trie consists of
// leaves and branches carrying partial keys. Nodes whose encoding is shorter
// than a hash are embedded into their parents; all other nodes, and always
// the root, are stored in the node database under their hash.
//
// Modifications are kept in memory until Commit, which stores all new nodes
// and values before releasing the ones that got replaced.
package trie

import (
	"errors"
	"fmt"

	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/database/mpt/codec"
)

// ErrIncompleteDatabase is returned if a node or value referenced by the trie
// is missing in the node database.
var ErrIncompleteDatabase = errors.New("incomplete database")

// ErrKeyTooLong is returned for keys exceeding MaxKeyLength.
var ErrKeyTooLong = errors.New("key too long")

// MaxKeyLength is the maximum length of keys in bytes.
const MaxKeyLength = codec.MaxPartialLength / 2

// NodeDatabase is the reference counted storage holding trie nodes and
// separately stored values.
type NodeDatabase interface {
	// Get retrieves the data stored under the given hash.
	Get(hash common.Hash) ([]byte, bool)
	// Insert stores a reference to the given data and returns its hash.
	Insert(data []byte) common.Hash
	// Remove drops a reference to the data stored under the given hash.
	Remove(hash common.Hash)
}

// Trie is a Merkle-Patricia trie. It is not thread-safe.
type Trie struct {
	db       NodeDatabase
	root     *ref          // < nil for the empty trie
	deathRow []common.Hash // < stored entries released on the next commit
}

// New opens the trie with the given root in the given database. Nodes are
// loaded lazily.
func New(db NodeDatabase, root common.Hash) *Trie {
	res := &Trie{db: db}
	if root != common.EmptyTrieHash {
		res.root = &ref{hash: &root}
	}
	return res
}

// Get retrieves the value stored under the given key.
func (t *Trie) Get(key []byte) ([]byte, bool, error) {
	path := codec.KeyToNibbles(key)
	cur := t.root
	for cur != nil {
		n, err := t.resolve(cur)
		if err != nil {
			return nil, false, err
		}
		partial := n.partialKey()
		if codec.CommonPrefixLength(partial, path) != len(partial) {
			return nil, false, nil
		}
		path = path[len(partial):]
		switch n := n.(type) {
		case *leaf:
			if len(path) != 0 {
				return nil, false, nil
			}
			return t.load(n.value)
		case *branch:
			if len(path) == 0 {
				if n.value == nil {
					return nil, false, nil
				}
				return t.load(n.value)
			}
			cur = n.children[path[0]]
			path = path[1:]
		}
	}
	return nil, false, nil
}

// Contains checks whether a value is stored under the given key.
func (t *Trie) Contains(key []byte) (bool, error) {
	_, found, err := t.Get(key)
	return found, err
}

// Insert stores the given value under the given key. Inserting an empty
// value removes the key.
func (t *Trie) Insert(key, value []byte) error {
	if len(value) == 0 {
		return t.Remove(key)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	root, _, err := t.insert(t.root, codec.KeyToNibbles(key), value)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// Remove deletes the value stored under the given key, if any.
func (t *Trie) Remove(key []byte) error {
	root, _, err := t.remove(t.root, codec.KeyToNibbles(key))
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// Root commits pending modifications and returns the root hash.
func (t *Trie) Root() (common.Hash, error) {
	return t.Commit()
}

// Commit stores all new nodes and values in the database, releases all
// replaced ones, and returns the new root hash.
func (t *Trie) Commit() (common.Hash, error) {
	res := common.EmptyTrieHash
	if t.root != nil {
		if t.root.hash == nil {
			data, err := t.encode(t.root.node)
			if err != nil {
				return common.Hash{}, err
			}
			hash := t.db.Insert(data)
			t.root.hash = &hash
		}
		res = *t.root.hash
	}
	for _, hash := range t.deathRow {
		t.db.Remove(hash)
	}
	t.deathRow = t.deathRow[:0]
	return res, nil
}

func (t *Trie) resolve(r *ref) (node, error) {
	if r.node != nil {
		return r.node, nil
	}
	data, found := t.db.Get(*r.hash)
	if !found {
		return nil, fmt.Errorf("%w: missing node %v", ErrIncompleteDatabase, *r.hash)
	}
	n, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %v: %w", *r.hash, err)
	}
	if n == nil {
		return nil, fmt.Errorf("%w: referenced node %v is empty", codec.ErrInvalidEncoding, *r.hash)
	}
	r.node = n
	return n, nil
}

func (t *Trie) load(v *value) ([]byte, bool, error) {
	if v.data != nil || !v.hashed {
		return v.data, true, nil
	}
	data, found := t.db.Get(*v.hash)
	if !found {
		return nil, false, fmt.Errorf("%w: missing value %v", ErrIncompleteDatabase, *v.hash)
	}
	v.data = data
	return data, true, nil
}

// discard schedules the stored node behind the given ref for removal.
func (t *Trie) discard(r *ref) {
	if r != nil && r.hash != nil {
		t.deathRow = append(t.deathRow, *r.hash)
	}
}

// discardValue schedules a separately stored value for removal.
func (t *Trie) discardValue(v *value) {
	if v != nil && v.hashed && v.hash != nil {
		t.deathRow = append(t.deathRow, *v.hash)
	}
}

func newLeaf(partial codec.Nibbles, data []byte) *ref {
	return &ref{node: &leaf{partial: partial, value: newValue(data)}}
}

func (t *Trie) insert(r *ref, path codec.Nibbles, data []byte) (*ref, bool, error) {
	if r == nil {
		return newLeaf(path, data), true, nil
	}
	n, err := t.resolve(r)
	if err != nil {
		return nil, false, err
	}
	switch n := n.(type) {
	case *leaf:
		shared := codec.CommonPrefixLength(n.partial, path)
		if shared == len(n.partial) && shared == len(path) {
			if n.value.equals(data) {
				return r, false, nil
			}
			t.discardValue(n.value)
			t.discard(r)
			return newLeaf(n.partial, data), true, nil
		}

		res := &branch{partial: path[:shared]}
		if shared == len(n.partial) {
			res.value = n.value
		} else {
			res.children[n.partial[shared]] = &ref{node: &leaf{
				partial: n.partial[shared+1:],
				value:   n.value,
			}}
		}
		if shared == len(path) {
			res.value = newValue(data)
		} else {
			res.children[path[shared]] = newLeaf(path[shared+1:], data)
		}
		t.discard(r)
		return &ref{node: res}, true, nil

	case *branch:
		shared := codec.CommonPrefixLength(n.partial, path)
		if shared < len(n.partial) {
			res := &branch{partial: n.partial[:shared]}
			res.children[n.partial[shared]] = &ref{node: &branch{
				partial:  n.partial[shared+1:],
				value:    n.value,
				children: n.children,
			}}
			if shared == len(path) {
				res.value = newValue(data)
			} else {
				res.children[path[shared]] = newLeaf(path[shared+1:], data)
			}
			t.discard(r)
			return &ref{node: res}, true, nil
		}

		res := *n
		if shared == len(path) {
			if n.value != nil && n.value.equals(data) {
				return r, false, nil
			}
			t.discardValue(n.value)
			res.value = newValue(data)
		} else {
			pos := path[shared]
			child, changed, err := t.insert(n.children[pos], path[shared+1:], data)
			if err != nil || !changed {
				return r, false, err
			}
			res.children[pos] = child
		}
		t.discard(r)
		return &ref{node: &res}, true, nil
	}
	panic(fmt.Sprintf("unsupported node type %T", n))
}

func (t *Trie) remove(r *ref, path codec.Nibbles) (*ref, bool, error) {
	if r == nil {
		return nil, false, nil
	}
	n, err := t.resolve(r)
	if err != nil {
		return nil, false, err
	}
	partial := n.partialKey()
	if codec.CommonPrefixLength(partial, path) != len(partial) {
		return r, false, nil
	}
	path = path[len(partial):]

	switch n := n.(type) {
	case *leaf:
		if len(path) != 0 {
			return r, false, nil
		}
		t.discardValue(n.value)
		t.discard(r)
		return nil, true, nil

	case *branch:
		res := *n
		if len(path) == 0 {
			if n.value == nil {
				return r, false, nil
			}
			t.discardValue(n.value)
			res.value = nil
		} else {
			child, changed, err := t.remove(n.children[path[0]], path[1:])
			if err != nil || !changed {
				return r, false, err
			}
			res.children[path[0]] = child
		}
		t.discard(r)
		fixed, err := t.fix(&res)
		if err != nil {
			return nil, false, err
		}
		return fixed, true, nil
	}
	panic(fmt.Sprintf("unsupported node type %T", n))
}

// fix restores the structural invariants of a branch that lost a child or
// its value: a branch without children becomes a leaf, and a branch without
// a value and only a single child is merged with that child.
func (t *Trie) fix(b *branch) (*ref, error) {
	switch b.numChildren() {
	case 0:
		if b.value == nil {
			return nil, nil
		}
		return &ref{node: &leaf{partial: b.partial, value: b.value}}, nil
	case 1:
		if b.value != nil {
			break
		}
		for i, child := range b.children {
			if child == nil {
				continue
			}
			n, err := t.resolve(child)
			if err != nil {
				return nil, err
			}
			t.discard(child)
			partial := codec.Concat(b.partial, codec.Nibbles{byte(i)}, n.partialKey())
			switch n := n.(type) {
			case *leaf:
				return &ref{node: &leaf{partial: partial, value: n.value}}, nil
			case *branch:
				return &ref{node: &branch{partial: partial, value: n.value, children: n.children}}, nil
			}
		}
	}
	return &ref{node: b}, nil
}

// encode computes the encoding of the given node, committing all of its
// children and values to the database first.
func (t *Trie) encode(n node) ([]byte, error) {
	switch n := n.(type) {
	case *leaf:
		t.storeValue(n.value)
		return codec.EncodeLeaf(n.partial, n.value.encoded()), nil
	case *branch:
		var children [16]*codec.ChildHandle
		for i, child := range n.children {
			if child == nil {
				continue
			}
			handle, err := t.commitChild(child)
			if err != nil {
				return nil, err
			}
			children[i] = handle
		}
		var v *codec.Value
		if n.value != nil {
			t.storeValue(n.value)
			encoded := n.value.encoded()
			v = &encoded
		}
		return codec.EncodeBranch(n.partial, v, &children), nil
	}
	return nil, fmt.Errorf("unsupported node type %T", n)
}

func (t *Trie) commitChild(r *ref) (*codec.ChildHandle, error) {
	if r.hash != nil {
		return &codec.ChildHandle{Hashed: true, Data: r.hash[:]}, nil
	}
	data, err := t.encode(r.node)
	if err != nil {
		return nil, err
	}
	if len(data) < common.HashSize {
		return &codec.ChildHandle{Data: data}, nil
	}
	hash := t.db.Insert(data)
	r.hash = &hash
	return &codec.ChildHandle{Hashed: true, Data: hash[:]}, nil
}

func (t *Trie) storeValue(v *value) {
	if v.hashed && v.hash == nil {
		hash := t.db.Insert(v.data)
		v.hash = &hash
	}
}
