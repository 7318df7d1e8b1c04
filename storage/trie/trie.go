// Package trie provides a lightweight, content-addressed key-value layer on
// top of storage.Database. It replaces the project's earlier placeholder
// Merkle node sketch with a real, working implementation: a log of pending
// writes is hashed into a root on Commit, while reads and writes against the
// backing store are immediate so callers never need to flush before reading
// their own writes.
package trie

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ainur-network/ainurchain/storage"
)

// Trie wraps a storage.Database, tracking the set of keys touched since the
// last Commit so a deterministic root hash can be derived from their content.
// Keys passed into Get/Update are expected to already be fully hashed
// (keccak256) by the caller, matching the historical behaviour of the
// project's state manager.
//
// Trie is not safe for concurrent use.
type Trie struct {
	mu      sync.Mutex
	store   storage.Database
	root    []byte
	pending map[string][]byte
	order   []string
}

// NewTrie creates a trie backed by the provided storage and optional root. A
// nil or empty root denotes the empty trie.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	if store == nil {
		return nil, fmt.Errorf("trie: store is required")
	}
	return &Trie{
		store:   store,
		root:    append([]byte(nil), root...),
		pending: make(map[string][]byte),
	}, nil
}

// Get retrieves a value from the backing store for the provided key.
func (t *Trie) Get(key []byte) ([]byte, error) {
	t.mu.Lock()
	if value, ok := t.pending[string(key)]; ok {
		t.mu.Unlock()
		if value == nil {
			return nil, nil
		}
		return append([]byte(nil), value...), nil
	}
	t.mu.Unlock()
	return t.store.Get(key)
}

// Update inserts, updates, or (when value is nil) deletes the entry for the
// provided key. The write reaches the backing store immediately; it is also
// recorded so the next Commit can fold it into the root hash.
func (t *Trie) Update(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("trie: key must not be empty")
	}
	if value == nil {
		if err := t.store.Delete(key); err != nil {
			return err
		}
	} else {
		if err := t.store.Put(key, value); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	k := string(key)
	if _, seen := t.pending[k]; !seen {
		t.order = append(t.order, k)
	}
	t.pending[k] = append([]byte(nil), value...)
	return nil
}

// Hash returns the root hash reflecting all mutations recorded since the last
// Commit, without persisting anything further (everything is already in the
// backing store by the time Update returns).
func (t *Trie) Hash() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.computeRootLocked()
}

// Root returns the last committed root hash.
func (t *Trie) Root() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.root...)
}

// Commit folds every key touched since the previous Commit into a new root
// hash and clears the pending set.
func (t *Trie) Commit() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	newRoot := t.computeRootLocked()
	t.root = newRoot
	t.pending = make(map[string][]byte)
	t.order = nil
	return append([]byte(nil), newRoot...)
}

func (t *Trie) computeRootLocked() []byte {
	keys := append([]string(nil), t.order...)
	sort.Strings(keys)
	h := append([]byte(nil), t.root...)
	for _, k := range keys {
		v := t.pending[k]
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(v)))
		payload := make([]byte, 0, len(h)+len(k)+len(length)+len(v))
		payload = append(payload, h...)
		payload = append(payload, k...)
		payload = append(payload, length[:]...)
		payload = append(payload, v...)
		sum := crypto.Keccak256(payload)
		h = sum
	}
	return h
}

// Store exposes the backing storage in case callers need to access it
// directly (e.g. nonce persistence sharing the same database file).
func (t *Trie) Store() storage.Database {
	return t.store
}
