// Package trie implements the normalized-name trie: a compact, compressed
// structure over every kept place's expanded name strings, assigning each
// distinct string a stable integer id and supporting prefix lookup for the
// Search Core. It wraps
// github.com/hashicorp/go-immutable-radix/v2, the compressed/immutable
// radix tree used elsewhere in the example pack's dependency surface
// (cited by name in the dolthub-go-mysql-server and osapi-io-osapi
// manifests; see DESIGN.md) rather than a hand-rolled trie.
package trie

import (
	"sort"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Builder accumulates the distinct key set before Freeze assigns ids.
type Builder struct {
	keys map[string]struct{}
}

// NewBuilder starts an empty key set.
func NewBuilder() *Builder {
	return &Builder{keys: make(map[string]struct{})}
}

// Insert records key as present in the trie. Duplicate inserts are no-ops:
// the builder holds a deduplicated set of strings.
func (b *Builder) Insert(key string) {
	if key == "" {
		return
	}
	b.keys[key] = struct{}{}
}

// Freeze assigns each distinct key a stable integer id in ascending
// lexicographic order and builds the immutable radix tree: id assignment is
// stable across builds of identical input, since the id is purely a
// function of sorted key order, so rebuilding from the same key set always
// reproduces the same ids.
func (b *Builder) Freeze() *Trie {
	keys := make([]string, 0, len(b.keys))
	for k := range b.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tree := iradix.New[int32]()
	ids := make(map[string]int32, len(keys))
	for i, k := range keys {
		id := int32(i)
		ids[k] = id
		tree, _, _ = tree.Insert([]byte(k), id)
	}

	return &Trie{tree: tree, keys: keys, ids: ids}
}

// Trie is the frozen, read-only, prefix-searchable key set.
type Trie struct {
	tree *iradix.Tree[int32]
	keys []string
	ids  map[string]int32
}

// Match is one trie key matched during a prefix lookup, carrying enough
// information to sort the intermediate multiset by (match_length,
// match_string, id).
type Match struct {
	Key string
	ID  int32
}

// IDForKey returns the stable id assigned to an exact key, if present.
func (t *Trie) IDForKey(key string) (int32, bool) {
	v, ok := t.tree.Root().Get([]byte(key))
	return v, ok
}

// KeyForID returns the key text for an id, the inverse of IDForKey.
func (t *Trie) KeyForID(id int32) (string, bool) {
	if id < 0 || int(id) >= len(t.keys) {
		return "", false
	}
	return t.keys[id], true
}

// PrefixLookup returns every trie key having prefix as a prefix, each
// tagged with its assigned id. Order is the tree's natural (lexicographic)
// walk order; the Search Core re-sorts by (match_length, match_string, id)
// itself.
func (t *Trie) PrefixLookup(prefix string) []Match {
	if prefix == "" {
		return nil
	}
	var matches []Match
	t.tree.Root().WalkPrefix([]byte(prefix), func(k []byte, v int32) bool {
		matches = append(matches, Match{Key: string(k), ID: v})
		return false
	})
	return matches
}

// Len returns the number of distinct keys in the trie.
func (t *Trie) Len() int {
	return len(t.keys)
}
