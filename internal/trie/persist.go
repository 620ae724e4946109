package trie

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Save persists t's key set to path as the "geonlp-normalized.trie"
// artifact: a little-endian uint32 count followed by each key in id order,
// each as a uint32 length prefix and its bytes. Ids are never stored
// directly since they are exactly the key's position in this list; Load
// rebuilds the radix tree deterministically from the same sorted order
// Freeze used, keeping id assignment stable across builds.
func Save(path string, t *Trie) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trie: create trie file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(t.keys)))
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("trie: write key count: %w", err)
	}
	for _, k := range t.keys {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(k)))
		if _, err := bw.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("trie: write key length: %w", err)
		}
		if _, err := bw.WriteString(k); err != nil {
			return fmt.Errorf("trie: write key: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads a trie file written by Save and rebuilds the radix tree,
// reassigning ids by position exactly as Freeze did.
func Load(path string) (*Trie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trie: open trie file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var header [4]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("trie: read key count: %w", err)
	}
	count := binary.LittleEndian.Uint32(header[:])

	keys := make([]string, 0, count)
	tree := iradix.New[int32]()
	ids := make(map[string]int32, count)

	for i := uint32(0); i < count; i++ {
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("trie: read key length: %w", err)
		}
		klen := binary.LittleEndian.Uint32(lenBuf[:])
		buf := make([]byte, klen)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("trie: read key: %w", err)
		}
		key := string(buf)
		id := int32(i)
		keys = append(keys, key)
		ids[key] = id
		tree, _, _ = tree.Insert(buf, id)
	}

	return &Trie{tree: tree, keys: keys, ids: ids}, nil
}
