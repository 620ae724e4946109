package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

// Postings is the in-memory form of the "geonlp-normalized-id.kch" file:
// keys are trie-key ids, values are sorted, duplicate-free place-id (my_index)
// arrays. Kyoto Cabinet (the original format's ".kch" backend) has no Go
// binding anywhere in the example pack, so the on-disk representation here
// is a plain sorted run of fixed-width little-endian records, written
// directly rather than adapted from any pack library.
type Postings struct {
	entries map[int32][]int64
}

// NewPostings builds an empty postings accumulator.
func NewPostings() *Postings {
	return &Postings{entries: make(map[int32][]int64)}
}

// Add appends placeID to keyID's posting list. Duplicates are removed and
// the list re-sorted by Finalize.
func (p *Postings) Add(keyID int32, placeID int64) {
	p.entries[keyID] = append(p.entries[keyID], placeID)
}

// Finalize sorts and dedups every posting list in place, enforcing a
// strictly ascending, duplicate-free invariant on each list.
func (p *Postings) Finalize() {
	for k, ids := range p.entries {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out := ids[:0]
		var prev int64 = -1
		for _, id := range ids {
			if id == prev {
				continue
			}
			out = append(out, id)
			prev = id
		}
		p.entries[k] = out
	}
}

// Get returns the posting list for a trie-key id.
func (p *Postings) Get(keyID int32) []int64 {
	return p.entries[keyID]
}

// recordHeaderSize is 4 bytes for the key + 4 bytes for the value count.
const recordHeaderSize = 8

// WriteTo serializes every posting list to w, one record per key, in
// ascending key order: a little-endian uint32 key, a little-endian uint32
// count, then count little-endian uint32 place ids.
func (p *Postings) WriteTo(w io.Writer) error {
	keys := make([]int32, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bw := bufio.NewWriter(w)
	var header [recordHeaderSize]byte
	for _, k := range keys {
		ids := p.entries[k]
		binary.LittleEndian.PutUint32(header[0:4], uint32(k))
		binary.LittleEndian.PutUint32(header[4:8], uint32(len(ids)))
		if _, err := bw.Write(header[:]); err != nil {
			return fmt.Errorf("store: write postings header: %w", err)
		}
		var buf [4]byte
		for _, id := range ids {
			binary.LittleEndian.PutUint32(buf[:], uint32(id))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("store: write posting id: %w", err)
			}
		}
	}
	return bw.Flush()
}

// SavePostings writes p to path, the "geonlp-normalized-id.kch" artifact.
func SavePostings(path string, p *Postings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create postings file: %w", err)
	}
	defer f.Close()
	if err := p.WriteTo(f); err != nil {
		return err
	}
	return f.Sync()
}

// LoadPostings reads an entire postings file into memory. The format is
// small enough relative to the trie and primary store (one entry per
// distinct normalized-name token) that an eager in-memory map comfortably
// serves point lookups without a custom mmap reader.
func LoadPostings(path string) (*Postings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open postings file: %w", err)
	}
	defer f.Close()

	p := NewPostings()
	br := bufio.NewReader(f)
	var header [recordHeaderSize]byte
	for {
		_, err := io.ReadFull(br, header[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: read postings header: %w", err)
		}
		key := int32(binary.LittleEndian.Uint32(header[0:4]))
		count := binary.LittleEndian.Uint32(header[4:8])

		ids := make([]int64, 0, count)
		var buf [4]byte
		for i := uint32(0); i < count; i++ {
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				return nil, fmt.Errorf("store: read posting id: %w", err)
			}
			ids = append(ids, int64(binary.LittleEndian.Uint32(buf[:])))
		}
		p.entries[key] = ids
	}
	return p, nil
}
