package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/geo"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/trie"
)

// TypeDict assigns stable sequential ids to deduplicated type names, spec
// §3: "Type — deduplicated (id, name) pairs."
type TypeDict struct {
	ids   map[string]int32
	names []string
}

// NewTypeDict builds an empty type dictionary.
func NewTypeDict() *TypeDict {
	return &TypeDict{ids: make(map[string]int32)}
}

// IDFor returns name's id, assigning a new one in first-seen order if
// necessary.
func (d *TypeDict) IDFor(name string) int32 {
	if id, ok := d.ids[name]; ok {
		return id
	}
	id := int32(len(d.names))
	d.ids[name] = id
	d.names = append(d.names, name)
	return id
}

// Entries returns every (id, name) pair in id order.
func (d *TypeDict) Entries() []geo.Type {
	out := make([]geo.Type, len(d.names))
	for i, name := range d.names {
		out[i] = geo.Type{ID: int32(i), Name: name}
	}
	return out
}

// Writer assembles the four on-disk artifacts from a finalized hierarchy
// Builder.
type Writer struct {
	Expander expander.Expander
}

// WriteResult reports the paths and summary counts of a completed write,
// used by cmd/geonlp-import to print a final summary.
type WriteResult struct {
	PrimaryPath  string
	TriePath     string
	PostingsPath string
	PlaceCount   int
	TrieKeyCount int
}

// Write builds and persists the primary store, the R-tree boxes, the trie,
// and the postings file for every kept, finalized place in b, under dir.
func (w *Writer) Write(ctx context.Context, dir string, b *hierarchy.Builder, postalCountryCode string) (WriteResult, error) {
	primaryPath := dir + "/geonlp-primary.sqlite"
	triePath := dir + "/geonlp-normalized.trie"
	postingsPath := dir + "/geonlp-normalized-id.kch"

	db, err := sql.Open("sqlite", primaryPath)
	if err != nil {
		return WriteResult{}, fmt.Errorf("store: open primary store: %w", err)
	}
	defer db.Close()

	if err := createSchema(ctx, db); err != nil {
		return WriteResult{}, err
	}

	types := NewTypeDict()
	boxes := NewBoxAssigner()
	trieBuilder := trie.NewBuilder()
	postings := NewPostings()
	placeVariants := make(map[int64][]string)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return WriteResult{}, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(b.Items()))
	for id, item := range b.Items() {
		if item.MyIndex == 0 {
			continue // dropped during cleanup, never indexed
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return b.Items()[ids[i]].MyIndex < b.Items()[ids[j]].MyIndex })

	insertPrimary, err := tx.PrepareContext(ctx, `INSERT INTO object_primary
		(id, name, name_extra, name_en, phone, postal_code, website, parent, type_id,
		 latitude, longitude, search_rank, box_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return WriteResult{}, fmt.Errorf("store: prepare primary insert: %w", err)
	}
	defer insertPrimary.Close()

	insertHierarchy, err := tx.PrepareContext(ctx,
		`INSERT INTO hierarchy (prim_id, last_subobject) VALUES (?, ?)`)
	if err != nil {
		return WriteResult{}, fmt.Errorf("store: prepare hierarchy insert: %w", err)
	}
	defer insertHierarchy.Close()

	placeCount := 0
	for _, id := range ids {
		item := b.Items()[id]
		typeID := types.IDFor(item.Type)
		boxID := boxes.Assign(item.Latitude, item.Longitude)
		nameEn := item.DataName["name:en"]
		phone := item.DataExtra["phone"]
		website := item.DataExtra["website"]
		postal := expander.NormalizePostalCode(item.PostalCode)

		if _, err := insertPrimary.ExecContext(ctx, item.MyIndex, item.Name, item.NameExtra, nameEn,
			phone, postal, website, item.ParentIndex, typeID, item.Latitude, item.Longitude,
			item.SearchRank(), boxID); err != nil {
			return WriteResult{}, fmt.Errorf("store: insert primary row %d: %w", item.MyIndex, err)
		}

		if item.LastChildIndex > item.MyIndex {
			if _, err := insertHierarchy.ExecContext(ctx, item.MyIndex, item.LastChildIndex); err != nil {
				return WriteResult{}, fmt.Errorf("store: insert hierarchy row %d: %w", item.MyIndex, err)
			}
		}

		for _, name := range []string{item.Name, item.NameExtra, nameEn} {
			variants := w.expandName(name)
			if len(variants) == 0 {
				continue
			}
			placeVariants[item.MyIndex] = append(placeVariants[item.MyIndex], variants...)
			for _, v := range variants {
				trieBuilder.Insert(v)
			}
		}
		placeCount++
	}

	for _, t := range types.Entries() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO type (id, name) VALUES (?, ?)`, t.ID, t.Name); err != nil {
			return WriteResult{}, fmt.Errorf("store: insert type %q: %w", t.Name, err)
		}
	}

	for _, box := range boxes.Boxes() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO object_primary_rtree (id, minLat, maxLat, minLon, maxLon) VALUES (?, ?, ?, ?, ?)`,
			box.ID, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon); err != nil {
			return WriteResult{}, fmt.Errorf("store: insert box %d: %w", box.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('version', ?)`, fmt.Sprintf("%d", Version)); err != nil {
		return WriteResult{}, fmt.Errorf("store: insert version metadata: %w", err)
	}
	if postalCountryCode != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES ('postal:country:parser', ?)`, postalCountryCode); err != nil {
			return WriteResult{}, fmt.Errorf("store: insert postal country metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return WriteResult{}, fmt.Errorf("store: commit primary store: %w", err)
	}

	frozenTrie := trieBuilder.Freeze()
	for placeID, variants := range placeVariants {
		for _, v := range variants {
			if keyID, ok := frozenTrie.IDForKey(v); ok {
				postings.Add(keyID, placeID)
			}
		}
	}
	postings.Finalize()

	if err := trie.Save(triePath, frozenTrie); err != nil {
		return WriteResult{}, fmt.Errorf("store: save trie: %w", err)
	}
	if err := SavePostings(postingsPath, postings); err != nil {
		return WriteResult{}, err
	}

	return WriteResult{
		PrimaryPath:  primaryPath,
		TriePath:     triePath,
		PostingsPath: postingsPath,
		PlaceCount:   placeCount,
		TrieKeyCount: frozenTrie.Len(),
	}, nil
}

// expandName expands name via the Expander, skipping blanks and names the
// Expander rejects (over the 85-variant cap or flagged suspicious, per spec
// §4.1/§4.3).
func (w *Writer) expandName(name string) []string {
	if name == "" {
		return nil
	}
	variants, err := w.Expander.Expand(name)
	if err != nil {
		return nil
	}
	return variants
}
