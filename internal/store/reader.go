package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ehdc/geonlp/internal/geo"
	"github.com/ehdc/geonlp/internal/trie"
)

// Reader is a read-only handle onto a built index: the primary store, the
// frozen trie, the postings file, and an in-memory R-tree loaded from the
// primary store's box table. A process may open multiple reader handles;
// each owns its own connection and no two reader handles share mutable
// state, so each Reader opens its own *sql.DB.
type Reader struct {
	path string
	db   *sql.DB
	trie *trie.Trie
	post *Postings
	rt   *RTree
}

// Load opens dir's three artifacts and returns a Reader. It refuses to open
// a store whose meta version doesn't match the compiled Version constant.
// Load itself is idempotent in the sense that it always opens a fresh,
// independent handle; callers that already hold a Reader for the same path
// should keep using it rather than calling Load again.
func Load(ctx context.Context, dir string) (*Reader, error) {
	primaryPath := dir + "/geonlp-primary.sqlite"
	triePath := dir + "/geonlp-normalized.trie"
	postingsPath := dir + "/geonlp-normalized-id.kch"

	db, err := sql.Open("sqlite", primaryPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("store: open primary store: %w", err)
	}

	if err := checkVersion(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	boxes, err := loadBoxes(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	tr, err := trie.Load(triePath)
	if err != nil {
		db.Close()
		return nil, err
	}

	post, err := LoadPostings(postingsPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{
		path: dir,
		db:   db,
		trie: tr,
		post: post,
		rt:   BuildRTree(boxes),
	}, nil
}

// PostalCountryParser returns the optional meta("postal:country:parser")
// hint written by the importer's --postal-country flag, used to pick a
// per-country Expander configuration at query time. The second return value
// is false when the index carries no such hint.
func (r *Reader) PostalCountryParser(ctx context.Context) (string, bool) {
	var code string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'postal:country:parser'`).Scan(&code)
	if err != nil {
		return "", false
	}
	return code, true
}

func loadBoxes(ctx context.Context, db *sql.DB) ([]geo.BoundingBox, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, minLat, maxLat, minLon, maxLon FROM object_primary_rtree`)
	if err != nil {
		return nil, fmt.Errorf("store: load boxes: %w", err)
	}
	defer rows.Close()

	var boxes []geo.BoundingBox
	for rows.Next() {
		var b geo.BoundingBox
		if err := rows.Scan(&b.ID, &b.MinLat, &b.MaxLat, &b.MinLon, &b.MaxLon); err != nil {
			return nil, fmt.Errorf("store: scan box: %w", err)
		}
		boxes = append(boxes, b)
	}
	return boxes, rows.Err()
}

// Drop closes the primary store connection and releases the trie and
// postings. A dropped Reader must not be used again.
func (r *Reader) Drop() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.trie = nil
	r.post = nil
	r.rt = nil
	return err
}

// Path returns the directory this Reader was loaded from.
func (r *Reader) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// GetPlace fetches the primary row for myIndex. A nil Reader, or one with
// no open store, returns (nil, false) rather than an error, the same
// degrade-gracefully rule every lookup on this type follows.
func (r *Reader) GetPlace(ctx context.Context, myIndex int64) (*geo.Place, bool) {
	if r == nil || r.db == nil {
		return nil, false
	}
	row := r.db.QueryRowContext(ctx, `SELECT id, name, name_extra, name_en, phone, postal_code,
		website, parent, type_id, latitude, longitude, search_rank, box_id
		FROM object_primary WHERE id = ?`, myIndex)

	p := &geo.Place{}
	err := row.Scan(&p.MyIndex, &p.Name, &p.NameExtra, &p.NameEn, &p.Phone, &p.PostalCode,
		&p.Website, &p.Parent, &p.TypeID, &p.Latitude, &p.Longitude, &p.SearchRank, &p.BoxID)
	if err != nil {
		return nil, false
	}
	p.ID = p.MyIndex

	if last, ok := r.LastSubobject(ctx, myIndex); ok {
		p.LastChildIndex = last
	} else {
		p.LastChildIndex = p.MyIndex
	}
	return p, true
}

// LastSubobject looks up the hierarchy table entry for myIndex, returning
// false for a leaf: the hierarchy table only carries a row when a place has
// descendants.
func (r *Reader) LastSubobject(ctx context.Context, myIndex int64) (int64, bool) {
	if r == nil || r.db == nil {
		return 0, false
	}
	var last int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_subobject FROM hierarchy WHERE prim_id = ?`, myIndex).Scan(&last)
	if err != nil {
		return 0, false
	}
	return last, true
}

// GetType resolves a type id to its name.
func (r *Reader) GetType(ctx context.Context, id int32) (string, bool) {
	if r == nil || r.db == nil {
		return "", false
	}
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM type WHERE id = ?`, id).Scan(&name)
	if err != nil {
		return "", false
	}
	return name, true
}

// PlacesByPostalCode returns every place id whose normalized postal_code
// equals code.
func (r *Reader) PlacesByPostalCode(ctx context.Context, code string) ([]int64, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM object_primary WHERE postal_code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("store: query postal code: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan postal code id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PlacesInBox returns every place row whose box_id is in boxIDs.
func (r *Reader) PlacesInBox(ctx context.Context, boxIDs []int32) ([]geo.Place, error) {
	if r == nil || r.db == nil || len(boxIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, name, name_extra, name_en, phone, postal_code, website, parent,
		type_id, latitude, longitude, search_rank, box_id FROM object_primary WHERE box_id IN (`
	args := make([]any, len(boxIDs))
	for i, id := range boxIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query places in box: %w", err)
	}
	defer rows.Close()

	var places []geo.Place
	for rows.Next() {
		var p geo.Place
		if err := rows.Scan(&p.MyIndex, &p.Name, &p.NameExtra, &p.NameEn, &p.Phone, &p.PostalCode,
			&p.Website, &p.Parent, &p.TypeID, &p.Latitude, &p.Longitude, &p.SearchRank, &p.BoxID); err != nil {
			return nil, fmt.Errorf("store: scan place in box: %w", err)
		}
		p.ID = p.MyIndex
		places = append(places, p)
	}
	return places, rows.Err()
}

// TriePrefixLookup delegates to the loaded trie.
func (r *Reader) TriePrefixLookup(prefix string) []trie.Match {
	if r == nil || r.trie == nil {
		return nil
	}
	return r.trie.PrefixLookup(prefix)
}

// Postings returns the posting list for a trie key id.
func (r *Reader) Postings(keyID int32) []int64 {
	if r == nil || r.post == nil {
		return nil
	}
	return r.post.Get(keyID)
}

// RTreeQuery returns candidate box ids overlapping the given rectangle.
func (r *Reader) RTreeQuery(minLat, maxLat, minLon, maxLon float64) []int32 {
	if r == nil || r.rt == nil {
		return nil
	}
	return r.rt.Query(minLat, maxLat, minLon, maxLon)
}
