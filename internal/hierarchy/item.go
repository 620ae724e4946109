// Package hierarchy builds the place hierarchy that the import pipeline
// writes into the store. It owns an arena of Items keyed by
// place id rather than sharing mutable parent pointers between goroutines,
// mirroring original_source/importer/src/hierarchyitem.cpp and hierarchy.cpp
// (the rinigus/geocoder-nlp C++ importer's HierarchyItem/Hierarchy classes)
// but replacing shared_ptr ownership with a plain id-indexed map.
package hierarchy

import "strings"

// RawRow is one relational-source record feeding the hierarchy builder,
// shaped after original_source/importer/src/hierarchyitem.cpp's constructor
// (a pqxx::row read from the OSM-derived placex table).
type RawRow struct {
	PlaceID       int64
	LinkedPlaceID int64
	ParentPlaceID int64
	CountryCode   string
	Class         string
	Type          string
	HouseNumber   string
	PostalCode    string
	Latitude      float64
	Longitude     float64
	Importance    float64
	RankSearch    int
	Name          map[string]string
	Extra         map[string]string
}

// GeocoderType combines a source class and type into the single type string
// the index stores, the same rule as original_source/importer/src/utils.cpp's
// geocoder_type: a generic "yes" or empty type collapses to the bare class.
func GeocoderType(class, typ string) string {
	if typ == "" || typ == "yes" {
		return class
	}
	return class + "_" + typ
}

// Item is one node of the hierarchy being built. Children and Linked are
// tracked by id, not pointer, so the arena (Builder.items) is the single
// owner of every Item.
type Item struct {
	ID       int64
	LinkedID int64
	ParentID int64

	Type        string
	Country     string
	HouseNumber string
	PostalCode  string
	Latitude    float64
	Longitude   float64

	DataName  map[string]string
	DataExtra map[string]string

	Name      string
	NameExtra string

	Children []int64

	// Importance and RankSearch feed SearchRank: a search rank derived from
	// an importance score scaled 0..1000 with a fallback from the source's
	// rank_search column.
	Importance float64
	RankSearch int

	// Dropped marks an item collapsed into a duplicate survivor during
	// cleanup. A dropped item is never reachable from any surviving Children
	// slice, so it is simply excluded from Finalize's depth-first walk.
	Dropped bool

	ParentIndex    int64
	MyIndex        int64
	LastChildIndex int64
}

// SearchRank derives a search rank: importance (0..1 range, OSM convention)
// scales inversely to a 0..1000 rank where lower is better; when no
// importance is available, rank_search (also lower-is-better, OSM
// convention roughly 0..30) is used directly as the fallback.
func (it *Item) SearchRank() float64 {
	if it.Importance > 0 {
		rank := 1000 - it.Importance*1000
		if rank < 0 {
			rank = 0
		}
		return rank
	}
	return float64(it.RankSearch)
}

// newItem builds an Item from a RawRow, applying the same name/name_extra
// derivation as HierarchyItem's constructor: a non-empty house number
// demotes the parsed name to name_extra and becomes the primary name;
// otherwise name_extra falls back to the "brand" extra tag.
func newItem(row RawRow) *Item {
	it := &Item{
		ID:          row.PlaceID,
		LinkedID:    row.LinkedPlaceID,
		ParentID:    row.ParentPlaceID,
		Type:        GeocoderType(row.Class, row.Type),
		Country:     row.CountryCode,
		HouseNumber: row.HouseNumber,
		PostalCode:  row.PostalCode,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		Importance:  row.Importance,
		RankSearch:  row.RankSearch,
		DataName:    copyMap(row.Name),
		DataExtra:   copyMap(row.Extra),
	}

	it.Name = it.DataName["name"]
	if it.HouseNumber != "" {
		it.NameExtra = it.Name
		it.Name = it.HouseNumber
	} else {
		it.NameExtra = it.DataExtra["brand"]
	}

	return it
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// allowedTypeChars mirrors hierarchyitem.cpp's allowed_type_chars set: a
// type containing any other character is dropped outright regardless of
// skip/priority configuration.
const allowedTypeChars = "abcdefghijklmnopqrstuvwxyz_-"

func hasDisallowedTypeChar(typ string) bool {
	return strings.IndexFunc(typ, func(r rune) bool {
		return !strings.ContainsRune(allowedTypeChars, r)
	}) >= 0
}

// keep reports whether item should survive cleanup, replicating
// HierarchyItem::keep(): types with disallowed characters or in the skip
// list are always dropped; everything else survives only if it has a name
// or its type is in the priority list.
func (b *Builder) keep(it *Item) bool {
	if hasDisallowedTypeChar(it.Type) {
		return false
	}
	if b.skipTypes[it.Type] {
		return false
	}
	return it.Name != "" || b.priorityTypes[it.Type]
}

// coarsenType strips a type string down to its class component (the part
// of GeocoderType before the first "_"), matching original_source's class
// grouping for the duplicate key: two places of the same class but
// differing subtype ("place_city" vs "place_town") can still collapse as
// duplicates, the way a renamed or re-surveyed OSM node often does.
func coarsenType(typ string) string {
	if i := strings.IndexByte(typ, '_'); i >= 0 {
		return typ[:i]
	}
	return typ
}

// duplicateKey is the merge key for duplicate collapse: (name, name_extra,
// postal_code, coarsened-type, optional id for priority types). Including
// the id for a
// priority type means two priority-typed items (e.g. two distinct
// administrative boundaries that happen to share a name) never collapse
// into each other just because their other fields match.
type duplicateKey struct {
	name, nameExtra, postalCode, typ string
	priorityID                       int64
}

func (b *Builder) duplicateKeyFor(it *Item) duplicateKey {
	k := duplicateKey{name: it.Name, nameExtra: it.NameExtra, postalCode: it.PostalCode, typ: coarsenType(it.Type)}
	if b.priorityTypes[it.Type] {
		k.priorityID = it.ID
	}
	return k
}
