// Package geo holds the data model of the place index: the shape produced
// by the Hierarchy Builder, written by the Index Writer, and consumed by the
// Search Core and Nearby Search. It is adapted from the flat row shape in
// rinigus/geocoder-nlp's importer/src/hierarchyitem.h, generalized to Go
// value types keyed by place id rather than C++ shared_ptr-linked nodes.
package geo

// Type is a deduplicated (id, name) pair. A Place has exactly one Type.
type Type struct {
	ID   int32
	Name string
}

// BoundingBox is a coarse spatial bucket. Many places share one box when
// their coordinates round to the same 0.01x0.01 degree cell.
type BoundingBox struct {
	ID     int32
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Place is the primary entity of the index.
type Place struct {
	ID int64 // stable integer id, assigned at index time (my_index)

	SourceID int64 // source-system place id (e.g. OSM place_id)

	Name      string // display name; house number takes precedence over the map name
	NameExtra string // secondary name (original name when Name is a house number, or a brand)
	NameEn    string // localized (English) name

	Phone      string
	PostalCode string
	Website    string

	Parent int64 // parent place id, or 0 for a root
	TypeID int32

	Latitude  float64
	Longitude float64
	BoxID     int32

	SearchRank float64 // lower is better

	MyIndex        int64 // nested-set left index
	LastChildIndex int64 // nested-set right index; equals MyIndex for a leaf
}

// IsLeaf reports whether the place has no descendants in the finalized
// hierarchy.
func (p *Place) IsLeaf() bool {
	return p.LastChildIndex <= p.MyIndex
}

// HierarchyTuple is present only for places with descendants: it encodes the
// nested-set interval [PlaceID, LastSubobject]. A candidate C is contained in
// P iff P.MyIndex < C.MyIndex <= P.LastChildIndex, equivalently
// PlaceID < C.MyIndex <= LastSubobject.
type HierarchyTuple struct {
	PlaceID      int64
	LastSubobject int64
}

// Contains reports whether the nested-set interval of P strictly contains
// the index idx: P.MyIndex < idx <= P.LastChildIndex.
func (p *Place) Contains(idx int64) bool {
	return p.MyIndex < idx && idx <= p.LastChildIndex
}
