package store

import (
	"math"
	"sort"

	"github.com/ehdc/geonlp/internal/geo"
)

// boxKey is the rounded (lat*100, lon*100) cell identifying a bounding box:
// all places with the same rounded pair share a box_id.
type boxKey struct {
	latCell int64
	lonCell int64
}

func roundCell(v float64) int64 {
	return int64(math.Round(v * 100))
}

// BoxAssigner accumulates places into bounding boxes during import, growing
// each box's observed min/max as members are added, and assigns stable
// ascending box ids in first-seen order.
type BoxAssigner struct {
	keyToID map[boxKey]int32
	boxes   map[int32]*geo.BoundingBox
	nextID  int32
}

// NewBoxAssigner builds an empty assigner.
func NewBoxAssigner() *BoxAssigner {
	return &BoxAssigner{
		keyToID: make(map[boxKey]int32),
		boxes:   make(map[int32]*geo.BoundingBox),
	}
}

// Assign records (lat, lon) and returns the box id it belongs to, growing
// that box's min/max envelope to include the new point.
func (a *BoxAssigner) Assign(lat, lon float64) int32 {
	key := boxKey{latCell: roundCell(lat), lonCell: roundCell(lon)}

	id, ok := a.keyToID[key]
	if !ok {
		a.nextID++
		id = a.nextID
		a.keyToID[key] = id
		a.boxes[id] = &geo.BoundingBox{ID: id, MinLat: lat, MaxLat: lat, MinLon: lon, MaxLon: lon}
		return id
	}

	box := a.boxes[id]
	if lat < box.MinLat {
		box.MinLat = lat
	}
	if lat > box.MaxLat {
		box.MaxLat = lat
	}
	if lon < box.MinLon {
		box.MinLon = lon
	}
	if lon > box.MaxLon {
		box.MaxLon = lon
	}
	return id
}

// Boxes returns every assigned box, sorted by id, ready to write to the
// object_primary_rtree table and to bulk-load the in-memory R-tree.
func (a *BoxAssigner) Boxes() []geo.BoundingBox {
	out := make([]geo.BoundingBox, 0, len(a.boxes))
	for _, b := range a.boxes {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
