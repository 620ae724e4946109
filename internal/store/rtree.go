package store

import (
	"sort"

	"github.com/ehdc/geonlp/internal/geo"
)

// fanout bounds how many entries a single R-tree node holds before the
// bulk-loader splits it. No R-tree package appears anywhere in the example
// pack, so this is a minimal hand-written static tree (bulk-loaded once at
// import time, queried read-only thereafter) rather than an adaptation of
// existing code; see DESIGN.md.
const fanout = 16

// rtreeNode is either a leaf (holding box ids directly) or an internal node
// (holding child nodes), always with an enclosing envelope.
type rtreeNode struct {
	minLat, maxLat, minLon, maxLon float64
	boxIDs                         []int32 // non-nil only for leaves
	children                       []*rtreeNode
}

func (n *rtreeNode) overlaps(minLat, maxLat, minLon, maxLon float64) bool {
	return n.minLat <= maxLat && n.maxLat >= minLat &&
		n.minLon <= maxLon && n.maxLon >= minLon
}

// RTree is a static, bulk-loaded spatial index over bounding boxes, keyed by
// box id.
type RTree struct {
	root *rtreeNode
}

// BuildRTree bulk-loads an RTree from every bounding box written by the
// importer. Boxes are sorted once by their center longitude then latitude
// (no recursive tiling), grouped into leaves of at most
// fanout boxes, and merged upward until a single root remains.
func BuildRTree(boxes []geo.BoundingBox) *RTree {
	if len(boxes) == 0 {
		return &RTree{root: &rtreeNode{}}
	}

	sorted := append([]geo.BoundingBox(nil), boxes...)
	sort.Slice(sorted, func(i, j int) bool {
		ci := sorted[i].MinLon + sorted[i].MaxLon
		cj := sorted[j].MinLon + sorted[j].MaxLon
		if ci != cj {
			return ci < cj
		}
		return sorted[i].MinLat+sorted[i].MaxLat < sorted[j].MinLat+sorted[j].MaxLat
	})

	var level []*rtreeNode
	for i := 0; i < len(sorted); i += fanout {
		end := i + fanout
		if end > len(sorted) {
			end = len(sorted)
		}
		level = append(level, leafNode(sorted[i:end]))
	}

	for len(level) > 1 {
		var next []*rtreeNode
		for i := 0; i < len(level); i += fanout {
			end := i + fanout
			if end > len(level) {
				end = len(level)
			}
			next = append(next, internalNode(level[i:end]))
		}
		level = next
	}

	return &RTree{root: level[0]}
}

func leafNode(boxes []geo.BoundingBox) *rtreeNode {
	n := &rtreeNode{}
	for i, b := range boxes {
		if i == 0 {
			n.minLat, n.maxLat, n.minLon, n.maxLon = b.MinLat, b.MaxLat, b.MinLon, b.MaxLon
		} else {
			n.minLat = minF(n.minLat, b.MinLat)
			n.maxLat = maxF(n.maxLat, b.MaxLat)
			n.minLon = minF(n.minLon, b.MinLon)
			n.maxLon = maxF(n.maxLon, b.MaxLon)
		}
		n.boxIDs = append(n.boxIDs, b.ID)
	}
	return n
}

func internalNode(children []*rtreeNode) *rtreeNode {
	n := &rtreeNode{children: children}
	for i, c := range children {
		if i == 0 {
			n.minLat, n.maxLat, n.minLon, n.maxLon = c.minLat, c.maxLat, c.minLon, c.maxLon
		} else {
			n.minLat = minF(n.minLat, c.minLat)
			n.maxLat = maxF(n.maxLat, c.maxLat)
			n.minLon = minF(n.minLon, c.minLon)
			n.maxLon = maxF(n.maxLon, c.maxLon)
		}
	}
	return n
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Query returns every box id whose envelope overlaps the given rectangle.
func (t *RTree) Query(minLat, maxLat, minLon, maxLon float64) []int32 {
	var out []int32
	t.walk(t.root, minLat, maxLat, minLon, maxLon, &out)
	return out
}

func (t *RTree) walk(n *rtreeNode, minLat, maxLat, minLon, maxLon float64, out *[]int32) {
	if n == nil || !n.overlaps(minLat, maxLat, minLon, maxLon) {
		return
	}
	if n.boxIDs != nil {
		*out = append(*out, n.boxIDs...)
		return
	}
	for _, c := range n.children {
		t.walk(c, minLat, maxLat, minLon, maxLon, out)
	}
}
