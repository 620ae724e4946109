package store

import (
	"testing"

	"github.com/ehdc/geonlp/internal/geo"
)

func TestBoxAssignerGroupsByRoundedCell(t *testing.T) {
	a := NewBoxAssigner()
	id1 := a.Assign(51.1234, -1.1111)
	id2 := a.Assign(51.1240, -1.1115) // rounds to the same 0.01 cell
	id3 := a.Assign(52.0000, -1.1111) // different cell

	if id1 != id2 {
		t.Errorf("expected points in the same cell to share a box id, got %d and %d", id1, id2)
	}
	if id1 == id3 {
		t.Errorf("expected points in different cells to get different box ids")
	}

	boxes := a.Boxes()
	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes))
	}
}

func TestRTreeQueryFindsOverlappingBoxes(t *testing.T) {
	boxes := []geo.BoundingBox{
		{ID: 1, MinLat: 51.0, MaxLat: 51.1, MinLon: -1.2, MaxLon: -1.1},
		{ID: 2, MinLat: 52.0, MaxLat: 52.1, MinLon: -1.2, MaxLon: -1.1},
	}
	rt := BuildRTree(boxes)

	got := rt.Query(50.9, 51.2, -1.3, -1.0)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected only box 1 to overlap, got %v", got)
	}

	got = rt.Query(0, 100, -180, 180)
	if len(got) != 2 {
		t.Errorf("expected both boxes to overlap the whole world, got %v", got)
	}
}

func TestPostingsFinalizeSortsAndDedups(t *testing.T) {
	p := NewPostings()
	p.Add(1, 5)
	p.Add(1, 3)
	p.Add(1, 5)
	p.Add(1, 1)
	p.Finalize()

	got := p.Get(1)
	want := []int64{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}
