package nearby_test

import (
	"context"
	"testing"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/nearby"
	"github.com/ehdc/geonlp/internal/store"
)

func buildFixture(t *testing.T) *store.Reader {
	t.Helper()
	ctx := context.Background()

	b := hierarchy.NewBuilder(nil, nil)
	rows := []hierarchy.RawRow{
		{PlaceID: 1, Class: "amenity", Type: "cafe", Latitude: 48.8566, Longitude: 2.3522, Name: map[string]string{"name": "Cafe Central"}},
		{PlaceID: 2, Class: "amenity", Type: "cafe", Latitude: 48.9000, Longitude: 2.4000, Name: map[string]string{"name": "Cafe Far"}},
		{PlaceID: 3, Class: "shop", Type: "bakery", Latitude: 48.8570, Longitude: 2.3530, Name: map[string]string{"name": "Corner Bakery"}},
	}
	for _, r := range rows {
		if err := b.AddItem(r); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}
	b.Cleanup()
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	w := &store.Writer{Expander: expander.NewStub()}
	dir := t.TempDir()
	if _, err := w.Write(ctx, dir, b, ""); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := store.Load(ctx, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { r.Drop() })
	return r
}

func TestPointFiltersByRadiusAndType(t *testing.T) {
	r := buildFixture(t)
	s := &nearby.Searcher{Store: r, Expander: expander.NewStub(), Cfg: nearby.Config{MaxResults: 10}}

	results, err := s.Point(context.Background(), 48.8566, 2.3522, 500, nil, []string{"amenity_cafe"})
	if err != nil {
		t.Fatalf("Point: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one cafe within 500m, got %d: %+v", len(results), results)
	}
	if results[0].Place.Name != "Cafe Central" {
		t.Errorf("expected Cafe Central, got %q", results[0].Place.Name)
	}
	if results[0].Distance > 500 {
		t.Errorf("distance %v exceeds radius", results[0].Distance)
	}
}

func TestPointWithoutTypeFilterReturnsAllNearby(t *testing.T) {
	r := buildFixture(t)
	s := &nearby.Searcher{Store: r, Expander: expander.NewStub(), Cfg: nearby.Config{MaxResults: 10}}

	results, err := s.Point(context.Background(), 48.8566, 2.3522, 500, nil, nil)
	if err != nil {
		t.Fatalf("Point: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected cafe + bakery within 500m, got %d: %+v", len(results), results)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Distance > results[i].Distance {
			t.Errorf("results not sorted ascending by distance: %+v", results)
		}
	}
}

func TestPointExcludesFarPlace(t *testing.T) {
	r := buildFixture(t)
	s := &nearby.Searcher{Store: r, Expander: expander.NewStub(), Cfg: nearby.Config{MaxResults: 10}}

	results, err := s.Point(context.Background(), 48.8566, 2.3522, 500, nil, []string{"amenity_cafe"})
	if err != nil {
		t.Fatalf("Point: %v", err)
	}
	for _, res := range results {
		if res.Place.Name == "Cafe Far" {
			t.Errorf("Cafe Far should be excluded by the radius filter")
		}
	}
}

func TestCorridorAccumulatesRouteDistance(t *testing.T) {
	r := buildFixture(t)
	s := &nearby.Searcher{Store: r, Expander: expander.NewStub(), Cfg: nearby.Config{MaxResults: 10}}

	lats := []float64{48.8566, 48.8570, 48.9000}
	lons := []float64{2.3522, 2.3530, 2.4000}

	results, err := s.Corridor(context.Background(), lats, lons, 200, 0, nil, nil)
	if err != nil {
		t.Fatalf("Corridor: %v", err)
	}
	// Cafe Far sits at the end of the second leg (about 5.9 km long), so its
	// along-route distance includes both legs, far beyond the 200 m radius.
	var far *nearby.Result
	for i := range results {
		if i > 0 && results[i-1].Distance > results[i].Distance {
			t.Errorf("results not sorted ascending by route distance: %+v", results)
		}
		if results[i].Place.Name == "Cafe Far" {
			far = &results[i]
		}
	}
	if far == nil {
		t.Fatalf("Cafe Far, at the route's last point, missing from corridor results: %+v", results)
	}
	if far.Distance < 5000 {
		t.Errorf("Cafe Far distance = %v, want the accumulated route distance (> 5000 m)", far.Distance)
	}
}
