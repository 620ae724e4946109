package search_test

import (
	"context"
	"testing"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/search"
	"github.com/ehdc/geonlp/internal/store"
)

// buildFixture writes a tiny three-level hierarchy (country > city > road) to
// a temp dir and loads it back through the real Writer/Reader pair, so the
// search tests exercise the actual trie/postings artifacts rather than a
// mock.
func buildFixture(t *testing.T) *store.Reader {
	t.Helper()
	ctx := context.Background()

	b := hierarchy.NewBuilder(nil, nil)
	rows := []hierarchy.RawRow{
		{PlaceID: 1, ParentPlaceID: 0, Class: "place", Type: "country", Name: map[string]string{"name": "Testland"}},
		{PlaceID: 2, ParentPlaceID: 1, Class: "place", Type: "city", Name: map[string]string{"name": "Springfield"}},
		{PlaceID: 3, ParentPlaceID: 2, Class: "highway", Type: "residential", Name: map[string]string{"name": "Main Street"}},
		{PlaceID: 4, ParentPlaceID: 2, Class: "highway", Type: "residential", Name: map[string]string{"name": "Other Street"}},
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

func TestSearchResolvesFullHierarchy(t *testing.T) {
	r := buildFixture(t)
	s := &search.Searcher{Store: r, Cfg: search.Config{MaxResults: 10, MaxIntermediateOffset: 10}}

	parses := []expander.Parse{{Labels: map[string][]string{
		expander.LabelCountry: {"testland"},
		expander.LabelCity:    {"springfield"},
		expander.LabelRoad:    {"main street"},
	}}}

	got, err := s.Search(context.Background(), parses, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one fully-resolved candidate, got %d: %v", len(got), got)
	}
	if got[0].LevelsResolved != 3 {
		t.Errorf("LevelsResolved = %d, want 3", got[0].LevelsResolved)
	}
}

func TestSearchPartialMatchFallsBackToBestLevel(t *testing.T) {
	r := buildFixture(t)
	s := &search.Searcher{Store: r, Cfg: search.Config{MaxResults: 10, MaxIntermediateOffset: 10}}

	parses := []expander.Parse{{Labels: map[string][]string{
		expander.LabelCountry: {"testland"},
		expander.LabelCity:    {"springfield"},
		expander.LabelRoad:    {"nonexistent avenue"},
	}}}

	got, err := s.Search(context.Background(), parses, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, c := range got {
		if c.LevelsResolved != 2 {
			t.Errorf("candidate %+v: expected fallback to 2 resolved levels (country+city)", c)
		}
	}
	if len(got) == 0 {
		t.Fatalf("expected at least one city-level fallback candidate")
	}
}

func TestSearchUnmatchedCountryYieldsNoResults(t *testing.T) {
	r := buildFixture(t)
	s := &search.Searcher{Store: r, Cfg: search.Config{MaxResults: 10, MaxIntermediateOffset: 10}}

	parses := []expander.Parse{{Labels: map[string][]string{
		expander.LabelCountry: {"nowhereland"},
	}}}

	got, err := s.Search(context.Background(), parses, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results for an unmatched country, got %v", got)
	}
}

func TestProjectParsePrimitive(t *testing.T) {
	p := expander.BuildPrimitiveParse("main street springfield")
	levels := search.ProjectParse(p)
	if len(levels) == 0 {
		t.Fatalf("expected primitive projection to yield at least one level")
	}
}
