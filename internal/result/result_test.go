package result_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/result"
	"github.com/ehdc/geonlp/internal/store"
)

func buildFixture(t *testing.T) (*store.Reader, int64) {
	t.Helper()
	ctx := context.Background()

	b := hierarchy.NewBuilder(nil, nil)
	rows := []hierarchy.RawRow{
		{PlaceID: 1, Class: "place", Type: "country", Name: map[string]string{"name": "Testland"}},
		{PlaceID: 2, ParentPlaceID: 1, Class: "place", Type: "city", Name: map[string]string{"name": "Springfield", "name:en": "Springfield EN"}},
		{PlaceID: 3, ParentPlaceID: 2, Class: "highway", Type: "residential", Name: map[string]string{"name": "Main Street"}, HouseNumber: "42", PostalCode: "AB1 2CD"},
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

	leaf, ok := b.Items()[3]
	if !ok {
		t.Fatalf("fixture item 3 missing from builder")
	}
	return r, leaf.MyIndex
}

func TestAssembleBuildsFullAddressLeafFirst(t *testing.T) {
	r, leafID := buildFixture(t)
	a := &result.Assembler{Store: r, Cfg: result.Config{LevelsInTitle: 2}}

	addr, ok := a.Assemble(context.Background(), leafID)
	if !ok {
		t.Fatalf("Assemble returned false for a known id")
	}
	if addr.FullAddress != "Main Street, 42, Springfield, Testland" {
		t.Errorf("FullAddress = %q, want %q", addr.FullAddress, "Main Street, 42, Springfield, Testland")
	}
	if addr.AdminLevels != 2 {
		t.Errorf("AdminLevels = %d, want 2", addr.AdminLevels)
	}
	if addr.PostalCode != "AB1 2CD" {
		t.Errorf("PostalCode = %q, want AB1 2CD", addr.PostalCode)
	}
	if len(addr.Types) != 1 || addr.Types[0] != "highway_residential" {
		t.Errorf("Types = %v, want [highway_residential]", addr.Types)
	}
}

func TestAssemblePrefersEnglishName(t *testing.T) {
	r, leafID := buildFixture(t)
	a := &result.Assembler{Store: r, Cfg: result.Config{PreferredResultLanguage: "en"}}

	addr, ok := a.Assemble(context.Background(), leafID)
	if !ok {
		t.Fatalf("Assemble returned false for a known id")
	}
	if !strings.Contains(addr.FullAddress, "Springfield EN") {
		t.Errorf("FullAddress = %q, want it to contain the English city name", addr.FullAddress)
	}
}

func TestAssembleUnknownIDReturnsFalse(t *testing.T) {
	r, _ := buildFixture(t)
	a := &result.Assembler{Store: r}

	_, ok := a.Assemble(context.Background(), 99999)
	if ok {
		t.Errorf("expected false for an unknown id")
	}
}

func TestFallbackTitleOrdersHierarchyLevelsLeafFirst(t *testing.T) {
	labels := map[string]string{
		expander.LabelCountry:    "testland",
		expander.LabelCity:       "springfield",
		expander.LabelHouse:      "42",
		expander.LabelPostalCode: "AB1 2CD",
	}
	got := result.FallbackTitle(labels)
	want := "42, springfield, testland"
	if got != want {
		t.Errorf("FallbackTitle = %q, want %q", got, want)
	}
}

func TestFallbackTitlePrimitiveLabelsDescendingN(t *testing.T) {
	labels := map[string]string{
		"h-0": "country",
		"h-1": "city",
		"h-2": "house",
	}
	got := result.FallbackTitle(labels)
	want := "house, city, country"
	if got != want {
		t.Errorf("FallbackTitle = %q, want %q", got, want)
	}
}

func TestFallbackTitleEmpty(t *testing.T) {
	if got := result.FallbackTitle(nil); got != "" {
		t.Errorf("FallbackTitle(nil) = %q, want empty", got)
	}
}
