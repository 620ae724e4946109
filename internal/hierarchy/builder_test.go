package hierarchy

import "testing"

func row(id, parent int64, name, typ string) RawRow {
	return RawRow{
		PlaceID:       id,
		ParentPlaceID: parent,
		Class:         "place",
		Type:          typ,
		Name:          map[string]string{"name": name},
	}
}

func TestBuilderBasicHierarchy(t *testing.T) {
	b := NewBuilder(nil, nil)

	rows := []RawRow{
		row(1, 0, "England", "country"),
		row(2, 1, "Hampshire", "county"),
		row(3, 2, "Alton", "town"),
		row(4, 3, "High Street", "road"),
	}
	for _, r := range rows {
		if err := b.AddItem(r); err != nil {
			t.Fatalf("AddItem(%d): %v", r.PlaceID, err)
		}
	}

	b.Cleanup()
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := b.CheckIndexing(); err != nil {
		t.Fatalf("CheckIndexing: %v", err)
	}

	roots := b.RootItems()
	if len(roots) != 1 || roots[0] != 1 {
		t.Fatalf("expected single root item 1, got %v", roots)
	}

	england := b.Items()[1]
	alton := b.Items()[3]
	if !(england.MyIndex < alton.MyIndex && alton.MyIndex <= england.LastChildIndex) {
		t.Errorf("expected England's interval to contain Alton: england=[%d,%d] alton=%d",
			england.MyIndex, england.LastChildIndex, alton.MyIndex)
	}
}

func TestBuilderCleanupDropsUnnamedNonPriority(t *testing.T) {
	b := NewBuilder([]string{"country"}, nil)

	must(t, b.AddItem(row(1, 0, "England", "country")))
	// unnamed administrative node with no priority type: dropped, child promoted.
	must(t, b.AddItem(RawRow{PlaceID: 2, ParentPlaceID: 1, Class: "boundary", Type: "administrative"}))
	must(t, b.AddItem(row(3, 2, "Alton", "town")))

	b.Cleanup()
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	england := b.Items()[1]
	if len(england.Children) != 1 || england.Children[0] != 3 {
		t.Fatalf("expected unnamed node 2 dropped and Alton promoted, got children %v", england.Children)
	}
}

func TestBuilderSkipType(t *testing.T) {
	b := NewBuilder(nil, []string{"place_postal_code"})

	must(t, b.AddItem(row(1, 0, "England", "country")))
	must(t, b.AddItem(row(2, 1, "GU34", "postal_code")))

	b.Cleanup()
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	england := b.Items()[1]
	if len(england.Children) != 0 {
		t.Fatalf("expected postal_code child dropped entirely, got %v", england.Children)
	}
}

func TestBuilderDuplicateIDRejected(t *testing.T) {
	b := NewBuilder(nil, nil)
	must(t, b.AddItem(row(1, 0, "England", "country")))
	if err := b.AddItem(row(1, 0, "England", "country")); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
}

func TestBuilderAddLinkedItemMergesMissingKeysOnly(t *testing.T) {
	b := NewBuilder(nil, nil)
	must(t, b.AddItem(row(1, 0, "Alton", "town")))

	linked := RawRow{
		PlaceID:       2,
		LinkedPlaceID: 1,
		Class:         "place",
		Type:          "town",
		Name:          map[string]string{"name": "Ignored", "name:en": "Alton"},
	}
	if ok := b.AddLinkedItem(linked); !ok {
		t.Fatalf("expected linkage to succeed")
	}

	target := b.Items()[1]
	if target.DataName["name"] != "Alton" {
		t.Errorf("existing key should not be overwritten, got %q", target.DataName["name"])
	}
	if target.DataName["name:en"] != "Alton" {
		t.Errorf("missing key should be filled in, got %q", target.DataName["name:en"])
	}
}

func TestBuilderAddLinkedItemMissingTargetReportsFalse(t *testing.T) {
	b := NewBuilder(nil, nil)
	linked := RawRow{PlaceID: 2, LinkedPlaceID: 99}
	if ok := b.AddLinkedItem(linked); ok {
		t.Fatalf("expected linkage to missing target to report false")
	}
}

func TestBuilderSetCountryReparents(t *testing.T) {
	b := NewBuilder(nil, nil)
	must(t, b.AddItem(row(1, 0, "England", "country")))
	b.Items()[1].Country = "gb"
	must(t, b.AddItem(RawRow{PlaceID: 2, ParentPlaceID: 0, Class: "place", Type: "town", CountryCode: "gb",
		Name: map[string]string{"name": "Alton"}}))

	if err := b.SetCountry("gb", 1); err != nil {
		t.Fatalf("SetCountry: %v", err)
	}

	b.Cleanup()
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	roots := b.RootItems()
	if len(roots) != 1 || roots[0] != 1 {
		t.Fatalf("expected single root after relocation, got %v", roots)
	}
	england := b.Items()[1]
	if len(england.Children) != 1 || england.Children[0] != 2 {
		t.Fatalf("expected Alton relocated under England, got %v", england.Children)
	}
}

func TestBuilderCollapsesDuplicateSiblings(t *testing.T) {
	b := NewBuilder(nil, nil)
	must(t, b.AddItem(row(1, 0, "England", "country")))

	dup1 := RawRow{PlaceID: 2, ParentPlaceID: 1, Class: "building", Type: "house",
		PostalCode: "12345", Name: map[string]string{"name": "Main"}}
	dup2 := RawRow{PlaceID: 3, ParentPlaceID: 1, Class: "building", Type: "house",
		PostalCode: "12345", Name: map[string]string{"name": "Main"}}
	must(t, b.AddItem(dup1))
	must(t, b.AddItem(dup2))
	// give the second duplicate a child so the merge must fold it onto the survivor.
	must(t, b.AddItem(row(4, 3, "Annex", "building_annex")))

	b.Cleanup()
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	england := b.Items()[1]
	if len(england.Children) != 1 || england.Children[0] != 2 {
		t.Fatalf("expected one surviving duplicate (id 2), got children %v", england.Children)
	}
	if !b.Items()[3].Dropped {
		t.Fatalf("expected duplicate id 3 to be flagged dropped")
	}
	survivor := b.Items()[2]
	if len(survivor.Children) != 1 || survivor.Children[0] != 4 {
		t.Fatalf("expected id 3's child folded onto survivor, got children %v", survivor.Children)
	}
}

func TestItemSearchRankFallsBackToRankSearch(t *testing.T) {
	withImportance := &Item{Importance: 0.8}
	if got := withImportance.SearchRank(); got != 200 {
		t.Errorf("SearchRank with importance 0.8 = %v, want 200", got)
	}

	withoutImportance := &Item{RankSearch: 12}
	if got := withoutImportance.SearchRank(); got != 12 {
		t.Errorf("SearchRank fallback = %v, want 12", got)
	}
}

func TestGeocoderType(t *testing.T) {
	tests := []struct{ class, typ, want string }{
		{"place", "city", "place_city"},
		{"place", "yes", "place"},
		{"highway", "", "highway"},
	}
	for _, tt := range tests {
		if got := GeocoderType(tt.class, tt.typ); got != tt.want {
			t.Errorf("GeocoderType(%q, %q) = %q, want %q", tt.class, tt.typ, got, tt.want)
		}
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
