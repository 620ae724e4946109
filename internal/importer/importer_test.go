package importer_test

import (
	"context"
	"testing"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/importer"
)

// fakeSource is a deterministic importer.Source double, grounded on spec
// §9's "wire it as a trait/interface; unit tests can supply a deterministic
// stub" guidance (written for the Expander, applied the same way here).
type fakeSource struct {
	primary []hierarchy.RawRow
	linked  []hierarchy.RawRow
	byID    map[int64]hierarchy.RawRow
	country map[string]hierarchy.RawRow
}

func (f *fakeSource) PrimaryRows(ctx context.Context) ([]hierarchy.RawRow, error) { return f.primary, nil }
func (f *fakeSource) LinkedRows(ctx context.Context) ([]hierarchy.RawRow, error)  { return f.linked, nil }

func (f *fakeSource) FetchByIDs(ctx context.Context, ids []int64) ([]hierarchy.RawRow, error) {
	var out []hierarchy.RawRow
	for _, id := range ids {
		if row, ok := f.byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSource) CountryAdminNode(ctx context.Context, cc string) (hierarchy.RawRow, bool, error) {
	row, ok := f.country[cc]
	return row, ok, nil
}

func namedRow(id, parent int64, typ, name string) hierarchy.RawRow {
	return hierarchy.RawRow{PlaceID: id, ParentPlaceID: parent, Class: "place", Type: typ,
		Name: map[string]string{"name": name}}
}

func TestImporterRunResolvesMissingParentAndWrites(t *testing.T) {
	missingParent := namedRow(100, 0, "country", "Testland")
	src := &fakeSource{
		// 200's parent (100) is not itself in the primary stream; it must
		// be fetched via FetchByIDs.
		primary: []hierarchy.RawRow{namedRow(200, 100, "city", "Springfield")},
		byID:    map[int64]hierarchy.RawRow{100: missingParent},
	}

	im := &importer.Importer{
		Source:   src,
		Expander: expander.NewStub(),
	}

	dir := t.TempDir()
	result, err := im.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PlaceCount != 2 {
		t.Fatalf("expected 2 places written, got %d", result.PlaceCount)
	}
}

func TestImporterRunFailsWhenParentUnresolvable(t *testing.T) {
	src := &fakeSource{
		primary: []hierarchy.RawRow{namedRow(200, 999, "city", "Springfield")},
	}
	im := &importer.Importer{Source: src, Expander: expander.NewStub()}

	if _, err := im.Run(context.Background(), t.TempDir()); err == nil {
		t.Fatalf("expected fatal error when source lacks the missing parent")
	}
}

func TestImporterSetCountryReparentsOrphanRoots(t *testing.T) {
	countryNode := namedRow(1, 0, "country", "Testland")
	countryNode.CountryCode = "tl"

	orphan := namedRow(2, 0, "city", "Springfield")
	orphan.CountryCode = "tl"

	src := &fakeSource{
		primary: []hierarchy.RawRow{orphan},
		country: map[string]hierarchy.RawRow{"tl": countryNode},
	}
	im := &importer.Importer{Source: src, Expander: expander.NewStub()}

	result, err := im.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PlaceCount != 2 {
		t.Fatalf("expected country node + orphan city, got %d places", result.PlaceCount)
	}
}
