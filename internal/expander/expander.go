// Package expander implements the token-expansion contract that the Search
// Core and the Index Writer both depend on. The interface is the external
// collaborator boundary: rinigus/geocoder-nlp treats an address parser
// (libpostal) as a black box behind Postal::parse/Postal::expand
// (original_source/src/postal.h); this package plays the same role, with a
// real implementation backed by github.com/openvenues/gopostal/parser (see
// cmd/gopostal-real/main.go) and a stub for deterministic unit tests.
package expander

// Parse is one candidate segmentation of an address: a label (country,
// state, city, suburb, road, house_number, house, postal_code, ...) mapped
// to a non-empty list of normalized textual variants.
type Parse struct {
	Labels map[string][]string
}

// Result is the full output of parsing one address string.
type Result struct {
	// Parses holds every candidate segmentation.
	Parses []Parse
	// LabelsOnly carries the best single segmentation before expansion.
	LabelsOnly map[string]string
}

// Expander is the external capability the Search Core and Index Writer
// require. Implementations must reproduce the normalization rules:
// lowercase, Unicode-fold, punctuation-strip, language-specific abbreviation
// expansion.
type Expander interface {
	// Parse maps a raw address string to a set of parses.
	Parse(address string) (Result, error)
	// Expand produces the normalized variant set for a single string. Used
	// by the index builder and by nearby-search name matching.
	Expand(s string) ([]string, error)
	// NormalizePostalCode uppercases a postal code, collapses internal
	// spaces, and strips a trailing space. Idempotent.
	NormalizePostalCode(s string) string
}

// Labels recognized by the hierarchy projection, in order.
const (
	LabelCountry       = "country"
	LabelCountryRegion = "country_region"
	LabelState         = "state"
	LabelStateDistrict = "state_district"
	LabelIsland        = "island"
	LabelCity          = "city"
	LabelCityDistrict  = "city_district"
	LabelSuburb        = "suburb"
	LabelRoad          = "road"
	LabelHouseNumber   = "house_number"
	LabelCategory      = "category"
	LabelHouse         = "house"
	LabelPostalCode    = "postal_code"
)

// HierarchyLevels is the ordered label projection used to turn a Parse into
// the level-list the Search Core recurses over. Postal code is deliberately
// excluded: it is applied as a filter on candidates, not a level.
var HierarchyLevels = []string{
	LabelCountry, LabelCountryRegion, LabelState, LabelStateDistrict, LabelIsland,
	LabelCity, LabelCityDistrict, LabelSuburb, LabelRoad, LabelHouseNumber,
	LabelCategory, LabelHouse,
}

// ProjectLevels converts one parse into the ordered level list the Search
// Core consumes, skipping labels that are missing from the parse. A
// "primitive" parse (labels h-0, h-1, ...) is returned as-is in natural
// order by the caller instead of going through this projection; see
// primitive.go.
func ProjectLevels(p Parse) [][]string {
	levels := make([][]string, 0, len(HierarchyLevels))
	for _, label := range HierarchyLevels {
		if variants, ok := p.Labels[label]; ok && len(variants) > 0 {
			levels = append(levels, variants)
		}
	}
	return levels
}
