package expander

import (
	"strings"

	postalexpand "github.com/openvenues/gopostal/expand"
	postal "github.com/openvenues/gopostal/parser"
)

// GopostalExpander is the production Expander, backed by libpostal via
// github.com/openvenues/gopostal. Parsing uses the parser subpackage the
// same way cmd/gopostal-real/main.go does
// (postal.ParseAddress -> []ParsedComponent{Label, Value}); Expand uses the
// sibling expand subpackage for libpostal's string-expansion variants, then
// layers the abbreviation table and house-number range expansion on top.
type GopostalExpander struct {
	abbrev *Abbreviations
}

// NewGopostalExpander builds a production Expander, optionally pointing
// libpostal at data directories other than its compiled-in default.
//
// globalDir, if non-empty, is passed to the expand subpackage's
// SetupDatadir so string-expansion variants are generated from that data
// directory; parserDir, if non-empty, is passed to the parser subpackage's
// SetupDatadir so address parsing uses that directory instead. Either may
// be left empty to fall back to the package's plain Setup(), which loads
// libpostal's own default data directory. Grounded on
// original_source/importer/src/normalization.cpp's normalize_libpostal,
// which chooses between libpostal_setup_parser() and
// libpostal_setup_parser_datadir(address_expansion_dir) the same way.
func NewGopostalExpander(globalDir, parserDir string) *GopostalExpander {
	if globalDir != "" {
		postalexpand.SetupDatadir(globalDir)
	} else {
		postalexpand.Setup()
	}
	if parserDir != "" {
		postal.SetupDatadir(parserDir)
	} else {
		postal.Setup()
	}
	return &GopostalExpander{abbrev: DefaultAbbreviations()}
}

// Parse implements Expander.
func (g *GopostalExpander) Parse(address string) (Result, error) {
	if strings.TrimSpace(address) == "" {
		return Result{}, nil
	}

	components := postal.ParseAddress(address)

	labels := make(map[string]string, len(components))
	for _, c := range components {
		labels[c.Label] = c.Value
	}

	variantLabels := make(map[string][]string, len(labels))
	for label, value := range labels {
		variants, err := g.Expand(value)
		if err != nil {
			return Result{}, err
		}
		if len(variants) == 0 {
			continue
		}
		variantLabels[label] = variants
	}

	parse := Parse{Labels: variantLabels}
	result := Result{
		Parses:     []Parse{parse},
		LabelsOnly: labels,
	}

	// Also offer the primitive fallback parse alongside the libpostal parse;
	// the caller decides whether to use it.
	if primitive := BuildPrimitiveParse(address); len(primitive.Labels) > 0 {
		result.Parses = append(result.Parses, primitive)
	}

	return result, nil
}

// Expand implements Expander. It normalizes s, applies abbreviation
// expansion, folds in libpostal's own expansion variants, and finally
// house-number range expansion, deduplicating and capping at MaxVariants.
func (g *GopostalExpander) Expand(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if IsSuspicious(s) {
		return nil, nil
	}

	seen := make(map[string]bool)
	var variants []string
	add := func(v string) {
		v = Normalize(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		variants = append(variants, v)
	}

	add(s)
	add(g.abbrev.Expand(Normalize(s)))

	for _, libpostalVariant := range postalexpand.ExpandAddress(s) {
		add(libpostalVariant)
		add(g.abbrev.Expand(Normalize(libpostalVariant)))
	}

	// House-number ranges expand against every variant collected so far, not
	// just the raw input, since abbreviation expansion can reorder tokens
	// around the range.
	base := append([]string(nil), variants...)
	for _, v := range base {
		for _, ranged := range ExpandHouseNumberRanges(v) {
			add(ranged)
		}
	}

	if len(variants) > MaxVariants {
		return nil, nil
	}
	return variants, nil
}

// NormalizePostalCode implements Expander.
func (g *GopostalExpander) NormalizePostalCode(s string) string {
	return NormalizePostalCode(s)
}
