// Package result implements the Result Assembler: given a resolved place
// id, it walks its parent chain to build a full address and a title, picks
// a display name per the language-preference rule, and fetches the
// remaining display fields from the primary row. Grounded on
// original_source/src/geocoder.cpp's get_name (recursive parent walk
// building name/title strings) and get_type (type-name collection),
// adapted to Go's single-type-per-row schema; the general shape of
// assembling a ranked display record from a relational row is also
// informed by other_examples' keonik-geocoding-api address_service.go.
package result

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/geo"
	"github.com/ehdc/geonlp/internal/store"
)

// Address is one fully assembled search result, ready to hand back to a
// caller.
type Address struct {
	ID int64

	FullAddress string // comma-separated names, leaf first
	Title       string // top LevelsInTitle levels of FullAddress, leaf first
	Name        string // the leaf's own display name, language-preference applied

	// Types holds every type name for the place. The on-disk schema gives a
	// place exactly one type_id, so this is always a single element; the
	// slice shape is kept because older schemas associate more than one
	// type with a place, and a future schema revision should be able to
	// populate more entries here without changing this type's shape.
	Types []string

	Latitude, Longitude float64
	PostalCode          string
	Phone               string
	Website             string

	AdminLevels int     // depth of the parent chain
	SearchRank  float64 // carried from the leaf's own row; lower is better
}

// Config holds the Result Assembler's tunables.
type Config struct {
	LevelsInTitle           int
	PreferredResultLanguage string
}

// Assembler builds Address values from a loaded Reader.
type Assembler struct {
	Store *store.Reader
	Cfg   Config
}

// Assemble builds the full Address for a candidate id. It returns false if
// the id isn't present in the store: a missing parent during title assembly
// stops the walk rather than erroring, and the same degrade-gracefully rule
// applies to a missing leaf, just with an empty result instead of a partial
// one.
func (a *Assembler) Assemble(ctx context.Context, id int64) (Address, bool) {
	leaf, ok := a.Store.GetPlace(ctx, id)
	if !ok {
		return Address{}, false
	}

	names := a.walkNames(ctx, leaf)

	title := names
	if a.Cfg.LevelsInTitle > 0 && len(title) > a.Cfg.LevelsInTitle {
		title = title[:a.Cfg.LevelsInTitle]
	}

	typeName, _ := a.Store.GetType(ctx, leaf.TypeID)
	var types []string
	if typeName != "" {
		types = []string{typeName}
	}

	return Address{
		ID:          leaf.ID,
		FullAddress: strings.Join(names, ", "),
		Title:       strings.Join(title, ", "),
		Name:        displayName(*leaf, a.Cfg.PreferredResultLanguage),
		Types:       types,
		Latitude:    leaf.Latitude,
		Longitude:   leaf.Longitude,
		PostalCode:  leaf.PostalCode,
		Phone:       leaf.Phone,
		Website:     leaf.Website,
		AdminLevels: len(names) - 1,
		SearchRank:  leaf.SearchRank,
	}, true
}

// MatchesPostalCode applies the postal-code filter: a candidate whose
// stored postal_code (after normalization) differs from the parse's postal
// code is rejected during result assembly. An empty wantPostalCode means no
// filter was requested, so every candidate passes.
func MatchesPostalCode(addr Address, wantPostalCode string) bool {
	if wantPostalCode == "" {
		return true
	}
	return addr.PostalCode == wantPostalCode
}

// Rank applies the final tie-break — sort by (search_rank asc,
// address_length asc, address asc) — and truncates to maxResults (0 means
// unbounded, per the Open Question resolution recorded in DESIGN.md).
func Rank(addrs []Address, maxResults int) []Address {
	sort.SliceStable(addrs, func(i, j int) bool {
		a, b := addrs[i], addrs[j]
		if a.SearchRank != b.SearchRank {
			return a.SearchRank < b.SearchRank
		}
		if len(a.FullAddress) != len(b.FullAddress) {
			return len(a.FullAddress) < len(b.FullAddress)
		}
		return a.FullAddress < b.FullAddress
	})
	if maxResults > 0 && len(addrs) > maxResults {
		addrs = addrs[:maxResults]
	}
	return addrs
}

// walkNames follows Parent links from leaf to the root, collecting each
// node's display name in leaf-first order. A missing parent stops the walk
// rather than erroring.
func (a *Assembler) walkNames(ctx context.Context, leaf *geo.Place) []string {
	names := []string{displayName(*leaf, a.Cfg.PreferredResultLanguage)}

	current := leaf
	for current.Parent != 0 {
		parent, ok := a.Store.GetPlace(ctx, current.Parent)
		if !ok {
			break
		}
		names = append(names, displayName(*parent, a.Cfg.PreferredResultLanguage))
		current = parent
	}
	return names
}

// FallbackTitle builds a display string from an Expander's labels_only
// segmentation — the best single segmentation found before expansion — when
// the Search Core found no candidate to assemble a real Address from.
// Grounded on original_source/src/geocoder.cpp's use of the best/primitive
// segmentation for display when expansion yields nothing better. Levels are
// joined leaf-first, the reverse of the order
// HierarchyLevels projects them, plus any synthetic "h-N" primitive labels
// in descending N order, skipping the postal_code label (it is a filter,
// never a display level).
func FallbackTitle(labelsOnly map[string]string) string {
	if len(labelsOnly) == 0 {
		return ""
	}

	ordered := append([]string(nil), expander.HierarchyLevels...)
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	var parts []string
	seen := make(map[string]bool)
	for _, label := range ordered {
		if v, ok := labelsOnly[label]; ok && v != "" {
			parts = append(parts, v)
			seen[label] = true
		}
	}

	type primitiveLabel struct {
		n     int
		label string
	}
	var primitiveLabels []primitiveLabel
	for label := range labelsOnly {
		if label == expander.LabelPostalCode || seen[label] || !strings.HasPrefix(label, "h-") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(label, "h-"))
		if err != nil {
			continue
		}
		primitiveLabels = append(primitiveLabels, primitiveLabel{n: n, label: label})
	}
	// h-N numbers the i-th segment from the end, so the leaf-first (most
	// specific first) display order is descending N.
	sort.Slice(primitiveLabels, func(i, j int) bool { return primitiveLabels[i].n > primitiveLabels[j].n })
	for _, pl := range primitiveLabels {
		parts = append(parts, labelsOnly[pl.label])
	}

	return strings.Join(parts, ", ")
}

// displayName applies the name-selection rule: prefer the English name when
// asked for and present; otherwise fall back to "name_extra, name" when
// they differ, else just name.
func displayName(p geo.Place, preferredLang string) string {
	if preferredLang == "en" && p.NameEn != "" {
		return p.NameEn
	}
	if p.NameExtra != "" && p.NameExtra != p.Name {
		return p.NameExtra + ", " + p.Name
	}
	return p.Name
}
