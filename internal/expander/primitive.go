package expander

import (
	"sort"
	"strconv"
	"strings"
)

// BuildPrimitiveParse is the expander's fallback "primitive" parse (spec
// §4.1): the input is split on commas, trimmed, and the i-th segment from
// the end is assigned synthetic label h-i. A segment beginning with
// "post:" is lifted to the postal_code label instead. Grounded on
// original_source/src/postal.cpp's comma-split fallback.
func BuildPrimitiveParse(address string) Parse {
	segments := strings.Split(address, ",")
	labels := make(map[string][]string)

	n := len(segments)
	for i, raw := range segments {
		seg := strings.TrimSpace(raw)
		if seg == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(seg, "post:"); ok {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				labels[LabelPostalCode] = append(labels[LabelPostalCode], rest)
			}
			continue
		}

		// i-th segment from the end.
		fromEnd := n - 1 - i
		label := "h-" + strconv.Itoa(fromEnd)
		labels[label] = append(labels[label], seg)
	}

	return Parse{Labels: labels}
}

// IsPrimitive reports whether a parse is a primitive parse, i.e. every
// non-postal_code label follows the synthetic "h-N" naming scheme.
func IsPrimitive(p Parse) bool {
	found := false
	for label := range p.Labels {
		if label == LabelPostalCode {
			continue
		}
		if !strings.HasPrefix(label, "h-") {
			return false
		}
		found = true
	}
	return found
}

// ProjectPrimitiveLevels returns the h-N levels of a primitive parse in
// natural (ascending index) order: a primitive parse has no meaningful
// label ordering of its own, so it is used as-is in natural order.
func ProjectPrimitiveLevels(p Parse) [][]string {
	type indexed struct {
		idx     int
		variant []string
	}
	var entries []indexed
	for label, variants := range p.Labels {
		if label == LabelPostalCode {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(label, "h-"))
		if err != nil {
			continue
		}
		entries = append(entries, indexed{idx: n, variant: variants})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	levels := make([][]string, len(entries))
	for i, e := range entries {
		levels[i] = e.variant
	}
	return levels
}
