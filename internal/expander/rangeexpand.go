package expander

import (
	"regexp"
	"strconv"
	"strings"
)

// maxRangeUnits bounds how many individual numbers a single "9-11"-style
// range expands into, mirroring internal/llpg/range_expander.go's 50-unit
// cap (there applied to a persisted expansion table; here applied in-memory
// as part of variant generation).
const maxRangeUnits = 50

var propertyRangePattern = regexp.MustCompile(`\b(\d+[A-Za-z]?)\s*-\s*(\d+[A-Za-z]?)\b`)
var leadingDigits = regexp.MustCompile(`^(\d+)`)

// ExpandHouseNumberRanges looks for a property-number range in s (e.g. "9-11
// high street" or "9a-9c high street") and returns one variant per expanded
// number, substituting the range with the individual number. If s has no
// such range, it returns nil. Adapted from
// internal/llpg/range_expander.go, generalized from a Postgres-backed batch
// job into a pure function usable inline during variant generation.
func ExpandHouseNumberRanges(s string) []string {
	match := propertyRangePattern.FindStringSubmatchIndex(s)
	if match == nil {
		return nil
	}

	whole := s[match[0]:match[1]]
	start := strings.TrimSpace(s[match[2]:match[3]])
	end := strings.TrimSpace(s[match[4]:match[5]])

	numbers, ok := expandRange(start, end)
	if !ok {
		return nil
	}

	variants := make([]string, 0, len(numbers))
	for _, n := range numbers {
		variants = append(variants, s[:match[0]]+n+s[match[1]:])
	}
	return variants
}

func expandRange(start, end string) ([]string, bool) {
	startNum := leadingDigits.FindString(start)
	endNum := leadingDigits.FindString(end)
	if startNum == "" || endNum == "" {
		return nil, false
	}

	startInt, err1 := strconv.Atoi(startNum)
	endInt, err2 := strconv.Atoi(endNum)
	if err1 != nil || err2 != nil {
		return nil, false
	}

	startSuffix := strings.TrimPrefix(start, startNum)
	endSuffix := strings.TrimPrefix(end, endNum)

	// Letter range: same number, single-letter suffixes (9a-9c).
	if startInt == endInt && len(startSuffix) == 1 && len(endSuffix) == 1 &&
		startSuffix != endSuffix && startSuffix[0] <= endSuffix[0] {
		var out []string
		for c := startSuffix[0]; c <= endSuffix[0]; c++ {
			out = append(out, startNum+string(c))
		}
		return out, true
	}

	if startInt >= endInt {
		return nil, false
	}
	if endInt-startInt > maxRangeUnits || startInt < 1 || endInt > 99999 {
		return nil, false
	}

	var out []string
	for i := startInt; i <= endInt; i++ {
		out = append(out, strconv.Itoa(i)+startSuffix)
	}
	return out, true
}
