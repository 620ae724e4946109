package expander

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxVariants is the per-name expansion cap: a place whose expansion
// produces more than this many variants is dropped from the index.
const MaxVariants = 85

// MaxNameLength and MaxDigitWhitespaceFraction drive the suspicious-name
// check: a name longer than MaxNameLength with more than 50%
// digit+whitespace content is dropped. Grounded on
// original_source/importer/src/normalization.cpp's LENGTH_STARTING_SUSP_CHECK
// gate.
const (
	MaxNameLength              = 200
	MaxDigitWhitespaceFraction = 0.5
	MaxCommas                  = 10
)

// diacriticFold maps common Latin diacritics to their plain ASCII form.
// Nothing in the example pack pulls in golang.org/x/text, so this is a
// deliberately small hand-rolled table rather than a full Unicode
// normalization pass.
var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ñ': 'n', 'ç': 'c', 'ý': 'y', 'ÿ': 'y',
	'ß': 's',
}

var rePunct = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
var reSpaces = regexp.MustCompile(`\s+`)

// Normalize lowercases, Unicode-folds, and strips punctuation from s,
// collapsing runs of whitespace into single spaces. This is the
// lowercase/fold/strip half of the normalization contract; abbreviation
// expansion is applied separately by Abbreviations.
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := diacriticFold[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = rePunct.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsSuspicious reports whether a raw name should be dropped from the index
// before expansion: too long with too much digit/whitespace content, or too
// many commas.
func IsSuspicious(name string) bool {
	if strings.Count(name, ",") > MaxCommas {
		return true
	}
	if len(name) <= MaxNameLength {
		return false
	}
	digitsSpace := 0
	for _, r := range name {
		if unicode.IsDigit(r) || unicode.IsSpace(r) {
			digitsSpace++
		}
	}
	return float64(digitsSpace)/float64(len([]rune(name))) > MaxDigitWhitespaceFraction
}

// Abbreviations holds the language-specific abbreviation expansion rules
// that Expand applies before variant generation. Adapted from
// internal/normalize.AbbrevRules (street-type abbreviations), generalized
// from UK-only defaults into a configurable rule table so other locales can
// supply their own.
type Abbreviations struct {
	rules []abbrevRule
}

type abbrevRule struct {
	pattern *regexp.Regexp
	replace string
}

// DefaultAbbreviations returns the built-in English/UK street-type and
// compass-point abbreviation table, the same rule set used in
// internal/normalize/address.go.
func DefaultAbbreviations() *Abbreviations {
	raw := map[string]string{
		`\brd\b`:     "road",
		`\bst\b`:     "street",
		`\bave\b`:    "avenue",
		`\bgdns\b`:   "gardens",
		`\bct\b`:     "court",
		`\bdr\b`:     "drive",
		`\bln\b`:     "lane",
		`\bpl\b`:     "place",
		`\bsq\b`:     "square",
		`\bcres\b`:   "crescent",
		`\bter\b`:    "terrace",
		`\bcl\b`:     "close",
		`\bpk\b`:     "park",
		`\bgrn\b`:    "green",
		`\bwy\b`:     "way",
		`\bapt\b`:    "apartment",
		`\bflt\b`:    "flat",
		`\bbldg\b`:   "building",
		`\bhse\b`:    "house",
		`\bctg\b`:    "cottage",
		`\bfm\b`:     "farm",
		`\bmnr\b`:    "manor",
		`\bvil\b`:    "villa",
		`\best\b`:    "estate",
		`\bindl\b`:   "industrial",
		`\bctr\b`:    "centre",
		`\bnth\b`:    "north",
		`\bsth\b`:    "south",
		`\bwst\b`:    "west",
		`\bsaint\b`:  "st",
	}
	a := &Abbreviations{}
	for pattern, repl := range raw {
		a.rules = append(a.rules, abbrevRule{pattern: regexp.MustCompile(pattern), replace: repl})
	}
	return a
}

// Expand applies every abbreviation rule in turn, returning the rewritten
// text. Each call operates on its own copy of text rather than mutating any
// shared state on a.
func (a *Abbreviations) Expand(text string) string {
	result := text
	for _, rule := range a.rules {
		result = rule.pattern.ReplaceAllString(result, rule.replace)
	}
	return result
}

var rePostcode = regexp.MustCompile(`(?i)\b([A-Za-z]{1,2}\d[\dA-Za-z]?\s*\d[A-Za-z]{2})\b`)
var reSpaceRun = regexp.MustCompile(` {2,}`)

// NormalizePostalCode uppercases a postal code, collapses internal spaces,
// and strips any trailing space. It is idempotent:
// normalize(normalize(s)) == normalize(s).
func NormalizePostalCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = reSpaceRun.ReplaceAllString(s, " ")
	return strings.TrimRight(s, " ")
}

// ExtractPostcode finds and removes a UK-shaped postcode from s, returning
// the normalized postcode and the remaining text with the match blanked out.
func ExtractPostcode(s string) (postcode, rest string) {
	m := rePostcode.FindString(s)
	if m == "" {
		return "", s
	}
	return NormalizePostalCode(m), rePostcode.ReplaceAllString(s, " ")
}
