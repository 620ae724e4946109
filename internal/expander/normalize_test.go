package expander

import "testing"

func TestNormalizePostalCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"gu34  1aa", "GU34 1AA"},
		{"GU341AA", "GU341AA"},
		{"  sw1a 1aa  ", "SW1A 1AA"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizePostalCode(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePostalCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePostalCodeIdempotent(t *testing.T) {
	inputs := []string{"gu34 1aa", "SW1A  1AA ", "n1 9gu"}
	for _, in := range inputs {
		once := NormalizePostalCode(in)
		twice := NormalizePostalCode(once)
		if once != twice {
			t.Errorf("NormalizePostalCode not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12 High Street, Alton", "12 high street alton"},
		{"Café de Paris", "cafe de paris"},
		{"  multiple   spaces  ", "multiple spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSuspicious(t *testing.T) {
	longDigits := ""
	for i := 0; i < 250; i++ {
		longDigits += "1 "
	}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"normal name", "High Street", false},
		{"too many commas", "a,b,c,d,e,f,g,h,i,j,k,l", true},
		{"long and mostly digits", longDigits, true},
		{"long but mostly letters", stringRepeat("abcdefghij ", 25), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSuspicious(tt.input); got != tt.want {
				t.Errorf("IsSuspicious(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func stringRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestExpandHouseNumberRanges(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"9-11 high street", []string{"9 high street", "10 high street", "11 high street"}},
		{"9a-9c high street", []string{"9a high street", "9b high street", "9c high street"}},
		{"high street", nil},
		{"11-9 high street", nil}, // invalid: start >= end
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExpandHouseNumberRanges(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("ExpandHouseNumberRanges(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExpandHouseNumberRanges(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildPrimitiveParse(t *testing.T) {
	p := BuildPrimitiveParse("12 High Street, Alton, post:GU34 1AA")
	if !IsPrimitive(p) {
		t.Fatalf("expected primitive parse")
	}
	if got := p.Labels[LabelPostalCode]; len(got) != 1 || got[0] != "GU34 1AA" {
		t.Errorf("postal_code label = %v", got)
	}
	levels := ProjectPrimitiveLevels(p)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d: %v", len(levels), levels)
	}
	// h-1 (Alton, the broader segment) comes before h-2 (12 High Street).
	if levels[0][0] != "Alton" || levels[1][0] != "12 High Street" {
		t.Errorf("unexpected level order: %v", levels)
	}
}
