package expander

// Stub is a deterministic Expander for unit tests. It performs no real
// linguistic expansion:
// Expand just normalizes and optionally returns caller-supplied extra
// variants for a given input, and Parse returns caller-supplied parses
// keyed by the raw address.
type Stub struct {
	// Parses maps a raw address string to the Result Parse should return
	// for it. A missing entry yields an empty Result.
	Parses map[string]Result
	// ExtraVariants maps a normalized string to additional variants Expand
	// should append beyond the normalized input itself.
	ExtraVariants map[string][]string
}

// NewStub builds an empty deterministic stub.
func NewStub() *Stub {
	return &Stub{
		Parses:        make(map[string]Result),
		ExtraVariants: make(map[string][]string),
	}
}

// Parse implements Expander.
func (s *Stub) Parse(address string) (Result, error) {
	return s.Parses[address], nil
}

// Expand implements Expander.
func (s *Stub) Expand(v string) ([]string, error) {
	norm := Normalize(v)
	if norm == "" {
		return nil, nil
	}
	variants := []string{norm}
	variants = append(variants, s.ExtraVariants[norm]...)
	if len(variants) > MaxVariants {
		return nil, nil
	}
	return variants, nil
}

// NormalizePostalCode implements Expander.
func (s *Stub) NormalizePostalCode(v string) string {
	return NormalizePostalCode(v)
}

var _ Expander = (*Stub)(nil)
var _ Expander = (*GopostalExpander)(nil)
