// Package search implements the Search Core: a recursive, trie-driven
// descent over a parse's ordered hierarchy levels, pruned by
// nested-set containment. It is a direct port of the recursive algorithm in
// original_source/src/geocoder.cpp's Geocoder::search (the private,
// level-by-level overload), adapted from marisa::Trie/kyotocabinet lookups
// to internal/trie and internal/store, and incorporating the two Open
// Question resolutions recorded in DESIGN.md: the child range at a non-root
// level is `(id+1, last_subobject)`, and `max_results == 0` means
// unbounded final output with the intermediate cap governing in-flight
// candidate growth on its own.
package search

import (
	"context"
	"sort"

	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/store"
)

// Config holds the Search Core's tunables.
type Config struct {
	// MaxQueriesPerHierarchy bounds trie probes per parse; 0 means
	// unlimited. Scaled by NumLanguages, since each supported localized
	// name roughly multiplies the number of variants probed per level.
	MaxQueriesPerHierarchy int
	// NumLanguages scales MaxQueriesPerHierarchy; defaults to 1 if <= 0.
	NumLanguages int
	// MaxResults is the final result count (0 means unbounded). Search does
	// not truncate to it; it only sets the intermediate cap together with
	// MaxIntermediateOffset.
	MaxResults int
	// MaxIntermediateOffset is extra slack retained during search.
	MaxIntermediateOffset int
}

func (c Config) queryBudget() int {
	if c.MaxQueriesPerHierarchy <= 0 {
		return 0
	}
	n := c.NumLanguages
	if n < 1 {
		n = 1
	}
	return c.MaxQueriesPerHierarchy * n
}

// intermediateCap implements the fixed Open Question: max_results == 0
// means no truncation, so the intermediate cap is MaxIntermediateOffset
// alone rather than "unbounded + offset".
func (c Config) intermediateCap() int {
	if c.MaxResults == 0 {
		return c.MaxIntermediateOffset
	}
	return c.MaxResults + c.MaxIntermediateOffset
}

// Candidate is one resolved place id, tagged with how many hierarchy
// levels were matched to reach it.
type Candidate struct {
	ID             int64
	LevelsResolved int
}

// Searcher runs searches against a loaded Reader.
type Searcher struct {
	Store *store.Reader
	Cfg   Config
}

// ProjectParse turns one Expander parse into its ordered level list: the
// synthetic h-N primitive projection if the parse is primitive, otherwise
// the fixed hierarchy-label projection.
func ProjectParse(p expander.Parse) [][]string {
	if expander.IsPrimitive(p) {
		return expander.ProjectPrimitiveLevels(p)
	}
	return expander.ProjectLevels(p)
}

// Search runs the recursive descent for every parse, accumulating a single
// best-levels-resolved result set across all of them — exactly like the
// C++ version's instance-level m_levels_resolved, which is never reset
// between parses of the same query. minLevels seeds the floor below which
// a result is not interesting.
func (s *Searcher) Search(ctx context.Context, parses []expander.Parse, minLevels int) ([]Candidate, error) {
	st := &runState{
		bestLevelsResolved: minLevels,
		budget:             s.Cfg.queryBudget(),
		cap:                s.Cfg.intermediateCap(),
	}

	for _, parse := range parses {
		levels := ProjectParse(parse)
		if len(levels) == 0 {
			continue
		}
		// A parse whose own level count can't reach what's already been
		// resolved can never improve the result set; skip it entirely
		// (the C++ guard `r.size() >= m_levels_resolved`).
		if len(levels) < st.bestLevelsResolved {
			continue
		}

		st.queryCount = 0
		if _, err := s.recurse(ctx, st, levels, 0, 0, 0, true); err != nil {
			return nil, err
		}
	}

	return st.results, nil
}

type runState struct {
	bestLevelsResolved int
	results            []Candidate
	queryCount         int
	budget             int
	cap                int
}

type intermediate struct {
	text string
	id   int64
}

// recurse is search(L, level, range) from the original C++ engine.
// range0/range1 are meaningful only when fullRange is false; level 0
// always uses the full range, mirroring the C++ `level == 0` special case.
func (s *Searcher) recurse(ctx context.Context, st *runState, levels [][]string, level int, range0, range1 int64, fullRange bool) (bool, error) {
	if level >= len(levels) {
		return false, nil
	}
	if st.budget > 0 && st.queryCount > st.budget {
		return false, nil
	}
	st.queryCount++

	var collected []intermediate
	for _, variant := range levels[level] {
		for _, m := range s.Store.TriePrefixLookup(variant) {
			ids := s.Store.Postings(m.ID)
			if len(ids) == 0 {
				continue
			}
			lo, hi := idRange(ids, fullRange, range0, range1)
			for _, id := range ids[lo:hi] {
				if fullRange || (id >= range0 && id <= range1) {
					collected = append(collected, intermediate{text: m.Key, id: id})
				}
			}
		}
	}

	sort.Slice(collected, func(i, j int) bool {
		a, b := collected[i], collected[j]
		if len(a.text) != len(b.text) {
			return len(a.text) < len(b.text)
		}
		if a.text != b.text {
			return a.text < b.text
		}
		return a.id < b.id
	})

	lastLevel := level+1 >= len(levels)
	explored := make(map[int64]bool)

	for _, cand := range collected {
		if explored[cand.id] {
			continue
		}
		explored[cand.id] = true

		// Pruning: once enough same-or-better candidates are banked and
		// no deeper match could still raise the best level count, stop
		// exploring this level.
		if len(st.results) >= st.cap && st.bestLevelsResolved >= level+1 {
			break
		}

		lastSubobject := cand.id
		if !lastLevel {
			if ls, ok := s.Store.LastSubobject(ctx, cand.id); ok {
				lastSubobject = ls
			}
			if st.bestLevelsResolved > level+1 && cand.id >= lastSubobject {
				continue // leaf (or no deeper data); can't improve on what we have
			}
		}

		recursed := false
		if !lastLevel && lastSubobject > cand.id {
			var err error
			recursed, err = s.recurse(ctx, st, levels, level+1, cand.id+1, lastSubobject, false)
			if err != nil {
				return false, err
			}
		}

		if lastLevel || lastSubobject <= cand.id || !recursed {
			levelsResolved := level + 1
			if levelsResolved > st.bestLevelsResolved {
				st.results = st.results[:0]
				st.bestLevelsResolved = levelsResolved
			}
			if levelsResolved == st.bestLevelsResolved && len(st.results) < st.cap {
				if !containsID(st.results, cand.id) {
					st.results = append(st.results, Candidate{ID: cand.id, LevelsResolved: levelsResolved})
				}
			}
		}
	}

	return len(explored) > 0, nil
}

func containsID(results []Candidate, id int64) bool {
	for _, r := range results {
		if r.ID == id {
			return true
		}
	}
	return false
}

// idRange returns the [start,end) slice bounds of ids lying within
// [range0, range1] (or the whole slice when fullRange), the Go equivalent
// of get_id_range's std::lower_bound/std::upper_bound pair.
func idRange(ids []int64, fullRange bool, range0, range1 int64) (start, end int) {
	if fullRange {
		return 0, len(ids)
	}
	start = sort.Search(len(ids), func(i int) bool { return ids[i] >= range0 })
	end = sort.Search(len(ids), func(i int) bool { return ids[i] > range1 })
	if start > end {
		start = end
	}
	return start, end
}
