package pattern

import (
	"sort"
)

// Extract locates every class-bearing attribute occurrence in content,
// resolving overlapping claims between matchers by specificity. The result
// is sorted ascending by start offset and contains no overlapping spans;
// this is the canonical order for all downstream processing of the file.
//
// Malformed occurrences (unterminated quotes and the like) simply fail to
// match and are skipped; Extract never fails.
func Extract(content, fileID string) []Match {
	var candidates []Match
	for _, m := range MatchersFor(fileID) {
		candidates = append(candidates, m.scan(content)...)
	}

	// Higher specificity claims its span first; equal specificity (same
	// matcher, so disjoint by construction) falls back to offset order.
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Matcher.Specificity(), candidates[j].Matcher.Specificity()
		if si != sj {
			return si > sj
		}
		return candidates[i].Start < candidates[j].Start
	})

	var kept []Match
	for _, c := range candidates {
		claimed := false
		for _, k := range kept {
			if c.Overlaps(k) {
				claimed = true
				break
			}
		}
		if !claimed {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

func (m *Matcher) scan(content string) []Match {
	locs := m.recognize.FindAllStringSubmatchIndex(content, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		vs, ve := -1, -1
		for _, g := range m.valueGroups {
			if loc[2*g] >= 0 {
				vs, ve = loc[2*g], loc[2*g+1]
				break
			}
		}
		if vs < 0 {
			continue
		}
		matches = append(matches, Match{
			Raw:        content[loc[0]:loc[1]],
			Value:      content[vs:ve],
			Start:      loc[0],
			End:        loc[1],
			ValueStart: vs,
			ValueEnd:   ve,
			Matcher:    m,
		})
	}
	return matches
}
