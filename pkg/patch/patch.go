// Package patch splices rewritten attribute occurrences back into file
// content without disturbing the bytes between them.
package patch

import (
	"sort"

	"github.com/walteh/classmerge/pkg/pattern"
)

// Replacement pairs an extracted occurrence with its new token list.
type Replacement struct {
	Match  pattern.Match
	Tokens []string
}

// Apply rewrites content by replacing each occurrence span with text
// reconstructed by the originating matcher. Replacements are applied in
// descending start order so lower offsets stay valid while higher spans
// are already rewritten.
func Apply(content string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return content
	}

	sorted := make([]Replacement, len(replacements))
	copy(sorted, replacements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Match.Start > sorted[j].Match.Start
	})

	for _, r := range sorted {
		m := r.Match
		content = content[:m.Start] + m.Matcher.Reconstruct(m, r.Tokens) + content[m.End:]
	}
	return content
}
