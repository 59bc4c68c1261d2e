package rules

import (
	"strings"

	"github.com/walteh/classmerge/pkg/token"
)

// colorRoles are the utility roles that carry a matching *-opacity-*
// sub-prefix.
var colorRoles = []string{"bg", "text", "border", "ring", "divide", "placeholder"}

// colorOpacityMerge folds a color token and its companion opacity token
// into slash form: "bg-red-500 bg-opacity-50" becomes "bg-red-500/50".
// The opacity value always comes from the opacity token; no value
// equality between the pair is required. Tokens already in slash form
// are never re-merged.
func colorOpacityMerge(occ *occurrence) {
	forEachVariant(occ, func(variant string, group []token.Token) {
		for _, role := range colorRoles {
			mergeRole(occ, variant, group, role)
		}
	})
}

func mergeRole(occ *occurrence, variant string, group []token.Token, role string) {
	basePrefix := role + "-"
	opacityPrefix := role + "-opacity-"

	consumed := make(map[int]bool)
	for _, a := range group {
		if consumed[a.Index] ||
			!strings.HasPrefix(a.Base, basePrefix) ||
			strings.HasPrefix(a.Base, opacityPrefix) ||
			strings.Contains(a.Base, "/") {
			continue
		}
		for _, b := range group {
			if consumed[b.Index] || !strings.HasPrefix(b.Base, opacityPrefix) {
				continue
			}
			opacity, ok := token.Value(b.Base)
			if !ok || opacity == "" {
				continue
			}
			if replacePair(occ.proc, a.Original, b.Original, variant+a.Base+"/"+opacity) {
				consumed[a.Index] = true
				consumed[b.Index] = true
				break
			}
		}
	}
}
