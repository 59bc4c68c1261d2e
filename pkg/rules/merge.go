package rules

import (
	"strings"

	"github.com/walteh/classmerge/pkg/processor"
	"github.com/walteh/classmerge/pkg/token"
)

// sizeMerge folds equal-valued width/height pairs into the size
// shorthand: "w-4 h-4" becomes "size-4".
func sizeMerge(occ *occurrence) {
	forEachVariant(occ, func(variant string, group []token.Token) {
		mergePairs(occ.proc, group, variant, "w", "h", "size")
	})
}

// axisMerge folds equal-valued axis pairs of margin and padding into
// their shorthand: "mx-2 my-2" becomes "m-2", "px-4 py-4" becomes "p-4".
func axisMerge(occ *occurrence) {
	forEachVariant(occ, func(variant string, group []token.Token) {
		mergePairs(occ.proc, group, variant, "mx", "my", "m")
		mergePairs(occ.proc, group, variant, "px", "py", "p")
	})
}

// gapMerge folds equal-valued space-x/space-y pairs into gap, but only
// when the occurrence's full token set carries a flex or grid layout
// token somewhere, in any variant. Without one, space-* and gap are not
// interchangeable and the whole occurrence is skipped.
func gapMerge(occ *occurrence) {
	if !hasLayoutToken(occ.tokens) {
		return
	}
	forEachVariant(occ, func(variant string, group []token.Token) {
		mergePairs(occ.proc, group, variant, "space-x", "space-y", "gap")
	})
}

func hasLayoutToken(tokens []token.Token) bool {
	for _, t := range tokens {
		switch {
		case t.Base == "flex", t.Base == "grid":
			return true
		case strings.HasPrefix(t.Base, "flex-"), strings.HasPrefix(t.Base, "grid-"):
			return true
		}
	}
	return false
}

func forEachVariant(occ *occurrence, fn func(variant string, group []token.Token)) {
	groups := token.GroupByVariant(occ.tokens)
	for _, variant := range groups.Variants() {
		fn(variant, groups.Tokens(variant))
	}
}

// mergePairs walks the cross product of p1-prefixed and p2-prefixed
// tokens within one variant group and merges every equal-valued pair
// into variant+merged+"-"+value. Each snapshot position is consumed by
// at most one pair per pass: equal-valued candidates pair up in source
// order, complete duplicate pairs each merge, and a leftover half with
// no free partner stays untouched.
func mergePairs(proc *processor.Processor, group []token.Token, variant, p1, p2, merged string) {
	consumed := make(map[int]bool)
	for _, a := range group {
		if consumed[a.Index] || !strings.HasPrefix(a.Base, p1+"-") {
			continue
		}
		for _, b := range group {
			if consumed[b.Index] || !strings.HasPrefix(b.Base, p2+"-") {
				continue
			}
			if !token.SameValue(a.Base, b.Base) {
				continue
			}
			value, _ := token.Value(a.Base)
			if replacePair(proc, a.Original, b.Original, variant+merged+"-"+value) {
				consumed[a.Index] = true
				consumed[b.Index] = true
				break
			}
		}
	}
}

// replacePair resolves both halves to intent-free snapshot positions
// before marking anything, so duplicate token texts consume distinct
// positions and a pair whose positions are already spoken for is skipped
// rather than double-counted against an earlier pair's claims.
func replacePair(proc *processor.Processor, a, b, merged string) bool {
	apos := proc.Unmarked(a)
	bpos := proc.Unmarked(b)
	if apos < 0 || bpos < 0 {
		return false
	}
	proc.MarkRemovalAt(apos)
	proc.MarkRemovalAt(bpos)
	proc.Add(merged)
	return true
}
