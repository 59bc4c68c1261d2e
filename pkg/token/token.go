package token

import (
	"strings"
)

// Separator joins chained variant modifiers to the base class name,
// e.g. "sm:hover:bg-red-500".
const Separator = ":"

// Token is one whitespace-delimited utility class inside an attribute
// value, decomposed into its variant prefix and base class name.
type Token struct {
	// Variant is everything up to and including the last separator;
	// empty for an unqualified token.
	Variant string
	// Base is the class name after the variant prefix.
	Base string
	// Original is the token text exactly as it appeared.
	Original string
	// Index is the token's position in the source token list.
	Index int
}

// Parse decomposes one raw token. A token consisting only of separators
// yields an empty base; an empty input yields an empty prefix and base.
func Parse(raw string) Token {
	idx := strings.LastIndex(raw, Separator)
	if idx < 0 {
		return Token{Base: raw, Original: raw}
	}
	return Token{
		Variant:  raw[:idx+1],
		Base:     raw[idx+1:],
		Original: raw,
	}
}

// Split parses an attribute value into its ordered token list, one token
// per non-empty whitespace-delimited field.
func Split(value string) []Token {
	fields := strings.Fields(value)
	tokens := make([]Token, 0, len(fields))
	for i, f := range fields {
		t := Parse(f)
		t.Index = i
		tokens = append(tokens, t)
	}
	return tokens
}

// Groups partitions tokens by variant prefix, preserving both token order
// within a group and the first-seen order of the groups themselves.
type Groups struct {
	order []string
	byVar map[string][]Token
}

// GroupByVariant partitions a token list so merge decisions only ever
// compare tokens that share an identical variant prefix.
func GroupByVariant(tokens []Token) *Groups {
	g := &Groups{byVar: make(map[string][]Token)}
	for _, t := range tokens {
		if _, ok := g.byVar[t.Variant]; !ok {
			g.order = append(g.order, t.Variant)
		}
		g.byVar[t.Variant] = append(g.byVar[t.Variant], t)
	}
	return g
}

// Variants returns the variant prefixes in first-seen order.
func (g *Groups) Variants() []string {
	return g.order
}

// Tokens returns the ordered tokens sharing the given variant prefix.
func (g *Groups) Tokens(variant string) []Token {
	return g.byVar[variant]
}

// Value extracts the trailing value of a base class name: the suffix
// after its last "-" (base "w-4" yields "4"). A name without a "-" has
// no value.
func Value(base string) (string, bool) {
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return "", false
	}
	return base[idx+1:], true
}

// SameValue reports whether both base class names carry a trailing value
// and the values are textually identical. No numeric normalization is
// performed: "4" and "4.0" are different values.
func SameValue(a, b string) bool {
	av, aok := Value(a)
	bv, bok := Value(b)
	return aok && bok && av == bv
}
