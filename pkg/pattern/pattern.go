package pattern

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind identifies one supported host-syntax shape for a class-bearing
// attribute. Each kind has exactly one Matcher in the registry.
type Kind int

const (
	// KindPlain matches a single-line quoted attribute: class="..." or
	// className='...'.
	KindPlain Kind = iota
	// KindMultiline matches a double-quoted attribute whose value spans
	// at least one newline.
	KindMultiline
	// KindDirective matches framework-bound attributes: :class, v-bind:class,
	// [ngClass], [class].
	KindDirective
	// KindExpression matches a JSX expression wrapper around a string
	// literal: className={"..."}.
	KindExpression
	// KindTemplateLiteral matches backtick-quoted values, bare or inside a
	// JSX expression: class=`...` or className={`...`}.
	KindTemplateLiteral
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindMultiline:
		return "multiline"
	case KindDirective:
		return "directive"
	case KindExpression:
		return "expression"
	case KindTemplateLiteral:
		return "template-literal"
	default:
		return "unknown"
	}
}

// specificity is the total order used for overlap resolution. Component
// binding syntaxes outrank structural bindings, which outrank the generic
// attribute matchers. Ranks are unique so resolution is deterministic.
var specificity = map[Kind]int{
	KindTemplateLiteral: 50,
	KindExpression:      40,
	KindDirective:       30,
	KindMultiline:       20,
	KindPlain:           10,
}

// Matcher recognizes, extracts, and reconstructs one host syntax's
// class-bearing attribute. Matchers are immutable and registered once.
type Matcher struct {
	Name string
	Kind Kind

	recognize *regexp.Regexp
	// valueGroups are the submatch indices that may carry the attribute
	// value; exactly one of them participates in any given match.
	valueGroups []int
}

// Specificity returns the matcher's rank in the overlap-resolution order.
func (m *Matcher) Specificity() int {
	return specificity[m.Kind]
}

// Match is one class-attribute occurrence. Start/End and
// ValueStart/ValueEnd are byte offsets into the original content,
// half-open [start, end).
type Match struct {
	Raw        string
	Value      string
	Start      int
	End        int
	ValueStart int
	ValueEnd   int
	Matcher    *Matcher
}

// Overlaps reports whether the two occurrence spans intersect.
func (m Match) Overlaps(other Match) bool {
	return m.Start < other.End && other.Start < m.End
}

// Reconstruct rebuilds the occurrence text around a new token list,
// preserving the original quoting and wrapper characters byte-for-byte.
func (m *Matcher) Reconstruct(match Match, tokens []string) string {
	head := match.Raw[:match.ValueStart-match.Start]
	tail := match.Raw[match.ValueEnd-match.Start:]
	return head + strings.Join(tokens, " ") + tail
}

var (
	plainMatcher = &Matcher{
		Name: "plain-attribute",
		Kind: KindPlain,
		recognize: regexp.MustCompile(
			`(?:class|className)\s*=\s*(?:"([^"\n]*)"|'([^'\n]*)')`),
		valueGroups: []int{1, 2},
	}

	multilineMatcher = &Matcher{
		Name: "multiline-attribute",
		Kind: KindMultiline,
		recognize: regexp.MustCompile(
			`(?:class|className)\s*=\s*"((?:[^"\n]*\n)+[^"\n]*)"`),
		valueGroups: []int{1},
	}

	// The value classes exclude < and > so an unterminated quote cannot
	// capture past the enclosing tag and claim unrelated text.
	directiveMatcher = &Matcher{
		Name: "directive-attribute",
		Kind: KindDirective,
		recognize: regexp.MustCompile(
			`(?::class|v-bind:class|\[ngClass\]|\[class\])\s*=\s*(?:"([^"<>]*)"|'([^'<>]*)')`),
		valueGroups: []int{1, 2},
	}

	expressionMatcher = &Matcher{
		Name: "expression-attribute",
		Kind: KindExpression,
		recognize: regexp.MustCompile(
			`className\s*=\s*\{\s*(?:"([^"\n]*)"|'([^'\n]*)')\s*\}`),
		valueGroups: []int{1, 2},
	}

	templateLiteralMatcher = &Matcher{
		Name: "template-literal-attribute",
		Kind: KindTemplateLiteral,
		recognize: regexp.MustCompile(
			"(?:className\\s*=\\s*\\{\\s*`([^`]*)`\\s*\\}|(?:class|className)\\s*=\\s*`([^`]*)`)"),
		valueGroups: []int{1, 2},
	}
)

// genericSet is the fallback for unrecognized syntax families.
var genericSet = []*Matcher{plainMatcher, multilineMatcher}

// familySets selects the matcher subset per file extension.
var familySets = map[string][]*Matcher{
	".html":   {directiveMatcher, plainMatcher, multilineMatcher},
	".htm":    {directiveMatcher, plainMatcher, multilineMatcher},
	".vue":    {directiveMatcher, plainMatcher, multilineMatcher},
	".svelte": {directiveMatcher, plainMatcher, multilineMatcher},
	".jsx":    {templateLiteralMatcher, expressionMatcher, plainMatcher, multilineMatcher},
	".tsx":    {templateLiteralMatcher, expressionMatcher, plainMatcher, multilineMatcher},
	".js":     {templateLiteralMatcher, expressionMatcher, plainMatcher},
	".mjs":    {templateLiteralMatcher, expressionMatcher, plainMatcher},
	".cjs":    {templateLiteralMatcher, expressionMatcher, plainMatcher},
	".ts":     {templateLiteralMatcher, expressionMatcher, plainMatcher},
	".mts":    {templateLiteralMatcher, expressionMatcher, plainMatcher},
}

// MatchersFor returns the matcher set for a file, falling back to the
// generic attribute set when the extension is unrecognized.
func MatchersFor(fileID string) []*Matcher {
	ext := strings.ToLower(filepath.Ext(fileID))
	if set, ok := familySets[ext]; ok {
		return set
	}
	return genericSet
}
