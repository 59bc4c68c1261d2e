// Package processor materializes token mutations against a frozen
// snapshot. Intents are keyed by snapshot position and resolved in one
// forward pass, so no mutation can shift the meaning of another — the
// classic remove-while-iterating corruption is structurally impossible.
package processor

import (
	"github.com/walteh/classmerge/pkg/token"
)

type intentKind int

const (
	intentRemove intentKind = iota
	intentReplace
)

type intent struct {
	kind intentKind
	text string
}

// Processor accumulates remove/replace/add intents for one attribute
// occurrence. The snapshot is never mutated; Execute builds the result.
type Processor struct {
	snapshot []token.Token
	intents  map[int]intent
	adds     []string
}

// New freezes the token list for one occurrence.
func New(tokens []token.Token) *Processor {
	return &Processor{
		snapshot: tokens,
		intents:  make(map[int]intent),
	}
}

// position finds the first snapshot token whose original text equals
// text, or -1.
func (p *Processor) position(text string) int {
	for i, t := range p.snapshot {
		if t.Original == text {
			return i
		}
	}
	return -1
}

// MarkRemoval records a Remove intent against the first snapshot token
// matching text. Repeated marks for the same text re-target the same
// position; the first intent recorded for a position governs at Execute.
// Returns false when no such token exists.
func (p *Processor) MarkRemoval(text string) bool {
	pos := p.position(text)
	if pos < 0 {
		return false
	}
	if _, taken := p.intents[pos]; !taken {
		p.intents[pos] = intent{kind: intentRemove}
	}
	return true
}

// MarkReplacement records a Replace intent with the same lookup and
// collision semantics as MarkRemoval.
func (p *Processor) MarkReplacement(original, replacement string) bool {
	pos := p.position(original)
	if pos < 0 {
		return false
	}
	if _, taken := p.intents[pos]; !taken {
		p.intents[pos] = intent{kind: intentReplace, text: replacement}
	}
	return true
}

// Unmarked returns the position of the first snapshot token matching
// text that holds no recorded intent, or -1. Duplicate texts resolve to
// successive positions as earlier ones are marked, unlike MarkRemoval,
// which always re-targets the first match.
func (p *Processor) Unmarked(text string) int {
	for i, t := range p.snapshot {
		if t.Original != text {
			continue
		}
		if _, taken := p.intents[i]; !taken {
			return i
		}
	}
	return -1
}

// MarkRemovalAt records a Remove intent at an exact snapshot position.
// Returns false when the position is out of range or already holds an
// intent.
func (p *Processor) MarkRemovalAt(pos int) bool {
	if pos < 0 || pos >= len(p.snapshot) {
		return false
	}
	if _, taken := p.intents[pos]; taken {
		return false
	}
	p.intents[pos] = intent{kind: intentRemove}
	return true
}

// Add appends an Add intent; added tokens materialize after all original
// positions regardless of where removals happened.
func (p *Processor) Add(text string) {
	p.adds = append(p.adds, text)
}

// AddAll appends Add intents in order.
func (p *Processor) AddAll(texts []string) {
	p.adds = append(p.adds, texts...)
}

// Execute walks the snapshot once in original order, applying at most one
// intent per position, then appends the adds. changed is true iff any
// intent was recorded, independent of whether the result differs
// textually.
func (p *Processor) Execute() (newTokens []string, changed bool) {
	newTokens = make([]string, 0, len(p.snapshot)+len(p.adds))
	for i, t := range p.snapshot {
		in, ok := p.intents[i]
		if !ok {
			newTokens = append(newTokens, t.Original)
			continue
		}
		switch in.kind {
		case intentRemove:
			// dropped
		case intentReplace:
			newTokens = append(newTokens, in.text)
		}
	}
	newTokens = append(newTokens, p.adds...)
	return newTokens, len(p.intents) > 0 || len(p.adds) > 0
}

// Reset clears all accumulated intents without discarding the snapshot.
// Used to roll back a tentative multi-token operation that partially
// failed before re-attempting.
func (p *Processor) Reset() {
	p.intents = make(map[int]intent)
	p.adds = nil
}

// Snapshot returns the frozen token list.
func (p *Processor) Snapshot() []token.Token {
	return p.snapshot
}
