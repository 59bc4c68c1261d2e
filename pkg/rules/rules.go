// Package rules holds the rewrite-rule catalog: pure decision functions
// that inspect grouped class tokens for one occurrence and request
// semantics-preserving merges through the safe token processor.
package rules

import (
	"context"

	"github.com/walteh/classmerge/pkg/pattern"
	"github.com/walteh/classmerge/pkg/patch"
	"github.com/walteh/classmerge/pkg/processor"
	"github.com/walteh/classmerge/pkg/session"
	"github.com/walteh/classmerge/pkg/token"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// Rule rewrites content and reports whether anything changed. A rule
// never panics outward: unexpected internal failures come back as
// classified errors with the input content untouched, and the caller
// decides the fallback.
type Rule func(ctx context.Context, content, fileID string) (newContent string, changed bool, err error)

// Table maps rule names to their implementations.
type Table map[string]Rule

// Names are the rule identifiers accepted in configuration, in the
// default application order.
var Names = []string{"size-merge", "axis-merge", "gap-merge", "color-opacity-merge"}

type nopSink struct{}

func (nopSink) Record(*session.Error)              {}
func (nopSink) ShouldContinue(*session.Error) bool { return true }

// NewTable builds the default rule catalog. Recoverable rule failures
// are reported through sink before being returned.
func NewTable(sink session.Sink) Table {
	if sink == nil {
		sink = nopSink{}
	}
	return Table{
		"size-merge":          newRewriteRule(sink, "size-merge", sizeMerge),
		"axis-merge":          newRewriteRule(sink, "axis-merge", axisMerge),
		"gap-merge":           newRewriteRule(sink, "gap-merge", gapMerge),
		"color-opacity-merge": newRewriteRule(sink, "color-opacity-merge", colorOpacityMerge),
	}
}

// occurrence is one extracted class attribute prepared for rule
// decisions: its parsed tokens and a processor frozen over them.
type occurrence struct {
	match  pattern.Match
	tokens []token.Token
	proc   *processor.Processor
}

// newRewriteRule wraps a per-occurrence decision function with match
// extraction, token parsing, patch assembly, and panic containment.
func newRewriteRule(sink session.Sink, name string, decide func(occ *occurrence)) Rule {
	return func(ctx context.Context, content, fileID string) (out string, changed bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				cerr := session.New(session.KindPattern, fileID,
					errors.Errorf("%s: internal failure: %v", name, r))
				sink.Record(cerr)
				out, changed, err = content, false, cerr
			}
		}()

		matches := pattern.Extract(content, fileID)
		var replacements []patch.Replacement
		for _, m := range matches {
			occ := &occurrence{
				match:  m,
				tokens: token.Split(m.Value),
			}
			occ.proc = processor.New(occ.tokens)
			decide(occ)
			if newTokens, occChanged := occ.proc.Execute(); occChanged {
				replacements = append(replacements, patch.Replacement{Match: m, Tokens: newTokens})
			}
		}

		if len(replacements) == 0 {
			return content, false, nil
		}
		return patch.Apply(content, replacements), true, nil
	}
}

// Apply runs the named rules in order, feeding each rule's output into
// the next. Recoverable rule failures are collected and returned with
// the original content so the caller never writes a half-transformed
// file; fatal failures propagate immediately.
func Apply(ctx context.Context, table Table, names []string, content, fileID string) (string, int, error) {
	out := content
	changedCount := 0
	var ruleErrs error

	for _, name := range names {
		rule, ok := table[name]
		if !ok {
			return content, 0, session.New(session.KindConfig, fileID,
				errors.Errorf("unknown rule %q", name))
		}

		next, changed, err := rule(ctx, out, fileID)
		if err != nil {
			if session.IsFatal(err) {
				return content, 0, err
			}
			ruleErrs = multierr.Append(ruleErrs, err)
			continue
		}
		if changed {
			changedCount++
		}
		out = next
	}

	if ruleErrs != nil {
		return content, 0, ruleErrs
	}
	return out, changedCount, nil
}
