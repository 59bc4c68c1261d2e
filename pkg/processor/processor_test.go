package processor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/classmerge/pkg/processor"
	"github.com/walteh/classmerge/pkg/token"
)

func newProcessor(value string) *processor.Processor {
	return processor.New(token.Split(value))
}

func TestMarkRemoval(t *testing.T) {
	t.Run("removes_first_matching_token", func(t *testing.T) {
		p := newProcessor("a b c")
		require.True(t, p.MarkRemoval("b"))

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"a", "c"}, tokens)
	})

	t.Run("missing_token_returns_false", func(t *testing.T) {
		p := newProcessor("a b")
		assert.False(t, p.MarkRemoval("zzz"))

		_, changed := p.Execute()
		assert.False(t, changed)
	})

	t.Run("repeated_marks_are_idempotent", func(t *testing.T) {
		p := newProcessor("a a b")
		require.True(t, p.MarkRemoval("a"))
		require.True(t, p.MarkRemoval("a"), "re-marking the same text re-targets the same position")

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"a", "b"}, tokens, "only the first occurrence is removed")
	})
}

func TestUnmarked(t *testing.T) {
	t.Run("duplicates_resolve_to_successive_positions", func(t *testing.T) {
		p := newProcessor("a b a")
		require.Equal(t, 0, p.Unmarked("a"))
		require.True(t, p.MarkRemovalAt(0))

		assert.Equal(t, 2, p.Unmarked("a"), "a marked position is skipped over")
		require.True(t, p.MarkRemovalAt(2))
		assert.Equal(t, -1, p.Unmarked("a"), "exhausted duplicates resolve to nothing")
	})

	t.Run("missing_text_returns_negative", func(t *testing.T) {
		p := newProcessor("a b")
		assert.Equal(t, -1, p.Unmarked("zzz"))
	})
}

func TestMarkRemovalAt(t *testing.T) {
	t.Run("removes_an_exact_position", func(t *testing.T) {
		p := newProcessor("a b a")
		require.True(t, p.MarkRemovalAt(2))

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"a", "b"}, tokens, "the second duplicate is the one removed")
	})

	t.Run("taken_or_out_of_range_positions_are_refused", func(t *testing.T) {
		p := newProcessor("a b")
		require.True(t, p.MarkRemovalAt(1))
		assert.False(t, p.MarkRemovalAt(1), "a position holds at most one intent")
		assert.False(t, p.MarkRemovalAt(-1))
		assert.False(t, p.MarkRemovalAt(2))
	})
}

func TestMarkReplacement(t *testing.T) {
	t.Run("replaces_in_place", func(t *testing.T) {
		p := newProcessor("a b c")
		require.True(t, p.MarkReplacement("b", "B"))

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"a", "B", "c"}, tokens)
	})

	t.Run("first_intent_for_a_position_wins", func(t *testing.T) {
		p := newProcessor("a b")
		require.True(t, p.MarkRemoval("b"))
		require.True(t, p.MarkReplacement("b", "B"), "later mark is accepted but does not override")

		tokens, _ := p.Execute()
		assert.Equal(t, []string{"a"}, tokens, "the removal recorded first governs")
	})
}

func TestAdd(t *testing.T) {
	t.Run("adds_materialize_after_originals", func(t *testing.T) {
		p := newProcessor("a b c")
		require.True(t, p.MarkRemoval("a"))
		p.Add("x")
		p.AddAll([]string{"y", "z"})

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"b", "c", "x", "y", "z"}, tokens)
	})

	t.Run("add_alone_marks_changed", func(t *testing.T) {
		p := newProcessor("a")
		p.Add("x")

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"a", "x"}, tokens)
	})
}

func TestExecute(t *testing.T) {
	t.Run("no_intents_passes_through", func(t *testing.T) {
		p := newProcessor("a b c")
		tokens, changed := p.Execute()
		assert.False(t, changed)
		assert.Equal(t, []string{"a", "b", "c"}, tokens)
	})

	t.Run("changed_is_intent_based_not_textual", func(t *testing.T) {
		p := newProcessor("a b")
		require.True(t, p.MarkReplacement("a", "a"), "replacement with identical text")

		tokens, changed := p.Execute()
		assert.True(t, changed, "changed reflects recorded intents even when the text is identical")
		assert.Equal(t, []string{"a", "b"}, tokens)
	})

	t.Run("mixed_intents_resolve_in_one_pass", func(t *testing.T) {
		p := newProcessor("a b c d")
		require.True(t, p.MarkRemoval("a"))
		require.True(t, p.MarkReplacement("c", "C"))
		p.Add("e")

		tokens, changed := p.Execute()
		assert.True(t, changed)
		assert.Equal(t, []string{"b", "C", "d", "e"}, tokens)
	})
}

func TestReset(t *testing.T) {
	p := newProcessor("a b")
	require.True(t, p.MarkRemoval("a"))
	p.Add("x")

	p.Reset()

	tokens, changed := p.Execute()
	assert.False(t, changed, "reset clears all intents")
	assert.Equal(t, []string{"a", "b"}, tokens)

	require.True(t, p.MarkRemoval("b"), "snapshot survives the reset")
	tokens, changed = p.Execute()
	assert.True(t, changed)
	assert.Equal(t, []string{"a"}, tokens)
}
