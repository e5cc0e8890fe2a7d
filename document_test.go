package composels_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/composels"
)

func pos(line, character uint32) protocol.Position {
	return protocol.Position{Line: line, Character: character}
}

func TestSnapshot_Offset(t *testing.T) {
	t.Parallel()

	snap := composels.Parse("ab\n😀x\r\nlast")

	tests := []struct {
		pos    protocol.Position
		offset int
	}{
		{pos(0, 0), 0},
		{pos(0, 2), 2},
		{pos(1, 0), 3},
		{pos(1, 1), 3}, // inside the surrogate pair
		{pos(1, 2), 7},
		{pos(1, 3), 8},
		{pos(2, 4), 14},
	}

	for _, tt := range tests {
		got, err := snap.Offset(tt.pos)
		require.NoError(t, err)
		assert.Equal(t, tt.offset, got, "Offset(%v)", tt.pos)
	}
}

func TestSnapshot_OffsetOutOfRange(t *testing.T) {
	t.Parallel()

	snap := composels.Parse("ab\ncd")

	for _, p := range []protocol.Position{pos(2, 0), pos(0, 3), pos(9, 9)} {
		_, err := snap.Offset(p)
		require.ErrorIs(t, err, composels.ErrOutOfRange, "Offset(%v)", p)
	}
}

func TestSnapshot_Position(t *testing.T) {
	t.Parallel()

	snap := composels.Parse("ab\n😀x\nc")

	assert.Equal(t, pos(0, 0), snap.Position(0))
	assert.Equal(t, pos(1, 2), snap.Position(7))
	assert.Equal(t, pos(2, 1), snap.Position(10))
	assert.Equal(t, pos(2, 1), snap.Position(99))
}

func TestSnapshot_Lines(t *testing.T) {
	t.Parallel()

	snap := composels.Parse("a: 1\r\nb: 2\n")

	assert.Equal(t, 3, snap.LineCount())
	assert.Equal(t, "a: 1", snap.Line(0))
	assert.Equal(t, "b: 2", snap.Line(1))
	assert.Empty(t, snap.Line(2))
	assert.Empty(t, snap.Line(3))
}

func TestSnapshot_Update(t *testing.T) {
	t.Parallel()

	orig := composels.NewSnapshot("file:///compose.yaml", 1, "services:\n  web:\n    image: redis\n")

	next, err := orig.Update([]composels.Change{
		{
			Range: &protocol.Range{Start: pos(2, 11), End: pos(2, 16)},
			Text:  "nginx",
		},
		{
			Range: &protocol.Range{Start: pos(3, 0), End: pos(3, 0)},
			Text:  "    ports: []\n",
		},
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, "services:\n  web:\n    image: nginx\n    ports: []\n", next.Text)
	assert.Equal(t, int32(2), next.Version)
	assert.Equal(t, orig.URI, next.URI)

	// The previous snapshot is untouched.
	assert.Equal(t, "services:\n  web:\n    image: redis\n", orig.Text)
	assert.Equal(t, int32(1), orig.Version)
	assert.NotSame(t, orig.Tree, next.Tree)
}

func TestSnapshot_UpdateFullReplace(t *testing.T) {
	t.Parallel()

	orig := composels.Parse("a: 1")

	next, err := orig.Update([]composels.Change{{Text: "b: 2"}}, 5)
	require.NoError(t, err)
	assert.Equal(t, "b: 2", next.Text)
	assert.False(t, next.Tree.Empty())
}

func TestSnapshot_UpdateOutOfRange(t *testing.T) {
	t.Parallel()

	orig := composels.Parse("a: 1")

	_, err := orig.Update([]composels.Change{{
		Range: &protocol.Range{Start: pos(0, 0), End: pos(4, 0)},
		Text:  "x",
	}}, 2)
	require.ErrorIs(t, err, composels.ErrOutOfRange)
}

func TestSnapshot_SyntaxError(t *testing.T) {
	t.Parallel()

	snap := composels.Parse("services:\n  web:\n    image: redis\n    bu\n")
	require.NotNil(t, snap.SyntaxErr)
	require.ErrorIs(t, snap.SyntaxErr, composels.ErrSyntax)
	assert.GreaterOrEqual(t, snap.SyntaxErr.Line, 0)

	assert.Nil(t, composels.Parse("a: 1\n---\nb: [2]\n").SyntaxErr)
	assert.Nil(t, composels.Parse("").SyntaxErr)
}

func TestParse_NeverFails(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"", "\n", ":", "-", "?", "[", "{", "]", "}", ",", "'", "\"", "|", ">", "&", "*", "!",
		"---", "...", "%", "a: b: c", "- - - -", "{[}]", "a:\n\t- b", "\r", "\r\n\r\n",
		"? ? ?\n: : :", "a: |\n", "[a, ? b : c, ]", "- a\n -b\n  - c\n   d: e",
		"x: >", "services:\n  web:\n    command: |", "[a, [b] c]", "a: [1}", "s: 'a\n  b'",
		"é: [ü, {ß", "? \n  a: 1\n: v", "a: &x\nb: !t", "- [\n- {\n---\n- ]",
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			snap := composels.Parse(input)
			assert.Equal(t, input, snap.Text)
		}, "Parse(%q)", input)
	}
}
