package analysis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

func resolve(t *testing.T, text string, line, character uint32) *analysis.PositionInfo {
	t.Helper()

	info, err := analysis.ResolvePosition(composels.Parse(text), protocol.Position{Line: line, Character: character})
	require.NoError(t, err)

	return info
}

func TestResolvePosition(t *testing.T) {
	t.Parallel()

	const scenario = "version: '3.4'\n\nservices:\n    foo:\n        image: bar"

	tests := []struct {
		name   string
		text   string
		line   uint32
		char   uint32
		path   string
		depth  float64
		region analysis.Region
	}{
		{"root key", scenario, 0, 3, "/version", 0, analysis.RegionKey},
		{"nested key", scenario, 3, 5, "/services/foo", 1, analysis.RegionKey},
		{"blank root line", scenario, 1, 0, "/", 0, analysis.RegionValue},
		{"scalar value", scenario, 4, 17, "/services/foo/image/<value>", 2, analysis.RegionValue},
		{"after colon", scenario, 2, 9, "/services/<sep>", 0, analysis.RegionSep},
		{
			name: "new line inside service",
			text: "services:\n  foo:\n    image: redis\n    ",
			line: 3, char: 4,
			path: "/services/foo/<value>", depth: 2, region: analysis.RegionValue,
		},
		{
			name: "new line dedented to services",
			text: "services:\n  web:\n    image: x\n  ",
			line: 3, char: 2,
			path: "/services/<value>", depth: 1, region: analysis.RegionValue,
		},
		{
			name: "new line dedented to root",
			text: "services:\n  web:\n    image: x\n",
			line: 3, char: 0,
			path: "/", depth: 0, region: analysis.RegionValue,
		},
		{
			name: "indented under empty key",
			text: "services:\n  web:\n      ",
			line: 2, char: 6,
			path: "/services/web/<value>", depth: 2, region: analysis.RegionValue,
		},
		{
			name: "indented under ports",
			text: "services:\n  web:\n    ports:\n      ",
			line: 3, char: 6,
			path: "/services/web/ports/<value>", depth: 3, region: analysis.RegionValue,
		},
		{
			name: "after sequence dash",
			text: "services:\n  web:\n    ports:\n      - ",
			line: 3, char: 8,
			path: "/services/web/ports/<item>/<value>", depth: 3, region: analysis.RegionValue,
		},
		{
			name: "on sequence dash",
			text: "services:\n  web:\n    ports:\n      - ",
			line: 3, char: 6,
			path: "/services/web/ports/<item>/<start>", depth: 3, region: analysis.RegionStart,
		},
		{
			name: "next sequence entry",
			text: "services:\n  web:\n    ports:\n      - 80:80\n      ",
			line: 4, char: 6,
			path: "/services/web/ports/<value>", depth: 3, region: analysis.RegionValue,
		},
		{
			name: "inside unclosed flow sequence",
			text: "services:\n  web:\n    ports: [\n      ",
			line: 3, char: 6,
			path: "/services/web/ports/<value>", depth: 2.5, region: analysis.RegionValue,
		},
		{
			name: "flow entry",
			text: "a: [x, ]",
			line: 0, char: 4,
			path: "/a/<item>/<value>", depth: 0.5, region: analysis.RegionValue,
		},
		{
			name: "key being typed",
			text: "services:\n  web:\n    image: redis\n    bu",
			line: 3, char: 6,
			path: "/services/web/bu", depth: 2, region: analysis.RegionKey,
		},
		{
			name: "quoted key keeps quotes",
			text: `"my key": 1`,
			line: 0, char: 2,
			path: `/"my key"`, depth: 0, region: analysis.RegionKey,
		},
		{
			name: "merge key",
			text: "x:\n  <<: *a\n  b: 1",
			line: 1, char: 7,
			path: "/x/<item>/<value>", depth: 1, region: analysis.RegionValue,
		},
		{
			name: "trailing comment",
			text: "a: 1 # hi\nb:\n  # note\n  c: 2",
			line: 0, char: 7,
			path: "/a/<comment>", depth: -1, region: analysis.RegionComment,
		},
		{
			name: "comment line inside mapping",
			text: "a: 1 # hi\nb:\n  # note\n  c: 2",
			line: 2, char: 4,
			path: "/b/<comment>", depth: -1, region: analysis.RegionComment,
		},
		{
			name: "comment before any item",
			text: "# top\na: 1",
			line: 0, char: 2,
			path: "/<comment>", depth: -1, region: analysis.RegionComment,
		},
		{"empty document", "", 0, 0, "/", 0, analysis.RegionValue},
		{"comment only document", "# c\n", 1, 0, "/", 0, analysis.RegionValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := resolve(t, tt.text, tt.line, tt.char)
			assert.Equal(t, tt.path, info.LogicalPath)
			assert.InDelta(t, tt.depth, info.IndentDepth, 0)
			assert.Equal(t, tt.region, info.Region)
		})
	}
}

func TestResolvePosition_KeyTokens(t *testing.T) {
	t.Parallel()

	text := "services:\n  web:\n    image: nginx\n    container_name: w\n"
	snap := composels.Parse(text)

	for _, key := range []string{"services", "web", "image", "container_name"} {
		start := strings.Index(text, key)

		for offset := start; offset <= start+len(key); offset++ {
			info, err := analysis.ResolveOffset(snap, offset)
			require.NoError(t, err)

			segs := info.Segments()
			require.NotEmpty(t, segs)
			assert.Equal(t, key, segs[len(segs)-1], "offset %d", offset)
		}
	}
}

func TestResolvePosition_AfterColonIsSep(t *testing.T) {
	t.Parallel()

	text := "services:\n  web:\n    image: nginx\n"
	snap := composels.Parse(text)

	for i := range len(text) {
		if text[i] != ':' {
			continue
		}

		info, err := analysis.ResolveOffset(snap, i+1)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(info.LogicalPath, "/<sep>"), "offset %d: %s", i+1, info.LogicalPath)
	}
}

func TestResolvePosition_Failures(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"*alias", "|\n  text"} {
		_, err := analysis.ResolvePosition(composels.Parse(text), protocol.Position{Line: 0, Character: 1})
		require.ErrorIs(t, err, composels.ErrResolutionFailed, "text %q", text)
	}

	_, err := analysis.ResolvePosition(composels.Parse("a: 1"), protocol.Position{Line: 3, Character: 0})
	require.ErrorIs(t, err, composels.ErrOutOfRange)

	_, err = analysis.ResolvePosition(composels.Parse("a: 1"), protocol.Position{Line: 0, Character: 9})
	require.ErrorIs(t, err, composels.ErrOutOfRange)
}

func TestResolvePosition_TotalAndDeterministic(t *testing.T) {
	t.Parallel()

	docs := []string{
		"version: '3.4'\n\nservices:\n    foo:\n        image: bar",
		"services:\n  web:\n    ports: [\"80:80\", {target: 443\n    environment:\n      - A=1\n  db: {\n",
		"? [a, b]\n: {c: [d, e]}\n- stray\n# end",
		"a: 'unterminated\n  b: c: d\n---\n- - x\n  - y\n-\n",
		"x: &a\n  <<: *a\n  k: |\n    text\n\n  z: \"q\"\n",
	}

	for _, text := range docs {
		snap := composels.Parse(text)

		for offset := 0; offset <= len(text); offset++ {
			first, err := analysis.ResolveOffset(snap, offset)
			require.NoError(t, err, "text %q offset %d", text, offset)
			assert.True(t, strings.HasPrefix(first.LogicalPath, "/"), "path %q", first.LogicalPath)
			assert.NotContains(t, first.LogicalPath, "//")

			second, err := analysis.ResolveOffset(snap, offset)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	}
}
