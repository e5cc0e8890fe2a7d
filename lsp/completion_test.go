package lsp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/composels"
	"github.com/rlch/composels/lsp"
)

func complete(t *testing.T, server *lsp.Server, line, character uint32) []protocol.CompletionItem {
	t.Helper()

	result, err := server.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: at(line, character),
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	return result.Items
}

func completionLabels(t *testing.T, server *lsp.Server, line, character uint32) []string {
	t.Helper()

	var labels []string
	for _, item := range complete(t, server, line, character) {
		labels = append(labels, item.Label)
	}

	return labels
}

func TestCompletion_ServiceKeysOnly(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  foo:\n    image: redis\n    ")

	items := complete(t, server, 3, 4)
	require.NotEmpty(t, items)

	var labels []string

	for _, item := range items {
		labels = append(labels, item.Label)
		assert.NotContains(t, item.InsertText, "containerPort", "item %q leaked from the ports table", item.Label)
		assert.Equal(t, protocol.InsertTextFormatSnippet, item.InsertTextFormat)
	}

	assert.Contains(t, labels, "build:")
	assert.Contains(t, labels, "image:")
	assert.NotContains(t, labels, "services:")
}

func TestCompletion_Root(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		line uint32
		char uint32
	}{
		{"empty document", "", 0, 0},
		{"partial key", "ser", 0, 3},
		{"after a section", "services:\n  web:\n    image: x\n", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, _ := newTestServer(t)
			open(t, server, tt.text)

			labels := completionLabels(t, server, tt.line, tt.char)
			assert.Contains(t, labels, "services:")
			assert.Contains(t, labels, "networks:")
			assert.NotContains(t, labels, "build:")
		})
	}
}

func TestCompletion_Ports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		line     uint32
		char     uint32
		expected string
	}{
		{
			name:     "bare line",
			text:     "services:\n  web:\n    ports:\n      ",
			line:     3, char: 6,
			expected: `- "${1:hostPort}:${2:containerPort}"$0`,
		},
		{
			name:     "after dash",
			text:     "services:\n  web:\n    ports:\n      - ",
			line:     3, char: 8,
			expected: `"${1:hostPort}:${2:containerPort}"$0`,
		},
		{
			name:     "after dash and quote",
			text:     "services:\n  web:\n    ports:\n      - \"",
			line:     3, char: 9,
			expected: `${1:hostPort}:${2:containerPort}$0`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, _ := newTestServer(t)
			open(t, server, tt.text)

			var found bool

			for _, item := range complete(t, server, tt.line, tt.char) {
				if item.Label == "hostPort:containerPort" {
					found = true

					assert.Equal(t, tt.expected, item.InsertText)
				}
			}

			assert.True(t, found, "hostPort:containerPort not offered")
		})
	}
}

func TestCompletion_VolumeModes(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    volumes:\n      - ./data:/data:")

	labels := completionLabels(t, server, 3, 21)
	assert.Contains(t, labels, "ro")
	assert.Contains(t, labels, "rw")
}

func TestCompletion_DependsOn(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    image: x\n  db:\n    image: y\n  app:\n    depends_on:\n      - ")

	items := complete(t, server, 7, 8)

	names := map[string]string{}
	for _, item := range items {
		names[item.Label] = item.InsertText
	}

	assert.Equal(t, map[string]string{"web": "web", "db": "db"}, names)
}

func TestCompletion_Networks(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    networks:\n      \nnetworks:\n  front:\n  back:\n")

	items := complete(t, server, 3, 6)

	var inserts []string
	for _, item := range items {
		inserts = append(inserts, item.InsertText)
	}

	assert.ElementsMatch(t, []string{"- front", "- back"}, inserts)
}

func TestCompletion_Advanced(t *testing.T) {
	t.Parallel()

	const text = "services:\n  web:\n    "

	basic, _ := newTestServer(t)
	open(t, basic, text)
	assert.NotContains(t, completionLabels(t, basic, 2, 4), "profiles:")

	cfg := composels.DefaultConfig()
	cfg.Completion.Advanced = true

	advanced, _ := newTestServer(t, lsp.WithConfig(cfg))
	open(t, advanced, text)
	assert.Contains(t, completionLabels(t, advanced, 2, 4), "profiles:")
}

func TestCompletion_ExpandsIndentation(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n    web:\n        ")

	for _, item := range complete(t, server, 2, 8) {
		if item.Label == "build:" {
			assert.Equal(t, "build:\n    context: ${1:.}\n    dockerfile: ${2:Dockerfile}$0", item.InsertText)
			return
		}
	}

	t.Fatal("build: not offered")
}

func TestCompletion_NothingInComments(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    # note\n")

	assert.Empty(t, complete(t, server, 2, 9))
}

func TestCompletion_InsertsAtCursor(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    image: redis\n    bu")

	items := complete(t, server, 3, 6)
	require.NotEmpty(t, items)

	cursor := protocol.Position{Line: 3, Character: 6}

	for _, item := range items {
		require.NotNil(t, item.TextEdit, "item %q", item.Label)
		assert.Equal(t, protocol.Range{Start: cursor, End: cursor}, item.TextEdit.Range, "item %q", item.Label)
		assert.Equal(t, item.InsertText, item.TextEdit.NewText)
	}
}

func TestCompletion_ReferenceInsertsAtCursor(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    image: x\n  app:\n    depends_on:\n      - ")

	items := complete(t, server, 5, 8)
	require.NotEmpty(t, items)

	cursor := protocol.Position{Line: 5, Character: 8}
	for _, item := range items {
		require.NotNil(t, item.TextEdit)
		assert.Equal(t, protocol.Range{Start: cursor, End: cursor}, item.TextEdit.Range)
	}
}
