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

func TestCodeLens(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    image: nginx\n  \"db\":\n    image: postgres\n")

	lenses, err := server.CodeLens(context.Background(), &protocol.CodeLensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, lenses, 3)

	assert.Equal(t, lsp.CommandUp, lenses[0].Command.Command)
	assert.Equal(t, []any{"/project/compose.yaml"}, lenses[0].Command.Arguments)
	assert.Equal(t, uint32(0), lenses[0].Range.Start.Line)

	assert.Equal(t, lsp.CommandUpService, lenses[1].Command.Command)
	assert.Equal(t, []any{"/project/compose.yaml", "web"}, lenses[1].Command.Arguments)
	assert.Equal(t, uint32(1), lenses[1].Range.Start.Line)

	assert.Equal(t, []any{"/project/compose.yaml", "db"}, lenses[2].Command.Arguments)
}

func TestCodeLens_Disabled(t *testing.T) {
	t.Parallel()

	cfg := composels.DefaultConfig()
	cfg.CodeLens.Enabled = false

	server, _ := newTestServer(t, lsp.WithConfig(cfg))
	open(t, server, "services:\n  web:\n    image: nginx\n")

	lenses, err := server.CodeLens(context.Background(), &protocol.CodeLensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Empty(t, lenses)
}
