package lsp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestSignatureHelp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		line      uint32
		char      uint32
		signature string
		active    uint32
	}{
		{
			name:      "host ip in the third parameter",
			text:      "services:\n  web:\n    ports:\n      - 127.0.0.1:8080:80",
			line:      3, char: 24,
			signature: "hostIP:hostPort:containerPort",
			active:    2,
		},
		{
			name:      "host port",
			text:      "services:\n  web:\n    ports:\n      - \"8080:80\"",
			line:      3, char: 10,
			signature: "hostPort:containerPort",
			active:    0,
		},
		{
			name:      "protocol",
			text:      "services:\n  web:\n    ports:\n      - 53:53/udp",
			line:      3, char: 17,
			signature: "hostPort:containerPort/protocol",
			active:    2,
		},
		{
			name:      "empty host port",
			text:      "services:\n  web:\n    ports:\n      - :80",
			line:      3, char: 8,
			signature: "hostPort:containerPort",
			active:    0,
		},
		{
			name:      "single container port",
			text:      "services:\n  web:\n    ports:\n      - 80",
			line:      3, char: 10,
			signature: "containerPort",
			active:    0,
		},
		{
			name:      "volume mode",
			text:      "services:\n  web:\n    volumes:\n      - ./data:/data:ro",
			line:      3, char: 23,
			signature: "source:target:mode",
			active:    2,
		},
		{
			name:      "volume target",
			text:      "services:\n  web:\n    volumes:\n      - ./data:/data",
			line:      3, char: 18,
			signature: "source:target",
			active:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, _ := newTestServer(t)
			open(t, server, tt.text)

			help, err := server.SignatureHelp(context.Background(), &protocol.SignatureHelpParams{
				TextDocumentPositionParams: at(tt.line, tt.char),
			})
			require.NoError(t, err)
			require.NotNil(t, help)

			require.Less(t, int(help.ActiveSignature), len(help.Signatures))
			sig := help.Signatures[help.ActiveSignature]
			assert.Equal(t, tt.signature, sig.Label)
			assert.Equal(t, tt.active, help.ActiveParameter)
			assert.Less(t, int(help.ActiveParameter), len(sig.Parameters))
		})
	}
}

func TestSignatureHelp_OutsideSequences(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, "services:\n  web:\n    image: nginx:1.25\n")

	help, err := server.SignatureHelp(context.Background(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: at(2, 16),
	})
	require.NoError(t, err)
	assert.Nil(t, help)
}
