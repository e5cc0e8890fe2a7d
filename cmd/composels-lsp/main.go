// Command composels-lsp is a Language Server Protocol server for Docker
// Compose files.
package main

import (
	"context"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/composels"
	"github.com/rlch/composels/lsp"
)

func main() {
	// Set up logging to stderr (stdout is for LSP communication)
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(logLevel())

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting composels-lsp server")

	ctx := context.Background()

	err = run(ctx, logger, os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

// logLevel reads COMPOSELS_LOG_LEVEL, falling back to log.level from the
// config nearest to the working directory.
func logLevel() zapcore.Level {
	text := os.Getenv("COMPOSELS_LOG_LEVEL")

	if text == "" {
		cfg, err := composels.LoadConfig(".")
		if err != nil {
			cfg = composels.DefaultConfig()
		}

		text = cfg.Log.Level
	}

	level, err := zapcore.ParseLevel(text)
	if err != nil {
		return zapcore.InfoLevel
	}

	return level
}

func run(ctx context.Context, logger *zap.Logger, in io.Reader, out io.Writer) error {
	// Create a JSON-RPC stream connection over stdio
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	// Create a client to send notifications to the editor
	client := protocol.ClientDispatcher(conn, logger)

	server := lsp.NewServer(client, logger)

	conn.Go(ctx, protocol.ServerHandler(server, nil))

	<-conn.Done()

	return conn.Err()
}

// readWriteCloser wraps separate reader/writer into io.ReadWriteCloser.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
