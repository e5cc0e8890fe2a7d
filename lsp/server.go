// Package lsp implements a Language Server Protocol server for Docker Compose
// files.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// Server implements the LSP Server interface for compose documents.
type Server struct {
	client protocol.Client
	logger *zap.Logger

	// Document state. Snapshots are immutable; edits replace them.
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*composels.Snapshot

	config      *composels.Config
	fixedConfig bool

	providers *Registry

	// Server state
	initialized   bool
	shutdown      bool
	workspaceRoot string
}

// Option configures a Server.
type Option func(*Server)

// WithConfig uses cfg instead of discovering .composels.yaml in the workspace.
func WithConfig(cfg *composels.Config) Option {
	return func(s *Server) {
		s.config = cfg
		s.fixedConfig = true
	}
}

// WithRegistry replaces the built-in sub-providers.
func WithRegistry(r *Registry) Option {
	return func(s *Server) {
		s.providers = r
	}
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		client:    client,
		logger:    logger,
		documents: make(map[protocol.DocumentURI]*composels.Snapshot),
		config:    composels.DefaultConfig(),
		providers: DefaultRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("rootURI", string(params.RootURI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	if params.RootURI != "" {
		s.workspaceRoot = uriToPath(params.RootURI)
	} else if params.RootPath != "" {
		s.workspaceRoot = params.RootPath
	}

	if s.workspaceRoot != "" {
		s.logger.Info("Workspace root", zap.String("root", s.workspaceRoot))

		if !s.fixedConfig {
			s.config = s.loadConfig(s.workspaceRoot)
		}
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider: true,
			// Go to the service named by depends_on or extends
			DefinitionProvider: true,
			// Service references, highlights and renames
			ReferencesProvider:        true,
			DocumentHighlightProvider: true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"-", ":", " ", "\""},
				ResolveProvider:   false,
			},
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
			DocumentLinkProvider: &protocol.DocumentLinkOptions{
				ResolveProvider: false,
			},
			FoldingRangeProvider: true,
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters:   []string{"-", ":", "\"", "'"},
				RetriggerCharacters: []string{":", "/"},
			},
			DocumentFormattingProvider: true,
			CodeLensProvider: &protocol.CodeLensOptions{
				ResolveProvider: false,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "composels",
			Version: "0.1.0",
		},
	}, nil
}

// loadConfig finds the config for root, falling back to the defaults.
func (s *Server) loadConfig(root string) *composels.Config {
	cfg, err := composels.LoadConfig(root)

	switch {
	case errors.Is(err, composels.ErrConfigNotFound):
		return composels.DefaultConfig()
	case err != nil:
		s.logger.Warn("Failed to load config, using defaults", zap.Error(err))
		return composels.DefaultConfig()
	}

	s.logger.Info("Loaded config", zap.Bool("advancedCompletion", cfg.Completion.Advanced))

	return cfg
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")

	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	snap := composels.NewSnapshot(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)

	s.mu.Lock()
	s.documents[snap.URI] = snap
	s.mu.Unlock()

	s.publishDiagnostics(ctx, snap)

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Info("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	s.mu.Lock()

	cur, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync: every event carries the whole text.
	changes := make([]composels.Change, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		changes = append(changes, composels.Change{Text: c.Text})
	}

	next, err := cur.Update(changes, params.TextDocument.Version)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("apply changes to %s: %w", params.TextDocument.URI, err)
	}

	s.documents[next.URI] = next
	s.mu.Unlock()

	s.publishDiagnostics(ctx, next)

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.mu.Unlock()

	// Clear diagnostics for closed document
	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	if err != nil {
		s.logger.Error("Failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// DidSave handles textDocument/didSave notifications.
func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Info("DidSave", zap.String("uri", string(params.TextDocument.URI)))
	return nil
}

// getSnapshot returns the current snapshot of a document (read-locked).
func (s *Server) getSnapshot(uri protocol.DocumentURI) (*composels.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.documents[uri]

	return snap, ok
}

func (s *Server) getConfig() *composels.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config
}

// positionContext builds the request context for a cursor request.
func (s *Server) positionContext(uri protocol.DocumentURI, pos protocol.Position) (*RequestContext, error) {
	rc, err := s.documentContext(uri)
	if err != nil {
		return nil, err
	}

	if err := rc.locate(pos); err != nil {
		return nil, err
	}

	return rc, nil
}

func (s *Server) documentContext(uri protocol.DocumentURI) (*RequestContext, error) {
	snap, ok := s.getSnapshot(uri)
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, composels.ErrNoDocument)
	}

	return &RequestContext{
		Snapshot: snap,
		Settings: snap.Settings(),
		Config:   s.getConfig(),
		Logger:   s.logger.With(zap.String("uri", string(uri))),
	}, nil
}

// DidChangeConfiguration reloads .composels.yaml from the workspace root.
func (s *Server) DidChangeConfiguration(_ context.Context, _ *protocol.DidChangeConfigurationParams) error {
	s.logger.Info("DidChangeConfiguration")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fixedConfig && s.workspaceRoot != "" {
		s.config = s.loadConfig(s.workspaceRoot)
	}

	return nil
}
