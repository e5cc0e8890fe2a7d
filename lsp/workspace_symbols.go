package lsp

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// composeFileName matches compose.yaml, docker-compose.yml and their
// override variants such as compose.prod.yaml.
var composeFileName = regexp.MustCompile(`^(docker-)?compose(\.[\w-]+)*\.ya?ml$`)

// symbolSections lists the sections searched by workspace symbols, in
// result order.
var symbolSections = []string{"services", "volumes", "networks", "configs", "secrets"}

// Symbols handles workspace/symbol requests.
// Searches section entries of open documents and of compose files in the
// workspace. Open documents win over their on-disk copy.
func (s *Server) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.logger.Debug("Symbols",
		zap.String("query", params.Query))

	query := strings.ToLower(params.Query)

	s.mu.RLock()
	open := make([]*composels.Snapshot, 0, len(s.documents))
	for _, snap := range s.documents {
		open = append(open, snap)
	}
	root := s.workspaceRoot
	s.mu.RUnlock()

	slices.SortFunc(open, func(a, b *composels.Snapshot) int {
		return strings.Compare(string(a.URI), string(b.URI))
	})

	var symbols []protocol.SymbolInformation

	seen := make(map[protocol.DocumentURI]bool, len(open))

	for _, snap := range open {
		seen[snap.URI] = true
		symbols = append(symbols, workspaceSymbols(snap, query)...)
	}

	if root == "" {
		return symbols, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}

			return nil
		}

		if !composeFileName.MatchString(d.Name()) || seen[uri.File(path)] {
			return nil
		}

		data, err := os.ReadFile(path) //#nosec G304 -- paths come from the workspace walk
		if err != nil {
			return nil //nolint:nilerr // unreadable files are skipped
		}

		snap := composels.NewSnapshot(uri.File(path), 0, string(data))
		symbols = append(symbols, workspaceSymbols(snap, query)...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

// workspaceSymbols returns the section entries of snap whose name contains
// query, compared case-insensitively.
func workspaceSymbols(snap *composels.Snapshot, query string) []protocol.SymbolInformation {
	var symbols []protocol.SymbolInformation

	for _, section := range symbolSections {
		for _, top := range topLevel(snap.Tree, section) {
			for _, entry := range entries(top) {
				name := keyName(entry)
				if !strings.Contains(strings.ToLower(name), query) {
					continue
				}

				symbols = append(symbols, protocol.SymbolInformation{
					Name:          name,
					Kind:          sectionKinds[section],
					ContainerName: section,
					Location: protocol.Location{
						URI:   snap.URI,
						Range: keyRange(snap, entry),
					},
				})
			}
		}
	}

	return symbols
}
