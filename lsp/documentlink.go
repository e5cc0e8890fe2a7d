package lsp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/rlch/composels"
)

// DocumentLink handles textDocument/documentLink requests.
// Returns links for service images and env files.
func (s *Server) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	s.logger.Debug("DocumentLink",
		zap.String("uri", string(params.TextDocument.URI)))

	rc, err := s.documentContext(params.TextDocument.URI)
	if errors.Is(err, composels.ErrNoDocument) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return Dispatch(ctx, CapabilityDocumentLink, rc, s.providers.DocumentLink, Union[protocol.DocumentLink])
}

// imageLinks links each service image to its registry page.
type imageLinks struct{}

func (imageLinks) Name() string { return "images" }

func (imageLinks) Provide(ctx context.Context, rc *RequestContext) ([]protocol.DocumentLink, error) {
	if rc.Config != nil && !rc.Config.Links.Images {
		return nil, nil
	}

	var links []protocol.DocumentLink

	for _, svc := range services(rc.Snapshot.Tree) {
		if ctx.Err() != nil {
			return nil, nil
		}

		img := lookup(svc.Value, "image")
		if img == nil {
			continue
		}

		name, offset, ok := scalar(rc.Snapshot.Text, img.Value)
		if !ok {
			continue
		}

		repo, target, ok := ImageURL(name)
		if !ok {
			continue
		}

		links = append(links, protocol.DocumentLink{
			Range:   rc.Snapshot.Range(offset, len(repo)),
			Target:  uri.URI(target),
			Tooltip: "Open " + repo,
		})
	}

	return links, nil
}

// ImageURL returns the repository part of an image reference and the web
// page of that repository. Only Docker Hub, mcr.microsoft.com and quay.io
// are known.
func ImageURL(image string) (repo, target string, ok bool) {
	repo = image
	if i := strings.IndexByte(repo, '@'); i >= 0 {
		repo = repo[:i]
	}

	if i := strings.LastIndexByte(repo, ':'); i > strings.LastIndexByte(repo, '/') {
		repo = repo[:i]
	}

	if repo == "" || strings.ContainsAny(repo, "${} ") {
		return "", "", false
	}

	parts := strings.Split(repo, "/")

	registry := ""
	if len(parts) > 1 && (strings.ContainsAny(parts[0], ".:") || parts[0] == "localhost") {
		registry, parts = parts[0], parts[1:]
	}

	path := strings.Join(parts, "/")

	switch registry {
	case "", "docker.io", "index.docker.io":
		switch {
		case len(parts) == 1:
			return repo, "https://hub.docker.com/_/" + path, true
		case len(parts) == 2 && parts[0] == "library":
			return repo, "https://hub.docker.com/_/" + parts[1], true
		case len(parts) == 2:
			return repo, "https://hub.docker.com/r/" + path, true
		}
	case "mcr.microsoft.com":
		return repo, "https://mcr.microsoft.com/artifact/mar/" + path, true
	case "quay.io":
		return repo, "https://quay.io/repository/" + path, true
	}

	return "", "", false
}

// envFileLinks links env_file entries to the files they name.
type envFileLinks struct{}

func (envFileLinks) Name() string { return "envFiles" }

func (envFileLinks) Provide(ctx context.Context, rc *RequestContext) ([]protocol.DocumentLink, error) {
	if rc.Config != nil && !rc.Config.Links.EnvFiles {
		return nil, nil
	}

	dir := filepath.Dir(uriToPath(rc.Snapshot.URI))
	if dir == "." {
		return nil, nil
	}

	var links []protocol.DocumentLink

	for _, svc := range services(rc.Snapshot.Tree) {
		if ctx.Err() != nil {
			return nil, nil
		}

		env := lookup(svc.Value, "env_file")
		if env == nil {
			continue
		}

		for _, n := range envFileNodes(env.Value) {
			name, offset, ok := scalar(rc.Snapshot.Text, n)
			if !ok || name == "" {
				continue
			}

			path := name
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}

			links = append(links, protocol.DocumentLink{
				Range:   rc.Snapshot.Range(offset, len(name)),
				Target:  uri.File(path),
				Tooltip: "Open " + name,
			})
		}
	}

	return links, nil
}

// envFileNodes returns the path scalars of an env_file value: a scalar, a
// sequence of scalars, or a sequence of mappings with a path key.
func envFileNodes(n *composels.Node) []*composels.Node {
	if n == nil {
		return nil
	}

	if n.Kind == composels.NodeScalar {
		return []*composels.Node{n}
	}

	if !n.IsCollection() || n.IsMap() {
		return nil
	}

	var out []*composels.Node

	for _, it := range n.Items {
		switch {
		case it.Value == nil:
		case it.Value.Kind == composels.NodeScalar:
			out = append(out, it.Value)
		case it.Value.IsMap():
			if p := lookup(it.Value, "path"); p != nil && p.Value != nil {
				out = append(out, p.Value)
			}
		}
	}

	return out
}
