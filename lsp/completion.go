package lsp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/composels"
	"github.com/rlch/composels/analysis"
)

// Completion handles textDocument/completion requests.
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	s.logger.Debug("Completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	rc, err := s.positionContext(params.TextDocument.URI, params.Position)
	if errors.Is(err, composels.ErrNoDocument) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, err
	}

	rc.Logger.Debug("Completion context",
		zap.String("path", rc.Info.LogicalPath),
		zap.Float64("depth", rc.Info.IndentDepth))

	items, err := Dispatch(ctx, CapabilityCompletion, rc, s.providers.Completion, Union[protocol.CompletionItem])
	if err != nil {
		return nil, err
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// pathMatcher activates a table on a set of logical paths and, optionally,
// one indentation depth.
type pathMatcher struct {
	paths []*regexp.Regexp
	depth *float64
}

// paths compiles full-match logical path patterns.
func paths(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`^(?:` + p + `)$`)
	}

	return out
}

func depth(d float64) *float64 {
	return &d
}

func (m pathMatcher) matches(info *analysis.PositionInfo) bool {
	if info == nil {
		return false
	}

	if m.depth != nil && *m.depth != info.IndentDepth {
		return false
	}

	for _, re := range m.paths {
		if re.MatchString(info.LogicalPath) {
			return true
		}
	}

	return false
}

// completionEntry is one static completion. Tabs in insertText are expanded
// to the document's indentation.
type completionEntry struct {
	label         string
	insertText    string
	detail        string
	documentation string
	kind          protocol.CompletionItemKind

	// line must match the whole cursor line when set.
	line *regexp.Regexp

	// advanced entries are only offered when enabled in the config.
	advanced bool
}

// completionCollection is a named table of entries sharing a path matcher.
type completionCollection struct {
	name    string
	match   pathMatcher
	entries []completionEntry
}

func (c *completionCollection) Name() string { return c.name }

func (c *completionCollection) Provide(ctx context.Context, rc *RequestContext) ([]protocol.CompletionItem, error) {
	if !c.match.matches(rc.Info) {
		return nil, nil
	}

	var items []protocol.CompletionItem

	for i, e := range c.entries {
		if ctx.Err() != nil {
			return nil, nil
		}

		if e.advanced && (rc.Config == nil || !rc.Config.Completion.Advanced) {
			continue
		}

		if e.line != nil && !e.line.MatchString(rc.Line) {
			continue
		}

		items = append(items, e.item(rc, fmt.Sprintf("%s-%03d", c.name, i)))
	}

	return items, nil
}

func (e completionEntry) item(rc *RequestContext, sortText string) protocol.CompletionItem {
	kind := e.kind
	if kind == 0 {
		kind = protocol.CompletionItemKindProperty
	}

	text := expandTabs(e.insertText, rc.Settings.TabSize)
	item := protocol.CompletionItem{
		Label:            e.label,
		Kind:             kind,
		Detail:           e.detail,
		SortText:         sortText,
		InsertText:       text,
		InsertTextFormat: protocol.InsertTextFormatSnippet,
		TextEdit:         insertAt(rc.Position, text),
	}

	if e.documentation != "" {
		item.Documentation = protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: e.documentation,
		}
	}

	return item
}

func expandTabs(s string, tabSize int) string {
	if tabSize <= 0 {
		tabSize = composels.DefaultTabSize
	}

	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabSize))
}

// Line shapes for entries inside sequences.
var (
	lineBare      = regexp.MustCompile(`^\s*$`)
	lineDash      = regexp.MustCompile(`^\s*-\s*$`)
	lineDashQuote = regexp.MustCompile(`^\s*-\s*["']$`)
	lineKey       = regexp.MustCompile(`^\s*[\w.-]*$`)
	lineRootKey   = regexp.MustCompile(`^[\w.-]*$`)
)

// sequenceEntries expands one sequence value template into the variants for
// a bare line, a line holding only a dash, and a dash followed by a quote.
func sequenceEntries(label, value, doc string, advanced bool) []completionEntry {
	return []completionEntry{
		{label: label, insertText: `- "` + value + `"$0`, documentation: doc, kind: protocol.CompletionItemKindValue, line: lineBare, advanced: advanced},
		{label: label, insertText: `"` + value + `"$0`, documentation: doc, kind: protocol.CompletionItemKindValue, line: lineDash, advanced: advanced},
		{label: label, insertText: value + `$0`, documentation: doc, kind: protocol.CompletionItemKindValue, line: lineDashQuote, advanced: advanced},
	}
}

// dependsOnProvider completes the names of the other services of the file.
type dependsOnProvider struct{}

func (dependsOnProvider) Name() string { return "dependsOn" }

var dependsOnMatch = pathMatcher{
	paths: paths(`/services/[^/]+/depends_on/(<value>|<item>/<value>)`),
	depth: depth(3),
}

func (dependsOnProvider) Provide(ctx context.Context, rc *RequestContext) ([]protocol.CompletionItem, error) {
	if !dependsOnMatch.matches(rc.Info) {
		return nil, nil
	}

	current := rc.Info.Segments()[1]

	var names []string

	for _, svc := range services(rc.Snapshot.Tree) {
		if ctx.Err() != nil {
			return nil, nil
		}

		if name := keyName(svc); name != current {
			names = append(names, name)
		}
	}

	return referenceItems(rc, names, "service"), nil
}

// networkProvider completes the names of the top-level networks.
type networkProvider struct{}

func (networkProvider) Name() string { return "networks" }

var networkMatch = pathMatcher{
	paths: paths(`/services/[^/]+/networks/(<value>|<item>/<value>)`),
	depth: depth(3),
}

func (networkProvider) Provide(ctx context.Context, rc *RequestContext) ([]protocol.CompletionItem, error) {
	if !networkMatch.matches(rc.Info) {
		return nil, nil
	}

	var names []string

	for _, top := range topLevel(rc.Snapshot.Tree, "networks") {
		for _, n := range entries(top) {
			if ctx.Err() != nil {
				return nil, nil
			}

			names = append(names, keyName(n))
		}
	}

	return referenceItems(rc, names, "network"), nil
}

// referenceItems builds sequence entries naming other parts of the file.
func referenceItems(rc *RequestContext, names []string, detail string) []protocol.CompletionItem {
	var prefix string

	switch {
	case lineBare.MatchString(rc.Line):
		prefix = "- "
	case lineDash.MatchString(rc.Line):
	default:
		return nil
	}

	items := make([]protocol.CompletionItem, 0, len(names))

	for _, name := range names {
		if name == "" {
			continue
		}

		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       protocol.CompletionItemKindReference,
			Detail:     detail,
			InsertText: prefix + name,
			TextEdit:   insertAt(rc.Position, prefix+name),
		})
	}

	return items
}

// insertAt is an empty-range edit at the cursor, so typed text is kept.
func insertAt(pos protocol.Position, text string) *protocol.TextEdit {
	return &protocol.TextEdit{
		Range:   protocol.Range{Start: pos, End: pos},
		NewText: text,
	}
}
