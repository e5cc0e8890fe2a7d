package composels

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"
	"gopkg.in/yaml.v3"
)

// Change is one edit of a document. A nil Range replaces the whole text.
type Change struct {
	Range *protocol.Range
	Text  string
}

// SyntaxError is a YAML syntax error reported by the serializer.
type SyntaxError struct {
	// Line is 0-based, or -1 when the serializer reported no line.
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line < 0 {
		return e.Msg
	}

	return fmt.Sprintf("line %d: %s", e.Line+1, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Snapshot is an immutable view of a document at one version. Edits produce
// new snapshots; a snapshot is never modified after Parse returns it.
type Snapshot struct {
	URI     protocol.DocumentURI
	Version int32
	Text    string
	Tree    *Tree

	// SyntaxErr is the first YAML syntax error of the text, or nil.
	SyntaxErr *SyntaxError

	lines []int // byte offset of each line start
}

// Parse builds a snapshot of text. It succeeds for any input.
func Parse(text string) *Snapshot {
	return NewSnapshot("", 0, text)
}

// NewSnapshot builds a snapshot of text for the given document version.
func NewSnapshot(uri protocol.DocumentURI, version int32, text string) *Snapshot {
	return &Snapshot{
		URI:       uri,
		Version:   version,
		Text:      text,
		Tree:      ParseTree(text),
		SyntaxErr: checkSyntax(text),
		lines:     lineStarts(text),
	}
}

// Update applies changes in order and returns the snapshot of the result.
// The receiver is left untouched.
func (s *Snapshot) Update(changes []Change, version int32) (*Snapshot, error) {
	text := s.Text
	cur := s

	for i, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
		} else {
			start, err := cur.Offset(ch.Range.Start)
			if err != nil {
				return nil, fmt.Errorf("change %d: %w", i, err)
			}

			end, err := cur.Offset(ch.Range.End)
			if err != nil {
				return nil, fmt.Errorf("change %d: %w", i, err)
			}

			if end < start {
				return nil, fmt.Errorf("change %d: range end before start: %w", i, ErrOutOfRange)
			}

			text = text[:start] + ch.Text + text[end:]
		}

		// Later ranges are relative to the text after this change.
		if i < len(changes)-1 {
			cur = &Snapshot{Text: text, lines: lineStarts(text)}
		}
	}

	return NewSnapshot(s.URI, version, text), nil
}

// LineCount returns the number of lines. A trailing line break starts a new,
// empty line.
func (s *Snapshot) LineCount() int {
	return len(s.lines)
}

// Line returns the text of line n without its line break.
func (s *Snapshot) Line(n int) string {
	if n < 0 || n >= len(s.lines) {
		return ""
	}

	start := s.lines[n]
	end := len(s.Text)

	if n+1 < len(s.lines) {
		end = s.lines[n+1] - 1
	}

	return strings.TrimSuffix(s.Text[start:end], "\r")
}

// Offset converts a position with a UTF-16 character index into a byte
// offset. A character inside a surrogate pair maps to the start of the rune.
func (s *Snapshot) Offset(pos protocol.Position) (int, error) {
	line := int(pos.Line)
	if line >= len(s.lines) {
		return 0, fmt.Errorf("line %d of %d: %w", pos.Line, len(s.lines), ErrOutOfRange)
	}

	text := s.Line(line)
	start := s.lines[line]
	units := 0

	for i, r := range text {
		if units >= int(pos.Character) {
			return start + i, nil
		}

		units += utf16Len(r)
		if units > int(pos.Character) {
			return start + i, nil
		}
	}

	if units == int(pos.Character) {
		return start + len(text), nil
	}

	return 0, fmt.Errorf("line %d character %d: %w", pos.Line, pos.Character, ErrOutOfRange)
}

// Position converts a byte offset into a position. Offsets past the end of
// the text are clamped to the end.
func (s *Snapshot) Position(offset int) protocol.Position {
	offset = min(max(offset, 0), len(s.Text))

	line := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset }) - 1
	line = max(line, 0)

	units := 0
	for _, r := range s.Text[s.lines[line]:offset] {
		units += utf16Len(r)
	}

	return protocol.Position{Line: uint32(line), Character: uint32(units)} //nolint:gosec // bounded by text size
}

// Range converts a byte span into a range.
func (s *Snapshot) Range(offset, length int) protocol.Range {
	return protocol.Range{Start: s.Position(offset), End: s.Position(offset + length)}
}

// Settings returns the indentation and end-of-line settings inferred from
// the text.
func (s *Snapshot) Settings() Settings {
	return InferSettings(s.Text)
}

func lineStarts(text string) []int {
	lines := []int{0}

	for i := range len(text) {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}

	return lines
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}

	return len(utf16.Encode([]rune{r}))
}

var yamlErrLine = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// checkSyntax decodes every document of text and returns the first error.
func checkSyntax(text string) *SyntaxError {
	dec := yaml.NewDecoder(strings.NewReader(text))

	for {
		var node yaml.Node

		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return toSyntaxError(err)
		}
	}
}

func toSyntaxError(err error) *SyntaxError {
	msg := err.Error()

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}

	if m := yamlErrLine.FindStringSubmatch(msg); m != nil {
		line, convErr := strconv.Atoi(m[1])
		if convErr == nil {
			return &SyntaxError{Line: line - 1, Msg: m[2]}
		}
	}

	return &SyntaxError{Line: -1, Msg: strings.TrimPrefix(msg, "yaml: ")}
}
