package composels

import "strings"

// DefaultTabSize is used when a document has no indented line.
const DefaultTabSize = 2

// Settings describes the layout conventions of a document.
type Settings struct {
	TabSize int
	EOL     string
}

// InferSettings derives the tab size from the leading whitespace of the
// first indented line and the end-of-line sequence from the first line break.
func InferSettings(text string) Settings {
	s := Settings{TabSize: DefaultTabSize, EOL: "\n"}

	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		s.EOL = "\r\n"
	}

	for line := range strings.Lines(text) {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == line || strings.TrimSpace(trimmed) == "" {
			continue
		}

		s.TabSize = len(line) - len(trimmed)

		break
	}

	return s
}
