package composels

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatOptions controls Format.
type FormatOptions struct {
	// Indent is the number of spaces per level; 0 uses the document's tab size.
	Indent int

	// EOL is the line ending of the output; "" uses the document's.
	EOL string
}

// Format re-serializes every document of text with consistent indentation.
// Comments are kept where the serializer can attach them. Text with a syntax
// error is not formatted.
func Format(text string, opts FormatOptions) (string, error) {
	inferred := InferSettings(text)

	if opts.Indent <= 0 {
		opts.Indent = inferred.TabSize
	}

	if opts.EOL == "" {
		opts.EOL = inferred.EOL
	}

	dec := yaml.NewDecoder(strings.NewReader(text))

	var docs []*yaml.Node

	for {
		var node yaml.Node

		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("format: %w", toSyntaxError(err))
		}

		docs = append(docs, &node)
	}

	if len(docs) == 0 {
		return text, nil
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(opts.Indent)

	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return "", fmt.Errorf("format: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("format: %w", err)
	}

	out := buf.String()
	if opts.EOL != "\n" {
		out = strings.ReplaceAll(out, "\n", opts.EOL)
	}

	return out, nil
}
