package composels_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rlch/composels"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		opts     composels.FormatOptions
		expected string
	}{
		{
			name:     "reindents to requested width",
			input:    "services:\n    web:\n        image: nginx\n",
			opts:     composels.FormatOptions{Indent: 2},
			expected: "services:\n  web:\n    image: nginx\n",
		},
		{
			name:     "keeps inferred indentation",
			input:    "services:\n    web:\n            image: nginx\n",
			expected: "services:\n    web:\n        image: nginx\n",
		},
		{
			name:     "normalizes spacing after colons",
			input:    "version:    '3.8'\nservices:\n  web:\n    image:   redis\n",
			expected: "version: '3.8'\nservices:\n  web:\n    image: redis\n",
		},
		{
			name:     "keeps comments",
			input:    "a: 1 # note\n",
			expected: "a: 1 # note\n",
		},
		{
			name:     "keeps crlf line endings",
			input:    "a:\r\n    b: 1\r\n",
			opts:     composels.FormatOptions{Indent: 2},
			expected: "a:\r\n  b: 1\r\n",
		},
		{
			name:     "multiple documents",
			input:    "a: 1\n---\nb: 2\n",
			expected: "a: 1\n---\nb: 2\n",
		},
		{
			name:     "empty document is left alone",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := composels.Format(tt.input, tt.opts)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}

			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Format() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormat_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := composels.Format("a: [1, 2\nb: 3\n", composels.FormatOptions{})
	if !errors.Is(err, composels.ErrSyntax) {
		t.Fatalf("Format() error = %v, want ErrSyntax", err)
	}
}

func TestInferSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected composels.Settings
	}{
		{"empty", "", composels.Settings{TabSize: 2, EOL: "\n"}},
		{"no indentation", "a: 1\nb: 2\n", composels.Settings{TabSize: 2, EOL: "\n"}},
		{"four spaces", "a:\n    b: 1\n", composels.Settings{TabSize: 4, EOL: "\n"}},
		{"blank lines skipped", "a:\n   \n   b: 1\n", composels.Settings{TabSize: 3, EOL: "\n"}},
		{"crlf", "a:\r\n  b: 1\r\n", composels.Settings{TabSize: 2, EOL: "\r\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.expected, composels.InferSettings(tt.input)); diff != "" {
				t.Errorf("InferSettings() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
