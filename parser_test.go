package composels_test

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rlch/composels"
)

// render lists every item in walk order as "depth key=value". Scalars are
// quoted, collections are shown by kind and absent nodes as "-".
func render(tree *composels.Tree) []string {
	show := func(n *composels.Node) string {
		switch {
		case n == nil:
			return "-"
		case n.IsCollection():
			return n.Kind.String()
		default:
			return strconv.Quote(n.Text(tree.Source))
		}
	}

	var out []string

	tree.Walk(func(it *composels.Item) bool {
		out = append(out, fmt.Sprintf("%.1f %s=%s", it.Depth(), show(it.Key), show(it.Value)))
		return true
	})

	return out
}

func TestParseTree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:  "nested mappings",
			input: "version: '3.4'\n\nservices:\n    foo:\n        image: bar",
			expected: []string{
				`0.0 "version"="'3.4'"`,
				`0.0 "services"=block-map`,
				`1.0 "foo"=block-map`,
				`2.0 "image"="bar"`,
			},
		},
		{
			name:  "sequence under key",
			input: "ports:\n  - 80:80\n  - 443",
			expected: []string{
				`0.0 "ports"=block-seq`,
				`1.0 -="80:80"`,
				`1.0 -="443"`,
			},
		},
		{
			name:  "sequence at key indentation",
			input: "a:\n- x\nb: y",
			expected: []string{
				`0.0 "a"=block-seq`,
				`1.0 -="x"`,
				`0.0 "b"="y"`,
			},
		},
		{
			name:  "flow collections count half a level",
			input: "a: [1, {b: c}]",
			expected: []string{
				`0.0 "a"=flow-seq`,
				`0.5 -="1"`,
				`0.5 -=flow-map`,
				`1.0 "b"="c"`,
			},
		},
		{
			name:  "flow mapping under block mapping",
			input: "a:\n  b: {c: d}",
			expected: []string{
				`0.0 "a"=block-map`,
				`1.0 "b"=flow-map`,
				`1.5 "c"="d"`,
			},
		},
		{
			name:  "compact mapping in sequence",
			input: "- a: 1\n  b: 2\n- c",
			expected: []string{
				`0.0 -=block-map`,
				`1.0 "a"="1"`,
				`1.0 "b"="2"`,
				`0.0 -="c"`,
			},
		},
		{
			name:  "multi-line plain scalar",
			input: "a: one\n  two\nb: 3",
			expected: []string{
				`0.0 "a"="one\n  two"`,
				`0.0 "b"="3"`,
			},
		},
		{
			name:  "block scalar",
			input: "a: |\n  x\nb: 1",
			expected: []string{
				`0.0 "a"="|\n  x"`,
				`0.0 "b"="1"`,
			},
		},
		{
			name:     "block scalar header at end of input",
			input:    "x: >",
			expected: []string{`0.0 "x"=">"`},
		},
		{
			name:  "block scalar body that looks like a mapping",
			input: "services:\n  web:\n    command: |\n      ports: 80\n    image: x",
			expected: []string{
				`0.0 "services"=block-map`,
				`1.0 "web"=block-map`,
				`2.0 "command"="|\n      ports: 80"`,
				`2.0 "image"="x"`,
			},
		},
		{
			name:     "multi-line quoted scalar",
			input:    "s: 'a\n  b'\nt: 1",
			expected: []string{`0.0 "s"="'a\n  b'"`, `0.0 "t"="1"`},
		},
		{
			name:     "flow pair in a sequence",
			input:    "x: [a: b, c]",
			expected: []string{`0.0 "x"=flow-seq`, `0.5 "a"="b"`, `0.5 -="c"`},
		},
		{
			name:  "explicit key",
			input: "? k\n: v",
			expected: []string{
				`0.0 "k"="v"`,
			},
		},
		{
			name:  "key being typed",
			input: "services:\n  fo",
			expected: []string{
				`0.0 "services"=block-map`,
				`1.0 "fo"=-`,
			},
		},
		{
			name:  "empty value",
			input: "a:\nb:",
			expected: []string{
				`0.0 "a"=-`,
				`0.0 "b"=-`,
			},
		},
		{
			name:  "multiple documents",
			input: "a: 1\n---\nb: 2",
			expected: []string{
				`0.0 "a"="1"`,
				`0.0 "b"="2"`,
			},
		},
		{
			name:  "anchors and merge keys",
			input: "x: &base\n  a: 1\ny:\n  <<: *base",
			expected: []string{
				`0.0 "x"=block-map`,
				`1.0 "a"="1"`,
				`0.0 "y"=block-map`,
				`1.0 "<<"="*base"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := render(composels.ParseTree(tt.input))
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ParseTree() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTree_Recovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
		severity composels.Severity
		message  string
	}{
		{
			name:     "unterminated quote",
			input:    "a: 'foo\nb: 1",
			expected: []string{`0.0 "a"="'foo"`, `0.0 "b"="1"`},
			severity: composels.SeverityError,
			message:  "unterminated quoted scalar",
		},
		{
			name:     "unclosed flow sequence",
			input:    "a: [1, 2\nb: 3",
			expected: []string{`0.0 "a"=flow-seq`, `0.5 -="1"`, `0.5 -="2"`, `0.0 "b"="3"`},
			severity: composels.SeverityError,
			message:  "unclosed flow collection",
		},
		{
			name:     "missing comma",
			input:    "[a, [b] c]",
			expected: []string{`0.0 -="a"`, `0.0 -=flow-seq`, `0.5 -="b"`, `0.0 -="c"`},
			severity: composels.SeverityWarning,
			message:  "missing ',' between flow entries",
		},
		{
			name:     "over-indented key continues the plain scalar",
			input:    "a: 1\n   b: 2",
			expected: []string{`0.0 "a"="1\n   b"`},
			severity: composels.SeverityWarning,
			message:  `unexpected Colon ":"`,
		},
		{
			name:     "dedent to an unknown column",
			input:    "a:\n    b: 1\n  c: 2",
			expected: []string{`0.0 "a"=block-map`, `1.0 "b"="1"`, `0.0 "c"="2"`},
			severity: composels.SeverityWarning,
			message:  "unexpected indentation",
		},
		{
			name:     "mismatched bracket",
			input:    "a: [1}",
			expected: []string{`0.0 "a"=flow-seq`, `0.5 -="1"`},
			severity: composels.SeverityError,
			message:  "mismatched flow collection bracket",
		},
		{
			name:     "text after the point tree-sitter gave up",
			input:    "a: [x\nb:\n  c: 1\n  d: [2, 3]\n",
			expected: []string{`0.0 "a"=flow-seq`, `0.5 -="x"`, `0.0 "b"=block-map`, `1.0 "c"="1"`, `1.0 "d"=flow-seq`, `1.5 -="2"`, `1.5 -="3"`},
			severity: composels.SeverityError,
			message:  "unclosed flow collection",
		},
		{
			name:     "content after root sequence",
			input:    "- a\nb: c",
			expected: []string{`0.0 -="a"`, `0.0 "b"="c"`},
			severity: composels.SeverityWarning,
			message:  "unexpected content after the document root",
		},
		{
			name:     "missing colon",
			input:    "services:\n  web:\n    image: redis\n    bu",
			expected: []string{`0.0 "services"=block-map`, `1.0 "web"=block-map`, `2.0 "image"="redis"`, `2.0 "bu"=-`},
			severity: composels.SeverityHint,
			message:  "missing ':' after mapping key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := composels.ParseTree(tt.input)

			if diff := cmp.Diff(tt.expected, render(tree)); diff != "" {
				t.Errorf("ParseTree() mismatch (-want +got):\n%s", diff)
			}

			found := false

			for _, m := range tree.Markers {
				if m.Message == tt.message && m.Severity == tt.severity {
					found = true
				}
			}

			if !found {
				t.Errorf("no %q marker with severity %d in %+v", tt.message, tt.severity, tree.Markers)
			}
		})
	}
}

func TestParseTree_WellFormedHasNoMarkers(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"version: '3.4'\nservices:\n  web:\n    image: nginx # pinned\n    ports:\n      - \"80:80\"\n",
		"x: >",
		"services:\n  web:\n    command: |\n      ports: 80\n    image: x\n",
		"a:\n- x\nb: [1, {c: d}]\n",
		"? k\n: v\n",
		"x: &base\n  a: 1\ny:\n  <<: *base\n",
		"%YAML 1.2\n---\na: 1\n...\n---\nb: 2\n",
		"s: 'a\n  b'\n",
	}

	for _, input := range inputs {
		if markers := composels.ParseTree(input).Markers; len(markers) != 0 {
			t.Errorf("ParseTree(%q) markers = %+v, want none", input, markers)
		}
	}
}

func TestTree_WalkOffsetOrder(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"services:\n  web:\n    image: nginx\n    ports: [\"80:80\", {target: 443}]\n    environment:\n      - A=1\n",
		"? [a, b]\n: {c: [d, e]}\n- stray\n",
		"a: [1, 2\n  b: {c\nd: 'e\n---\n- - x\n  - y\n-\n",
		"x: &a\n  <<: *a\n  k: |\n    text\n  z: \"q\"\n",
	}

	for _, input := range inputs {
		tree := composels.ParseTree(input)
		last := -1

		tree.Walk(func(it *composels.Item) bool {
			if it.Offset() < last {
				t.Errorf("walk of %q visited offset %d after %d", input, it.Offset(), last)
			}

			last = it.Offset()

			return true
		})
	}
}

func TestTree_WalkStops(t *testing.T) {
	t.Parallel()

	tree := composels.ParseTree("a: 1\nb: 2\nc: 3")
	visited := 0

	tree.Walk(func(*composels.Item) bool {
		visited++
		return visited < 2
	})

	if visited != 2 {
		t.Errorf("visited %d items, want 2", visited)
	}
}

func TestTree_CommentAt(t *testing.T) {
	t.Parallel()

	tree := composels.ParseTree("a: 1 # note\nb: 2")

	for offset, want := range map[int]bool{4: false, 5: true, 8: true, 11: true, 12: false} {
		if _, got := tree.CommentAt(offset); got != want {
			t.Errorf("CommentAt(%d) = %v, want %v", offset, got, want)
		}
	}
}

func TestTree_EmptyAndContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input      string
		empty      bool
		hasContent bool
	}{
		{"", true, false},
		{"# only a comment\n", true, false},
		{"---\n...\n", true, false},
		{"*alias", true, true},
		{"|\n  text", true, true},
		{"a: 1", false, true},
	}

	for _, tt := range tests {
		tree := composels.ParseTree(tt.input)

		if got := tree.Empty(); got != tt.empty {
			t.Errorf("Empty(%q) = %v, want %v", tt.input, got, tt.empty)
		}

		if got := tree.HasContent(); got != tt.hasContent {
			t.Errorf("HasContent(%q) = %v, want %v", tt.input, got, tt.hasContent)
		}
	}
}
